/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package asset_handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	dbclient "github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	apiutils "github.com/meshstash/meshstash/pkg/handlers/apiutils"
)

func (h *Handler) CreateTextureSet(c *gin.Context) {
	handle(c, h.createTextureSet)
}

func (h *Handler) ListTextureSets(c *gin.Context) {
	handle(c, h.listTextureSets)
}

func (h *Handler) GetTextureSet(c *gin.Context) {
	handle(c, h.getTextureSet)
}

func (h *Handler) PatchTextureSet(c *gin.Context) {
	handle(c, h.patchTextureSet)
}

func (h *Handler) DeleteTextureSet(c *gin.Context) {
	handle(c, h.deleteTextureSet)
}

func (h *Handler) DeleteTexture(c *gin.Context) {
	handle(c, h.deleteTexture)
}

func (h *Handler) GetTextureSetThumbnail(c *gin.Context) {
	handle(c, h.getTextureSetThumbnail)
}

func (h *Handler) GetTextureSetThumbnailFile(c *gin.Context) {
	setId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	thumb, err := requireReadyThumbnail(
		h.dbClient.GetThumbnail(c.Request.Context(), dbclient.OwnerTextureSet, setId))
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	h.serveThumbnail(c, thumb)
}

func (h *Handler) createTextureSet(c *gin.Context) (interface{}, error) {
	req := &CreateTextureSetRequest{}
	if _, err := getBodyFromRequest(c.Request, req); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, commonerrors.NewBadRequest("the name is required")
	}
	uvScale := req.UVScale
	if uvScale <= 0 {
		uvScale = 1
	}
	set := &dbclient.TextureSet{Name: req.Name, UVScale: uvScale}
	if err := h.dbClient.CreateTextureSet(c.Request.Context(), set); err != nil {
		return nil, err
	}
	c.Status(http.StatusCreated)
	return set, nil
}

func (h *Handler) listTextureSets(c *gin.Context) (interface{}, error) {
	page, err := apiutils.ParseIntQuery(c, "page", 1)
	if err != nil {
		return nil, err
	}
	pageSize, err := apiutils.ParseIntQuery(c, "pageSize", 20)
	if err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}
	sets, total, err := h.dbClient.ListTextureSets(c.Request.Context(), page, pageSize)
	if err != nil {
		return nil, err
	}
	return &ListTextureSetsResponse{TotalCount: total, Items: sets}, nil
}

func (h *Handler) getTextureSet(c *gin.Context) (interface{}, error) {
	setId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	return h.dbClient.GetTextureSet(c.Request.Context(), setId)
}

func (h *Handler) patchTextureSet(c *gin.Context) (interface{}, error) {
	setId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	req := &PatchTextureSetRequest{}
	if _, err = getBodyFromRequest(c.Request, req); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, commonerrors.NewBadRequest("the name must not be empty")
		}
		fields["name"] = *req.Name
	}
	if req.UVScale != nil {
		if *req.UVScale <= 0 {
			return nil, commonerrors.NewBadRequest("the uvScale must be positive")
		}
		fields["uv_scale"] = *req.UVScale
	}
	if len(fields) == 0 {
		return nil, commonerrors.NewBadRequest("nothing to update")
	}
	if err = h.dbClient.UpdateTextureSet(c.Request.Context(), setId, fields); err != nil {
		return nil, err
	}
	return h.dbClient.GetTextureSet(c.Request.Context(), setId)
}

func (h *Handler) deleteTextureSet(c *gin.Context) (interface{}, error) {
	setId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	if err = h.dbClient.SetTextureSetDeleted(c.Request.Context(), setId, true); err != nil {
		return nil, err
	}
	return gin.H{"id": setId}, nil
}

func (h *Handler) deleteTexture(c *gin.Context) (interface{}, error) {
	textureId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	if err = h.dbClient.SetTextureDeleted(c.Request.Context(), textureId, true); err != nil {
		return nil, err
	}
	return gin.H{"id": textureId}, nil
}

func (h *Handler) getTextureSetThumbnail(c *gin.Context) (interface{}, error) {
	setId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	return h.getOwnerThumbnail(c, dbclient.OwnerTextureSet, setId)
}
