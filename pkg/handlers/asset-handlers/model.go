/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package asset_handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	dbclient "github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	apiutils "github.com/meshstash/meshstash/pkg/handlers/apiutils"
)

const thumbnailCacheControl = "public, max-age=86400"

func (h *Handler) ListModels(c *gin.Context) {
	handle(c, h.listModels)
}

func (h *Handler) GetModel(c *gin.Context) {
	handle(c, h.getModel)
}

func (h *Handler) PatchModel(c *gin.Context) {
	handle(c, h.patchModel)
}

func (h *Handler) DeleteModel(c *gin.Context) {
	handle(c, h.deleteModel)
}

func (h *Handler) CreateModelVersion(c *gin.Context) {
	handle(c, h.createModelVersion)
}

func (h *Handler) SetActiveVersion(c *gin.Context) {
	handle(c, h.setActiveVersion)
}

func (h *Handler) SetDefaultTextureSet(c *gin.Context) {
	handle(c, h.setDefaultTextureSet)
}

func (h *Handler) GetModelThumbnail(c *gin.Context) {
	handle(c, h.getModelThumbnail)
}

func (h *Handler) RegenerateThumbnail(c *gin.Context) {
	handle(c, h.regenerateThumbnail)
}

func (h *Handler) DeleteVersion(c *gin.Context) {
	handle(c, h.deleteVersion)
}

func (h *Handler) DeleteVersionFile(c *gin.Context) {
	handle(c, h.deleteVersionFile)
}

func (h *Handler) AssociateTextureSet(c *gin.Context) {
	handle(c, h.associateTextureSet)
}

func (h *Handler) DissociateTextureSet(c *gin.Context) {
	handle(c, h.dissociateTextureSet)
}

func (h *Handler) listModels(c *gin.Context) (interface{}, error) {
	opts := dbclient.ListModelsOptions{}
	var err error
	if opts.Page, opts.PageSize, err = parsePage(c); err != nil {
		return nil, err
	}
	for name, dst := range map[string]*int64{
		"packId":       &opts.PackId,
		"projectId":    &opts.ProjectId,
		"textureSetId": &opts.TextureSetId,
	} {
		v, err := apiutils.ParseIntQuery(c, name, 0)
		if err != nil {
			return nil, err
		}
		*dst = int64(v)
	}
	models, total, err := h.assets.ListModels(c.Request.Context(), opts)
	if err != nil {
		return nil, err
	}
	return &ListModelsResponse{
		TotalCount: total,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalPages: totalPages(total, opts.PageSize),
		Items:      models,
	}, nil
}

func (h *Handler) getModel(c *gin.Context) (interface{}, error) {
	modelId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	return h.assets.GetModel(c.Request.Context(), modelId)
}

func (h *Handler) patchModel(c *gin.Context) (interface{}, error) {
	modelId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	req := &PatchModelRequest{}
	if _, err = getBodyFromRequest(c.Request, req); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if req.DisplayName != nil {
		if *req.DisplayName == "" {
			return nil, commonerrors.NewBadRequest("the displayName must not be empty")
		}
		fields["display_name"] = *req.DisplayName
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Tags != nil {
		fields["tags"] = *req.Tags
	}
	if len(fields) == 0 {
		return nil, commonerrors.NewBadRequest("nothing to update")
	}
	if err = h.dbClient.UpdateModelMetadata(c.Request.Context(), modelId, fields); err != nil {
		return nil, err
	}
	return h.assets.GetModel(c.Request.Context(), modelId)
}

func (h *Handler) deleteModel(c *gin.Context) (interface{}, error) {
	modelId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	if err = h.assets.DeleteModel(c.Request.Context(), modelId); err != nil {
		return nil, err
	}
	klog.Infof("model %d moved to recycle bin", modelId)
	return gin.H{"id": modelId}, nil
}

func (h *Handler) createModelVersion(c *gin.Context) (interface{}, error) {
	modelId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	req := &CreateVersionRequest{}
	if _, err = getBodyFromRequest(c.Request, req); err != nil {
		return nil, err
	}
	version, err := h.assets.NewVersion(c.Request.Context(), modelId, req.Description)
	if err != nil {
		return nil, err
	}
	c.Status(http.StatusCreated)
	return version, nil
}

func (h *Handler) setActiveVersion(c *gin.Context) (interface{}, error) {
	modelId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	req := &SetActiveVersionRequest{}
	if _, err = getBodyFromRequest(c.Request, req); err != nil {
		return nil, err
	}
	if req.VersionId <= 0 {
		return nil, commonerrors.NewBadRequest("the versionId is required")
	}
	if err = h.assets.SetActiveVersion(c.Request.Context(), modelId, req.VersionId); err != nil {
		return nil, err
	}
	return gin.H{"modelId": modelId, "versionId": req.VersionId}, nil
}

func (h *Handler) setDefaultTextureSet(c *gin.Context) (interface{}, error) {
	modelId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	req := &SetDefaultTextureSetRequest{}
	if _, err = getBodyFromRequest(c.Request, req); err != nil {
		return nil, err
	}
	if err = h.assets.SetDefaultTextureSet(c.Request.Context(), modelId, req.TextureSetId); err != nil {
		return nil, err
	}
	return gin.H{"modelId": modelId}, nil
}

func (h *Handler) getModelThumbnail(c *gin.Context) (interface{}, error) {
	modelId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	thumb, err := h.assets.GetModelThumbnail(c.Request.Context(), modelId)
	if err != nil {
		return nil, err
	}
	return thumb, nil
}

// GetModelThumbnailFile streams the rendered image with long-lived caching:
// the content is keyed by its hash, so the ETag is exact.
func (h *Handler) GetModelThumbnailFile(c *gin.Context) {
	modelId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	thumb, err := h.assets.OpenThumbnailFile(c.Request.Context(), modelId)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	h.serveThumbnail(c, thumb)
}

func (h *Handler) serveThumbnail(c *gin.Context, thumb *dbclient.Thumbnail) {
	etag := `"` + thumb.OutputBlobHash + `"`
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	reader, err := h.store.Get(c.Request.Context(), thumb.OutputBlobHash)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	defer reader.Close()
	c.Header("Cache-Control", thumbnailCacheControl)
	c.Header("ETag", etag)
	c.DataFromReader(http.StatusOK, thumb.SizeBytes, "image/png", reader, nil)
}

func (h *Handler) regenerateThumbnail(c *gin.Context) (interface{}, error) {
	modelId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	job, deduplicated, err := h.assets.RegenerateThumbnail(c.Request.Context(), modelId)
	if err != nil {
		return nil, err
	}
	return &RegenerateResponse{JobId: job.Id, Deduplicated: deduplicated}, nil
}

func (h *Handler) deleteVersion(c *gin.Context) (interface{}, error) {
	versionId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	if err = h.dbClient.SetVersionDeleted(c.Request.Context(), versionId, true); err != nil {
		return nil, err
	}
	return gin.H{"id": versionId}, nil
}

func (h *Handler) deleteVersionFile(c *gin.Context) (interface{}, error) {
	fileId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	if err = h.dbClient.SetVersionFileDeleted(c.Request.Context(), fileId, true); err != nil {
		return nil, err
	}
	return gin.H{"id": fileId}, nil
}

func (h *Handler) associateTextureSet(c *gin.Context) (interface{}, error) {
	versionId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	setId, err := apiutils.ParseIdParam(c, ParamSetId)
	if err != nil {
		return nil, err
	}
	if err = h.dbClient.AssociateTextureSet(c.Request.Context(), versionId, setId); err != nil {
		return nil, err
	}
	return gin.H{"versionId": versionId, "textureSetId": setId}, nil
}

func (h *Handler) dissociateTextureSet(c *gin.Context) (interface{}, error) {
	versionId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	setId, err := apiutils.ParseIdParam(c, ParamSetId)
	if err != nil {
		return nil, err
	}
	if err = h.dbClient.DissociateTextureSet(c.Request.Context(), versionId, setId); err != nil {
		return nil, err
	}
	return gin.H{"versionId": versionId, "textureSetId": setId}, nil
}

func (h *Handler) getOwnerThumbnail(c *gin.Context, ownerKind string, ownerId int64) (interface{}, error) {
	thumb, err := h.dbClient.GetThumbnail(c.Request.Context(), ownerKind, ownerId)
	if commonerrors.IsNotFound(err) {
		return &dbclient.Thumbnail{
			OwnerKind: ownerKind,
			OwnerId:   ownerId,
			Status:    dbclient.ThumbnailPending,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return thumb, nil
}

func requireReadyThumbnail(thumb *dbclient.Thumbnail, err error) (*dbclient.Thumbnail, error) {
	if err != nil {
		return nil, err
	}
	if thumb.Status != dbclient.ThumbnailReady || thumb.OutputBlobHash == "" {
		return nil, commonerrors.NewNotFoundWithMessage(
			fmt.Sprintf("%s %d has no ready derived image", thumb.OwnerKind, thumb.OwnerId))
	}
	return thumb, nil
}
