/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package asset_handlers

import (
	"github.com/gin-gonic/gin"

	dbclient "github.com/meshstash/meshstash/pkg/database/client"
	apiutils "github.com/meshstash/meshstash/pkg/handlers/apiutils"
)

func (h *Handler) ListSounds(c *gin.Context) {
	handle(c, h.listSounds)
}

func (h *Handler) GetSound(c *gin.Context) {
	handle(c, h.getSound)
}

func (h *Handler) DeleteSound(c *gin.Context) {
	handle(c, h.deleteSound)
}

func (h *Handler) GetSoundWaveform(c *gin.Context) {
	handle(c, h.getSoundWaveform)
}

// GetSoundWaveformFile streams the rendered waveform strip.
func (h *Handler) GetSoundWaveformFile(c *gin.Context) {
	soundId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	thumb, err := requireReadyThumbnail(
		h.dbClient.GetThumbnail(c.Request.Context(), dbclient.OwnerSound, soundId))
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	h.serveThumbnail(c, thumb)
}

func (h *Handler) ListSprites(c *gin.Context) {
	handle(c, h.listSprites)
}

func (h *Handler) GetSprite(c *gin.Context) {
	handle(c, h.getSprite)
}

func (h *Handler) DeleteSprite(c *gin.Context) {
	handle(c, h.deleteSprite)
}

func (h *Handler) listSounds(c *gin.Context) (interface{}, error) {
	page, pageSize, err := parsePage(c)
	if err != nil {
		return nil, err
	}
	sounds, total, err := h.dbClient.ListSounds(c.Request.Context(), page, pageSize)
	if err != nil {
		return nil, err
	}
	return &ListSoundsResponse{TotalCount: total, Items: sounds}, nil
}

func (h *Handler) getSound(c *gin.Context) (interface{}, error) {
	soundId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	return h.dbClient.GetSound(c.Request.Context(), soundId)
}

func (h *Handler) deleteSound(c *gin.Context) (interface{}, error) {
	soundId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	if err = h.dbClient.SetSoundDeleted(c.Request.Context(), soundId, true); err != nil {
		return nil, err
	}
	return gin.H{"id": soundId}, nil
}

func (h *Handler) getSoundWaveform(c *gin.Context) (interface{}, error) {
	soundId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	return h.getOwnerThumbnail(c, dbclient.OwnerSound, soundId)
}

func (h *Handler) listSprites(c *gin.Context) (interface{}, error) {
	page, pageSize, err := parsePage(c)
	if err != nil {
		return nil, err
	}
	sprites, total, err := h.dbClient.ListSprites(c.Request.Context(), page, pageSize)
	if err != nil {
		return nil, err
	}
	return &ListSpritesResponse{TotalCount: total, Items: sprites}, nil
}

func (h *Handler) getSprite(c *gin.Context) (interface{}, error) {
	spriteId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	return h.dbClient.GetSprite(c.Request.Context(), spriteId)
}

func (h *Handler) deleteSprite(c *gin.Context) (interface{}, error) {
	spriteId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	if err = h.dbClient.SetSpriteDeleted(c.Request.Context(), spriteId, true); err != nil {
		return nil, err
	}
	return gin.H{"id": spriteId}, nil
}

func parsePage(c *gin.Context) (int, int, error) {
	page, err := apiutils.ParseIntQuery(c, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := apiutils.ParseIntQuery(c, "pageSize", 20)
	if err != nil {
		return 0, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}
	return page, pageSize, nil
}
