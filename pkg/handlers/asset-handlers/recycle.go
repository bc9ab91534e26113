/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package asset_handlers

import (
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	apiutils "github.com/meshstash/meshstash/pkg/handlers/apiutils"
)

const defaultSweepLimit = 1000

func (h *Handler) ListRecycled(c *gin.Context) {
	handle(c, h.listRecycled)
}

func (h *Handler) RestoreRecycled(c *gin.Context) {
	handle(c, h.restoreRecycled)
}

func (h *Handler) PurgeRecycled(c *gin.Context) {
	handle(c, h.purgeRecycled)
}

func (h *Handler) SweepBlobs(c *gin.Context) {
	handle(c, h.sweepBlobs)
}

func (h *Handler) listRecycled(c *gin.Context) (interface{}, error) {
	return h.assets.ListRecycled(c.Request.Context())
}

func (h *Handler) restoreRecycled(c *gin.Context) (interface{}, error) {
	kind := c.Param(ParamKind)
	id, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	if err = h.assets.Restore(c.Request.Context(), kind, id); err != nil {
		return nil, err
	}
	return gin.H{"kind": kind, "id": id}, nil
}

func (h *Handler) purgeRecycled(c *gin.Context) (interface{}, error) {
	kind := c.Param(ParamKind)
	id, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	if err = h.assets.Purge(c.Request.Context(), kind, id); err != nil {
		return nil, err
	}
	klog.Infof("purged %s %d from the recycle bin", kind, id)
	return gin.H{"kind": kind, "id": id}, nil
}

func (h *Handler) sweepBlobs(c *gin.Context) (interface{}, error) {
	limit, err := apiutils.ParseIntQuery(c, "limit", defaultSweepLimit)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultSweepLimit {
		limit = defaultSweepLimit
	}
	removed, err := h.assets.SweepUnreferencedBlobs(c.Request.Context(), limit)
	if err != nil {
		return nil, err
	}
	return &SweepBlobsResponse{Removed: removed}, nil
}
