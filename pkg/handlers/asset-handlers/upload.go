/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package asset_handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/meshstash/meshstash/pkg/blob"
	commonconfig "github.com/meshstash/meshstash/pkg/config"
	dbclient "github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	apiutils "github.com/meshstash/meshstash/pkg/handlers/apiutils"
	"github.com/meshstash/meshstash/pkg/upload"
)

func (h *Handler) UploadFile(c *gin.Context) {
	handle(c, h.uploadFile)
}

func (h *Handler) DownloadFile(c *gin.Context) {
	hash := c.Param(ParamHash)
	if !blob.IsValidHash(hash) {
		apiutils.AbortWithApiError(c, commonerrors.NewBadRequest(fmt.Sprintf("%q is not a blob hash", hash)))
		return
	}
	record, err := h.dbClient.GetBlob(c.Request.Context(), hash)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	reader, err := h.store.Get(c.Request.Context(), hash)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	defer reader.Close()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.FileNameHint))
	c.Header("ETag", `"`+hash+`"`)
	c.DataFromReader(http.StatusOK, record.SizeBytes, record.MimeHint, reader, nil)
}

func (h *Handler) GetBatch(c *gin.Context) {
	handle(c, h.getBatch)
}

// CreateBatch mints a batch tag. Clients pass it as batchTag on subsequent
// uploads so the whole import can be inspected as one unit.
func (h *Handler) CreateBatch(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		c.Status(http.StatusCreated)
		return gin.H{"batchTag": uuid.NewString()}, nil
	})
}

// UploadModel ingests a model file from a multipart form (field "file") and
// creates a model around it. Replayed bytes resolve to the existing model.
func (h *Handler) UploadModel(c *gin.Context) {
	handle(c, h.uploadModel)
}

func (h *Handler) uploadModel(c *gin.Context) (interface{}, error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return nil, commonerrors.NewBadRequest("the multipart field \"file\" is required")
	}
	defer file.Close()

	maxBytes := commonconfig.GetUploadMaxBytes()
	if header.Size > maxBytes {
		return nil, commonerrors.NewRequestEntityTooLargeError(
			fmt.Sprintf("the upload limit is %d bytes", maxBytes))
	}

	result, err := h.uploads.UploadBlob(c.Request.Context(), header.Filename, dbclient.BlobKindModel,
		file, upload.EntitySpec{Target: upload.TargetNewModel, BatchTag: c.Query("batchTag")})
	if err != nil {
		klog.ErrorS(err, "model upload failed", "fileName", header.Filename)
		return nil, err
	}
	if result.IsNewEntity {
		c.Status(http.StatusCreated)
	}
	return &UploadResponse{
		EntityId:     result.EntityId,
		VersionId:    result.VersionId,
		BlobHash:     result.BlobHash,
		Deduplicated: result.Deduplicated,
		IsNewEntity:  result.IsNewEntity,
	}, nil
}

// uploadFile streams the raw request body into the blob store and attaches
// it per the query parameters. The request body is the file content.
func (h *Handler) uploadFile(c *gin.Context) (interface{}, error) {
	fileName := c.Query("fileName")
	if fileName == "" {
		return nil, commonerrors.NewBadRequest("the fileName query parameter is required")
	}
	kind := c.Query("kind")
	if kind == "" {
		return nil, commonerrors.NewBadRequest("the kind query parameter is required")
	}
	spec, err := parseEntitySpec(c)
	if err != nil {
		return nil, err
	}

	maxBytes := commonconfig.GetUploadMaxBytes()
	if c.Request.ContentLength > maxBytes {
		return nil, commonerrors.NewRequestEntityTooLargeError(
			fmt.Sprintf("the upload limit is %d bytes", maxBytes))
	}
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	defer body.Close()

	result, err := h.uploads.UploadBlob(c.Request.Context(), fileName, kind, body, spec)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, commonerrors.NewRequestEntityTooLargeError(
				fmt.Sprintf("the upload limit is %d bytes", maxBytes))
		}
		klog.ErrorS(err, "upload failed", "fileName", fileName, "target", spec.Target)
		return nil, err
	}
	if result.IsNewEntity {
		c.Status(http.StatusCreated)
	}
	return &UploadResponse{
		EntityId:     result.EntityId,
		VersionId:    result.VersionId,
		BlobHash:     result.BlobHash,
		Deduplicated: result.Deduplicated,
		IsNewEntity:  result.IsNewEntity,
	}, nil
}

func (h *Handler) getBatch(c *gin.Context) (interface{}, error) {
	tag := c.Param(ParamTag)
	if tag == "" {
		return nil, commonerrors.NewBadRequest("the batch tag is empty")
	}
	records, err := h.dbClient.SelectBatchUploads(c.Request.Context(), tag)
	if err != nil {
		return nil, err
	}
	rsp := &BatchResponse{BatchTag: tag}
	for _, record := range records {
		rsp.Items = append(rsp.Items, cvtToBatchUploadView(record))
	}
	return rsp, nil
}

func parseEntitySpec(c *gin.Context) (upload.EntitySpec, error) {
	spec := upload.EntitySpec{
		Target:   c.Query("target"),
		Role:     c.Query("role"),
		BatchTag: c.Query("batchTag"),
	}
	if spec.Target == "" {
		return spec, commonerrors.NewBadRequest("the target query parameter is required")
	}
	for name, dst := range map[string]*int64{
		"modelId":      &spec.ModelId,
		"versionId":    &spec.VersionId,
		"textureSetId": &spec.TextureSetId,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return spec, commonerrors.NewBadRequest(fmt.Sprintf("the %s %q is not a valid id", name, raw))
		}
		*dst = v
	}
	return spec, nil
}
