/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package job_handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/meshstash/meshstash/pkg/assets"
	"github.com/meshstash/meshstash/pkg/blob"
	commonconfig "github.com/meshstash/meshstash/pkg/config"
	dbclient "github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	apiutils "github.com/meshstash/meshstash/pkg/handlers/apiutils"
	"github.com/meshstash/meshstash/pkg/queue"
)

// ParamId is the job id path parameter, ParamHash the blob hash.
const (
	ParamId   = "id"
	ParamHash = "hash"
)

// maxLeaseSeconds caps the client-requested lease duration. Zero or absent
// means the server default.
const maxLeaseSeconds = 3600

type leaseRequest struct {
	WorkerId      string   `json:"workerId"`
	AcceptedKinds []string `json:"acceptedKinds"`
	LeaseSeconds  int      `json:"leaseSeconds,omitempty"`
}

type renewRequest struct {
	WorkerId string `json:"workerId"`
}

type completeRequest struct {
	WorkerId string          `json:"workerId"`
	Result   json.RawMessage `json:"result,omitempty"`
}

type failRequest struct {
	WorkerId string `json:"workerId"`
	Error    string `json:"error"`
}

type progressRequest struct {
	WorkerId string          `json:"workerId"`
	Subkind  string          `json:"subkind"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type storeBlobResponse struct {
	Hash      string `json:"hash"`
	SizeBytes int64  `json:"sizeBytes"`
}

// LeaseJob claims the next eligible job for the calling worker. An empty
// queue answers 204 so pollers can tell "nothing to do" from an error.
func (h *Handler) LeaseJob(c *gin.Context) {
	req := &leaseRequest{}
	if _, err := getBodyFromRequest(c.Request, req); err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if req.WorkerId == "" {
		apiutils.AbortWithApiError(c, commonerrors.NewBadRequest("the workerId is required"))
		return
	}
	if len(req.AcceptedKinds) == 0 {
		apiutils.AbortWithApiError(c, commonerrors.NewBadRequest("the acceptedKinds list is empty"))
		return
	}
	leaseSeconds := req.LeaseSeconds
	if leaseSeconds < 0 {
		leaseSeconds = 0
	}
	if leaseSeconds > maxLeaseSeconds {
		leaseSeconds = maxLeaseSeconds
	}
	job, err := h.queue.Lease(c.Request.Context(), req.WorkerId, req.AcceptedKinds,
		time.Duration(leaseSeconds)*time.Second)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	if job == nil {
		c.Status(http.StatusNoContent)
		return
	}
	h.markProcessing(c, job)
	c.JSON(http.StatusOK, queue.NewJobView(job))
}

// markProcessing flips the owner's derived-image status the moment the job
// leaves the queue, so the UI can show a spinner before any progress event.
func (h *Handler) markProcessing(c *gin.Context, job *dbclient.Job) {
	ownerKind, ok := assets.OwnerOfJobKind(job.Kind)
	if !ok {
		return
	}
	if err := h.dbClient.SetThumbnailProcessing(c.Request.Context(), ownerKind, job.TargetId); err != nil {
		klog.Warningf("failed to mark %s %d processing, job: %d, err: %v",
			ownerKind, job.TargetId, job.Id, err)
	}
}

func (h *Handler) RenewJob(c *gin.Context) {
	handle(c, h.renewJob)
}

func (h *Handler) CompleteJob(c *gin.Context) {
	handle(c, h.completeJob)
}

func (h *Handler) FailJob(c *gin.Context) {
	handle(c, h.failJob)
}

func (h *Handler) ReportProgress(c *gin.Context) {
	handle(c, h.reportProgress)
}

func (h *Handler) renewJob(c *gin.Context) (interface{}, error) {
	jobId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	req := &renewRequest{}
	if _, err = getBodyFromRequest(c.Request, req); err != nil {
		return nil, err
	}
	if req.WorkerId == "" {
		return nil, commonerrors.NewBadRequest("the workerId is required")
	}
	if err = h.queue.Renew(c.Request.Context(), jobId, req.WorkerId, 0); err != nil {
		return nil, err
	}
	return gin.H{"jobId": jobId}, nil
}

func (h *Handler) completeJob(c *gin.Context) (interface{}, error) {
	jobId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	req := &completeRequest{}
	if _, err = getBodyFromRequest(c.Request, req); err != nil {
		return nil, err
	}
	if req.WorkerId == "" {
		return nil, commonerrors.NewBadRequest("the workerId is required")
	}
	job, err := h.queue.Complete(c.Request.Context(), jobId, req.WorkerId, req.Result)
	if err != nil {
		return nil, err
	}
	return queue.NewJobView(job), nil
}

func (h *Handler) failJob(c *gin.Context) (interface{}, error) {
	jobId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	req := &failRequest{}
	if _, err = getBodyFromRequest(c.Request, req); err != nil {
		return nil, err
	}
	if req.WorkerId == "" {
		return nil, commonerrors.NewBadRequest("the workerId is required")
	}
	job, err := h.queue.Fail(c.Request.Context(), jobId, req.WorkerId, req.Error)
	if err != nil {
		return nil, err
	}
	return queue.NewJobView(job), nil
}

func (h *Handler) reportProgress(c *gin.Context) (interface{}, error) {
	jobId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	req := &progressRequest{}
	if _, err = getBodyFromRequest(c.Request, req); err != nil {
		return nil, err
	}
	if req.WorkerId == "" {
		return nil, commonerrors.NewBadRequest("the workerId is required")
	}
	job, err := h.queue.Get(c.Request.Context(), jobId)
	if err != nil {
		return nil, err
	}
	if job.Status != dbclient.JobLeased || job.LeaseOwner.String != req.WorkerId {
		return nil, commonerrors.NewLeaseLost(
			fmt.Sprintf("job %d is not leased by %s", jobId, req.WorkerId))
	}
	if err = h.queue.Progress(c.Request.Context(), jobId, req.Subkind, req.Payload); err != nil {
		return nil, err
	}
	return gin.H{"jobId": jobId}, nil
}

// FetchBlob streams blob content to a worker.
func (h *Handler) FetchBlob(c *gin.Context) {
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
	c.DataFromReader(http.StatusOK, record.SizeBytes, "application/octet-stream", reader, nil)
}

// StoreBlob ingests a derived artifact produced by a worker. The body is the
// raw bytes; the fileName query names the artifact for the mime hint.
func (h *Handler) StoreBlob(c *gin.Context) {
	handle(c, h.storeBlob)
}

func (h *Handler) storeBlob(c *gin.Context) (interface{}, error) {
	fileName := c.Query("fileName")
	if fileName == "" {
		return nil, commonerrors.NewBadRequest("the fileName query parameter is required")
	}
	maxBytes := commonconfig.GetThumbnailMaxBytes()
	if c.Request.ContentLength > maxBytes {
		return nil, commonerrors.NewRequestEntityTooLargeError(
			fmt.Sprintf("the derived artifact limit is %d bytes", maxBytes))
	}
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	defer body.Close()

	hash, written, _, err := h.store.Put(c.Request.Context(), body)
	if err != nil {
		return nil, err
	}
	if _, err = h.dbClient.UpsertBlob(c.Request.Context(), &dbclient.Blob{
		Hash:         hash,
		SizeBytes:    written,
		MimeHint:     "image/png",
		FileNameHint: filepath.Base(fileName),
		Kind:         dbclient.BlobKindImage,
	}); err != nil {
		return nil, err
	}
	return &storeBlobResponse{Hash: hash, SizeBytes: written}, nil
}
