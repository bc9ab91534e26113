/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package asset_handlers

import (
	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"

	apiutils "github.com/meshstash/meshstash/pkg/handlers/apiutils"
	"github.com/meshstash/meshstash/pkg/queue"
)

type ListJobsResponse struct {
	TotalCount int              `json:"totalCount"`
	Items      []*queue.JobView `json:"items"`
}

func (h *Handler) ListJobs(c *gin.Context) {
	handle(c, h.listJobs)
}

func (h *Handler) GetJob(c *gin.Context) {
	handle(c, h.getJob)
}

func (h *Handler) GetJobEvents(c *gin.Context) {
	handle(c, h.getJobEvents)
}

func (h *Handler) listJobs(c *gin.Context) (interface{}, error) {
	page, pageSize, err := parsePage(c)
	if err != nil {
		return nil, err
	}
	cond := sqrl.And{}
	if status := c.Query("status"); status != "" {
		cond = append(cond, sqrl.Eq{"status": status})
	}
	if kind := c.Query("kind"); kind != "" {
		cond = append(cond, sqrl.Eq{"kind": kind})
	}
	targetId, err := apiutils.ParseIntQuery(c, "targetId", 0)
	if err != nil {
		return nil, err
	}
	if targetId > 0 {
		cond = append(cond, sqrl.Eq{"target_id": targetId})
	}

	total, err := h.dbClient.CountJobs(c.Request.Context(), cond)
	if err != nil {
		return nil, err
	}
	jobs, err := h.dbClient.SelectJobs(c.Request.Context(), cond,
		[]string{"id DESC"}, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	rsp := &ListJobsResponse{TotalCount: total}
	for _, job := range jobs {
		rsp.Items = append(rsp.Items, queue.NewJobView(job))
	}
	return rsp, nil
}

func (h *Handler) getJob(c *gin.Context) (interface{}, error) {
	jobId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	job, err := h.queue.Get(c.Request.Context(), jobId)
	if err != nil {
		return nil, err
	}
	return queue.NewJobView(job), nil
}

func (h *Handler) getJobEvents(c *gin.Context) (interface{}, error) {
	jobId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	if _, err = h.queue.Get(c.Request.Context(), jobId); err != nil {
		return nil, err
	}
	events, err := h.queue.Events(c.Request.Context(), jobId)
	if err != nil {
		return nil, err
	}
	views := make([]*queue.JobEventView, 0, len(events))
	for _, event := range events {
		views = append(views, queue.NewJobEventView(event))
	}
	return views, nil
}
