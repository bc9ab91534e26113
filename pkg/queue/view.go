/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package queue

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"github.com/meshstash/meshstash/pkg/database/client"
)

// JobView is the wire form of a job, shared by the HTTP handlers and the
// worker client.
type JobView struct {
	Id          int64           `json:"id"`
	Kind        string          `json:"kind"`
	TargetId    int64           `json:"targetId"`
	BlobHash    string          `json:"blobHash"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	LeaseOwner  string          `json:"leaseOwner,omitempty"`
	LeaseExpiry *time.Time      `json:"leaseExpiry,omitempty"`
	LastError   string          `json:"lastError,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreateTime  *time.Time      `json:"createTime,omitempty"`
	UpdateTime  *time.Time      `json:"updateTime,omitempty"`
}

// JobEventView is the wire form of a job event.
type JobEventView struct {
	Id         int64           `json:"id"`
	JobId      int64           `json:"jobId"`
	Kind       string          `json:"kind"`
	Message    string          `json:"message,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreateTime *time.Time      `json:"createTime,omitempty"`
}

func NewJobView(job *client.Job) *JobView {
	view := &JobView{
		Id:          job.Id,
		Kind:        job.Kind,
		TargetId:    job.TargetId,
		BlobHash:    job.BlobHash,
		Status:      job.Status,
		Attempts:    job.Attempts,
		MaxAttempts: job.MaxAttempts,
		LeaseOwner:  job.LeaseOwner.String,
		LastError:   job.LastError.String,
		Payload:     json.RawMessage(job.Payload),
	}
	if job.Result.Valid {
		view.Result = json.RawMessage(job.Result.String)
	}
	if job.LeaseExpiry.Valid {
		t := job.LeaseExpiry.Time
		view.LeaseExpiry = &t
	}
	if job.CreateTime.Valid {
		t := job.CreateTime.Time
		view.CreateTime = &t
	}
	if job.UpdateTime.Valid {
		t := job.UpdateTime.Time
		view.UpdateTime = &t
	}
	return view
}

func NewJobEventView(event *client.JobEvent) *JobEventView {
	view := &JobEventView{
		Id:      event.Id,
		JobId:   event.JobId,
		Kind:    event.Kind,
		Message: event.Message.String,
		Payload: json.RawMessage(event.Payload),
	}
	if event.CreateTime.Valid {
		t := event.CreateTime.Time
		view.CreateTime = &t
	}
	return view
}

// ToJob rebuilds the database form on the worker side of the wire.
func (v *JobView) ToJob() *client.Job {
	job := &client.Job{
		Id:          v.Id,
		Kind:        v.Kind,
		TargetId:    v.TargetId,
		BlobHash:    v.BlobHash,
		Status:      v.Status,
		Attempts:    v.Attempts,
		MaxAttempts: v.MaxAttempts,
		Payload:     []byte(v.Payload),
	}
	if v.LeaseOwner != "" {
		job.LeaseOwner = sql.NullString{String: v.LeaseOwner, Valid: true}
	}
	if v.LastError != "" {
		job.LastError = sql.NullString{String: v.LastError, Valid: true}
	}
	if len(v.Result) > 0 {
		job.Result = sql.NullString{String: string(v.Result), Valid: true}
	}
	if v.LeaseExpiry != nil {
		job.LeaseExpiry = pq.NullTime{Time: *v.LeaseExpiry, Valid: true}
	}
	if v.CreateTime != nil {
		job.CreateTime = pq.NullTime{Time: *v.CreateTime, Valid: true}
	}
	if v.UpdateTime != nil {
		job.UpdateTime = pq.NullTime{Time: *v.UpdateTime, Valid: true}
	}
	return job
}
