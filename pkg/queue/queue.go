/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package queue

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	commonconfig "github.com/meshstash/meshstash/pkg/config"
	"github.com/meshstash/meshstash/pkg/database/client"
	dbutils "github.com/meshstash/meshstash/pkg/database/utils"
)

// Store is the durable state the queue runs on, implemented by the database
// client.
type Store interface {
	InsertJob(ctx context.Context, job *client.Job) (*client.Job, bool, error)
	LeaseJob(ctx context.Context, workerId string, kinds []string, leaseDuration time.Duration) (*client.Job, error)
	RenewLease(ctx context.Context, jobId int64, workerId string, extra time.Duration) error
	CompleteJob(ctx context.Context, jobId int64, workerId string, result []byte) (*client.Job, error)
	FailJob(ctx context.Context, jobId int64, workerId, errMessage string) (*client.Job, error)
	ReclaimExpiredJobs(ctx context.Context, now time.Time) ([]*client.Job, error)
	GetJob(ctx context.Context, jobId int64) (*client.Job, error)
	InsertJobEvent(ctx context.Context, event *client.JobEvent) error
	SelectJobEvents(ctx context.Context, jobId int64) ([]*client.JobEvent, error)
	PurgeJobEvents(ctx context.Context, olderThan time.Time) (int64, error)
	CountActiveJobs(ctx context.Context) (int, error)
}

// Notifier publishes queue-scoped lifecycle transitions, implemented by the
// push hub. All methods are advisory.
type Notifier interface {
	JobAdded(jobId int64, kind string)
	JobCompleted(jobId int64)
	JobFailed(jobId int64, reason string)
}

// Alerter is notified when a job reaches FAILED at the attempt cap.
type Alerter interface {
	OnJobFailed(job *client.Job)
}

// Service is the durable job queue: enqueue with dedup, lease-based dispatch,
// owner-checked terminal transitions, and a background reclaim sweeper.
type Service struct {
	store    Store
	notifier Notifier
	alerter  Alerter

	maxAttempts   int
	leaseDuration time.Duration
	highWaterMark int

	// completionHook fires after Complete succeeds; it writes derived state
	// (thumbnail rows) and pushes entity-scoped notifications. failureHook
	// fires when a job terminates as FAILED.
	completionHook func(ctx context.Context, job *client.Job)
	failureHook    func(ctx context.Context, job *client.Job)
}

func NewService(store Store, notifier Notifier, alerter Alerter) *Service {
	return &Service{
		store:         store,
		notifier:      notifier,
		alerter:       alerter,
		maxAttempts:   commonconfig.GetQueueMaxAttempts(),
		leaseDuration: commonconfig.GetQueueLeaseDuration(),
		highWaterMark: commonconfig.GetQueueHighWaterMark(),
	}
}

// SetCompletionHook installs the completion side effect. Call before serving.
func (s *Service) SetCompletionHook(hook func(ctx context.Context, job *client.Job)) {
	s.completionHook = hook
}

// SetFailureHook installs the terminal-failure side effect. Call before
// serving.
func (s *Service) SetFailureHook(hook func(ctx context.Context, job *client.Job)) {
	s.failureHook = hook
}

// Enqueue appends a job unless an equivalent non-terminal one exists. New jobs
// get an ENQUEUED event and a JobAdded notification; notifications are
// coalesced once the queue passes the high-water mark.
func (s *Service) Enqueue(ctx context.Context, kind string, targetId int64, blobHash string,
	payload []byte, maxAttempts int) (*client.Job, bool, error) {
	if maxAttempts <= 0 {
		maxAttempts = s.maxAttempts
	}
	job := &client.Job{
		Kind:        kind,
		TargetId:    targetId,
		BlobHash:    blobHash,
		Status:      client.JobPending,
		MaxAttempts: maxAttempts,
		Payload:     payload,
	}
	job, deduplicated, err := s.store.InsertJob(ctx, job)
	if err != nil {
		return nil, false, err
	}
	if deduplicated {
		return job, true, nil
	}
	s.appendEvent(ctx, job.Id, client.EventEnqueued, "", nil)
	if s.notifier != nil && !s.aboveHighWaterMark(ctx) {
		s.notifier.JobAdded(job.Id, job.Kind)
	}
	return job, false, nil
}

// Lease claims the oldest eligible job for the worker, or returns nil.
func (s *Service) Lease(ctx context.Context, workerId string, kinds []string,
	leaseDuration time.Duration) (*client.Job, error) {
	if leaseDuration <= 0 {
		leaseDuration = s.leaseDuration
	}
	job, err := s.store.LeaseJob(ctx, workerId, kinds, leaseDuration)
	if err != nil || job == nil {
		return job, err
	}
	s.appendEvent(ctx, job.Id, client.EventLeased, workerId, nil)
	return job, nil
}

// Renew extends the worker's lease.
func (s *Service) Renew(ctx context.Context, jobId int64, workerId string, extra time.Duration) error {
	if extra <= 0 {
		extra = s.leaseDuration
	}
	return s.store.RenewLease(ctx, jobId, workerId, extra)
}

// Complete transitions the leased job to DONE and notifies subscribers.
func (s *Service) Complete(ctx context.Context, jobId int64, workerId string, result []byte) (*client.Job, error) {
	job, err := s.store.CompleteJob(ctx, jobId, workerId, result)
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, job.Id, client.EventCompleted, "", result)
	if s.completionHook != nil {
		s.completionHook(ctx, job)
	}
	if s.notifier != nil {
		s.notifier.JobCompleted(job.Id)
	}
	return job, nil
}

// Fail records a failure. Under the attempt cap the job re-enters the FIFO;
// at the cap it terminates as FAILED, which notifies subscribers and the
// alert channel.
func (s *Service) Fail(ctx context.Context, jobId int64, workerId, message string) (*client.Job, error) {
	job, err := s.store.FailJob(ctx, jobId, workerId, message)
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, job.Id, client.EventFailed, message, nil)
	if job.Status == client.JobFailed {
		if s.failureHook != nil {
			s.failureHook(ctx, job)
		}
		if s.notifier != nil {
			s.notifier.JobFailed(job.Id, message)
		}
		if s.alerter != nil {
			s.alerter.OnJobFailed(job)
		}
	}
	return job, nil
}

// Progress appends a PROGRESS event with a processor-defined subkind.
func (s *Service) Progress(ctx context.Context, jobId int64, subkind string, payload []byte) error {
	event := &client.JobEvent{
		JobId:   jobId,
		Kind:    client.EventProgress,
		Message: dbutils.NullString(subkind),
		Payload: payload,
	}
	return s.store.InsertJobEvent(ctx, event)
}

// Get retrieves a job by id.
func (s *Service) Get(ctx context.Context, jobId int64) (*client.Job, error) {
	return s.store.GetJob(ctx, jobId)
}

// Events returns the append-ordered event log of a job.
func (s *Service) Events(ctx context.Context, jobId int64) ([]*client.JobEvent, error) {
	return s.store.SelectJobEvents(ctx, jobId)
}

func (s *Service) appendEvent(ctx context.Context, jobId int64, kind, message string, payload []byte) {
	event := &client.JobEvent{
		JobId:   jobId,
		Kind:    kind,
		Message: dbutils.NullString(message),
		Payload: payload,
	}
	if err := s.store.InsertJobEvent(ctx, event); err != nil {
		klog.Warningf("failed to append job event, job: %d, kind: %s, err: %v", jobId, kind, err)
	}
}

func (s *Service) aboveHighWaterMark(ctx context.Context) bool {
	if s.highWaterMark <= 0 {
		return false
	}
	n, err := s.store.CountActiveJobs(ctx)
	if err != nil {
		return false
	}
	return n > s.highWaterMark
}
