/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package worker

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	commonconfig "github.com/meshstash/meshstash/pkg/config"
	"github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	"github.com/meshstash/meshstash/pkg/utils/channel"
)

// Loop is the worker's pull loop: lease, process under a renewed lease,
// report the terminal state, back off when the queue is empty.
type Loop struct {
	queue    JobQueue
	registry *Registry

	leaseDuration time.Duration
	idleBackoff   time.Duration
	jobBudget     time.Duration

	tomb *channel.Tomb
}

func NewLoop(queue JobQueue, registry *Registry) *Loop {
	return &Loop{
		queue:         queue,
		registry:      registry,
		leaseDuration: commonconfig.GetQueueLeaseDuration(),
		idleBackoff:   commonconfig.GetQueueIdleBackoff(),
		jobBudget:     commonconfig.GetWorkerJobBudget(),
		tomb:          channel.NewTomb(),
	}
}

func (l *Loop) Start() {
	go l.run()
}

// Stop blocks until the loop parked. A job in flight finishes its terminal
// call first.
func (l *Loop) Stop() {
	l.tomb.Stop()
}

func (l *Loop) run() {
	defer l.tomb.Done()
	klog.Infof("worker loop started, kinds: %v", l.registry.AcceptedKinds())
	for {
		if l.tomb.IsStopped() {
			klog.Info("worker loop stopped")
			return
		}
		if l.runOnce(context.Background()) {
			continue
		}
		select {
		case <-l.tomb.Stopping():
			klog.Info("worker loop stopped")
			return
		case <-time.After(l.idleBackoff):
		}
	}
}

// runOnce leases and processes at most one job. False means idle.
func (l *Loop) runOnce(ctx context.Context) bool {
	job, err := l.queue.LeaseJob(ctx, l.registry.AcceptedKinds())
	if err != nil {
		klog.Warningf("failed to lease a job: %v", err)
		return false
	}
	if job == nil {
		return false
	}
	l.process(ctx, job)
	return true
}

func (l *Loop) process(parent context.Context, job *client.Job) {
	processor, ok := l.registry.Get(job.Kind)
	if !ok {
		// leased a kind this build cannot run; hand it back as a failure
		if err := l.queue.FailJob(parent, job.Id, fmt.Sprintf("no processor for kind %s", job.Kind)); err != nil {
			klog.ErrorS(err, "failed to release unprocessable job", "job", job.Id, "kind", job.Kind)
		}
		return
	}
	klog.InfoS("processing job", "job", job.Id, "kind", job.Kind, "target", job.TargetId, "attempt", job.Attempts)

	budget := l.jobBudget
	if budget <= 0 {
		budget = time.Hour
	}
	ctx, cancel := context.WithTimeout(parent, budget)
	defer cancel()

	renewStop := make(chan struct{})
	renewDone := make(chan struct{})
	go l.renewLease(ctx, job.Id, cancel, renewStop, renewDone)

	start := time.Now()
	result, err := processor.Process(ctx, job, l.queue)

	// the renewer must be parked before the terminal call so it cannot touch
	// a lease the job no longer holds
	close(renewStop)
	<-renewDone

	if err != nil {
		klog.ErrorS(err, "job processing failed", "job", job.Id, "kind", job.Kind,
			"elapsed", time.Since(start).Round(time.Millisecond))
		if failErr := l.queue.FailJob(parent, job.Id, err.Error()); failErr != nil {
			klog.ErrorS(failErr, "failed to report job failure", "job", job.Id)
		}
		return
	}
	if err = l.queue.CompleteJob(parent, job.Id, result); err != nil {
		klog.ErrorS(err, "failed to complete job", "job", job.Id)
		return
	}
	klog.InfoS("job done", "job", job.Id, "kind", job.Kind,
		"elapsed", time.Since(start).Round(time.Millisecond))
}

// renewLease extends the lease at a third of its duration until stopped. A
// lost lease cancels the processing context: another worker owns the job now
// and finishing it here would be wasted work.
func (l *Loop) renewLease(ctx context.Context, jobId int64, cancel context.CancelFunc, stop, done chan struct{}) {
	defer close(done)
	interval := l.leaseDuration / 3
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			err := l.queue.RenewJob(ctx, jobId)
			if err == nil {
				continue
			}
			if commonerrors.IsLeaseLost(err) || commonerrors.IsNotFound(err) {
				klog.Warningf("lease lost for job %d, aborting", jobId)
				cancel()
				return
			}
			klog.Warningf("failed to renew lease of job %d: %v", jobId, err)
		}
	}
}
