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
	"github.com/meshstash/meshstash/pkg/utils/channel"
)

// Sweeper reclaims expired leases and ages out events of terminal jobs.
// One sweeper runs per queue.
type Sweeper struct {
	service  *Service
	interval time.Duration
	// retention bounds the event log of terminal jobs; zero disables purging.
	retention time.Duration
	tomb      *channel.Tomb
}

func NewSweeper(service *Service) *Sweeper {
	return &Sweeper{
		service:   service,
		interval:  commonconfig.GetQueueReclaimInterval(),
		retention: commonconfig.GetQueueEventRetention(),
		tomb:      channel.NewTomb(),
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start() {
	go s.run()
	klog.Infof("queue sweeper started, interval: %v, event retention: %v", s.interval, s.retention)
}

// Stop blocks until the loop has exited.
func (s *Sweeper) Stop() {
	s.tomb.Stop()
}

func (s *Sweeper) run() {
	defer s.tomb.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.tomb.Stopping():
			return
		case <-ticker.C:
			s.sweep(context.Background())
		}
	}
}

// sweep performs one reclaim pass followed by the event TTL purge.
func (s *Sweeper) sweep(ctx context.Context) {
	reclaimed, err := s.service.store.ReclaimExpiredJobs(ctx, time.Now())
	if err != nil {
		klog.ErrorS(err, "failed to reclaim expired jobs")
	}
	for _, job := range reclaimed {
		s.service.appendEvent(ctx, job.Id, client.EventExpiredReclaimed, "lease expired", nil)
		if job.Status == client.JobFailed {
			klog.Warningf("job %d exhausted its attempts after lease expiry", job.Id)
			// Terminal failure via reclaim carries the same side effects as a
			// reported failure, or the owner's derived row stays PROCESSING.
			if s.service.failureHook != nil {
				s.service.failureHook(ctx, job)
			}
			if s.service.notifier != nil {
				s.service.notifier.JobFailed(job.Id, "lease expired")
			}
			if s.service.alerter != nil {
				s.service.alerter.OnJobFailed(job)
			}
		}
	}
	if len(reclaimed) > 0 {
		klog.Infof("reclaimed %d expired leases", len(reclaimed))
	}

	if s.retention > 0 {
		n, err := s.service.store.PurgeJobEvents(ctx, time.Now().Add(-s.retention))
		if err != nil {
			klog.ErrorS(err, "failed to purge job events")
		} else if n > 0 {
			klog.Infof("purged %d expired job events", n)
		}
	}
}
