/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package queue

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshstash/meshstash/pkg/database/client"
	dbutils "github.com/meshstash/meshstash/pkg/database/utils"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

// fakeStore mirrors the queue SQL semantics in memory: attempts count lease
// acquisitions, terminal transitions are owner-checked, reclaim consults the
// cap without double-counting.
type fakeStore struct {
	nextId int64
	jobs   map[int64]*client.Job
	events []*client.JobEvent
	now    time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[int64]*client.Job{}, now: time.Unix(1700000000, 0).UTC()}
}

func (f *fakeStore) InsertJob(_ context.Context, job *client.Job) (*client.Job, bool, error) {
	for _, j := range f.jobs {
		if j.Kind == job.Kind && j.TargetId == job.TargetId && j.BlobHash == job.BlobHash &&
			(j.Status == client.JobPending || j.Status == client.JobLeased) {
			return j, true, nil
		}
	}
	f.nextId++
	job.Id = f.nextId
	job.UpdateTime = dbutils.NullTime(f.now)
	f.jobs[job.Id] = job
	return job, false, nil
}

func (f *fakeStore) LeaseJob(_ context.Context, workerId string, kinds []string, d time.Duration) (*client.Job, error) {
	accepted := map[string]bool{}
	for _, k := range kinds {
		accepted[k] = true
	}
	var eligible []*client.Job
	for _, j := range f.jobs {
		expired := j.Status == client.JobLeased && j.LeaseExpiry.Valid && j.LeaseExpiry.Time.Before(f.now)
		if accepted[j.Kind] && j.Attempts < j.MaxAttempts && (j.Status == client.JobPending || expired) {
			eligible = append(eligible, j)
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}
	sort.Slice(eligible, func(i, k int) bool {
		if !eligible[i].UpdateTime.Time.Equal(eligible[k].UpdateTime.Time) {
			return eligible[i].UpdateTime.Time.Before(eligible[k].UpdateTime.Time)
		}
		return eligible[i].Id < eligible[k].Id
	})
	j := eligible[0]
	j.Status = client.JobLeased
	j.LeaseOwner = dbutils.NullString(workerId)
	j.LeaseExpiry = dbutils.NullTime(f.now.Add(d))
	j.Attempts++
	j.UpdateTime = dbutils.NullTime(f.now)
	return j, nil
}

func (f *fakeStore) owned(jobId int64, workerId string) (*client.Job, error) {
	j, ok := f.jobs[jobId]
	if !ok || j.Status != client.JobLeased || j.LeaseOwner.String != workerId {
		return nil, commonerrors.NewLeaseLost(fmt.Sprintf("job %d is not leased by %s", jobId, workerId))
	}
	return j, nil
}

func (f *fakeStore) RenewLease(_ context.Context, jobId int64, workerId string, extra time.Duration) error {
	j, err := f.owned(jobId, workerId)
	if err != nil {
		return err
	}
	j.LeaseExpiry = dbutils.NullTime(f.now.Add(extra))
	return nil
}

func (f *fakeStore) CompleteJob(_ context.Context, jobId int64, workerId string, result []byte) (*client.Job, error) {
	j, err := f.owned(jobId, workerId)
	if err != nil {
		return nil, err
	}
	j.Status = client.JobDone
	j.LeaseOwner = dbutils.NullString("")
	j.LeaseExpiry = dbutils.NullTime(time.Time{})
	j.Result = dbutils.NullString(string(result))
	j.UpdateTime = dbutils.NullTime(f.now)
	return j, nil
}

func (f *fakeStore) FailJob(_ context.Context, jobId int64, workerId, msg string) (*client.Job, error) {
	j, err := f.owned(jobId, workerId)
	if err != nil {
		return nil, err
	}
	if j.Attempts >= j.MaxAttempts {
		j.Status = client.JobFailed
	} else {
		j.Status = client.JobPending
	}
	j.LeaseOwner = dbutils.NullString("")
	j.LeaseExpiry = dbutils.NullTime(time.Time{})
	j.LastError = dbutils.NullString(msg)
	j.UpdateTime = dbutils.NullTime(f.now)
	return j, nil
}

func (f *fakeStore) ReclaimExpiredJobs(_ context.Context, now time.Time) ([]*client.Job, error) {
	var reclaimed []*client.Job
	for _, j := range f.jobs {
		if j.Status == client.JobLeased && j.LeaseExpiry.Valid && j.LeaseExpiry.Time.Before(now) {
			if j.Attempts >= j.MaxAttempts {
				j.Status = client.JobFailed
			} else {
				j.Status = client.JobPending
			}
			j.LeaseOwner = dbutils.NullString("")
			j.LeaseExpiry = dbutils.NullTime(time.Time{})
			j.LastError = dbutils.NullString("lease expired")
			j.UpdateTime = dbutils.NullTime(f.now)
			reclaimed = append(reclaimed, j)
		}
	}
	return reclaimed, nil
}

func (f *fakeStore) GetJob(_ context.Context, jobId int64) (*client.Job, error) {
	j, ok := f.jobs[jobId]
	if !ok {
		return nil, commonerrors.NewJobNotFound(fmt.Sprintf("job %d not found", jobId))
	}
	return j, nil
}

func (f *fakeStore) InsertJobEvent(_ context.Context, e *client.JobEvent) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeStore) SelectJobEvents(_ context.Context, jobId int64) ([]*client.JobEvent, error) {
	var out []*client.JobEvent
	for _, e := range f.events {
		if e.JobId == jobId {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) PurgeJobEvents(_ context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeStore) CountActiveJobs(_ context.Context) (int, error) {
	n := 0
	for _, j := range f.jobs {
		if j.Status == client.JobPending || j.Status == client.JobLeased {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) eventKinds(jobId int64) []string {
	var kinds []string
	for _, e := range f.events {
		if e.JobId == jobId {
			kinds = append(kinds, e.Kind)
		}
	}
	return kinds
}

type recordingNotifier struct {
	added     []int64
	completed []int64
	failed    []int64
}

func (r *recordingNotifier) JobAdded(jobId int64, kind string) { r.added = append(r.added, jobId) }
func (r *recordingNotifier) JobCompleted(jobId int64)          { r.completed = append(r.completed, jobId) }
func (r *recordingNotifier) JobFailed(jobId int64, reason string) {
	r.failed = append(r.failed, jobId)
}

type recordingAlerter struct {
	jobs []*client.Job
}

func (r *recordingAlerter) OnJobFailed(job *client.Job) { r.jobs = append(r.jobs, job) }

func newTestService(store Store, notifier Notifier, alerter Alerter) *Service {
	return &Service{
		store:         store,
		notifier:      notifier,
		alerter:       alerter,
		maxAttempts:   3,
		leaseDuration: 10 * time.Minute,
	}
}

const testHash = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func TestEnqueueDeduplicates(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier, nil)
	ctx := context.Background()

	job1, dedup1, err := svc.Enqueue(ctx, client.KindModelThumbnail, 1, testHash, nil, 0)
	require.NoError(t, err)
	assert.False(t, dedup1)
	assert.Equal(t, 3, job1.MaxAttempts)

	job2, dedup2, err := svc.Enqueue(ctx, client.KindModelThumbnail, 1, testHash, nil, 0)
	require.NoError(t, err)
	assert.True(t, dedup2)
	assert.Equal(t, job1.Id, job2.Id)

	// one ENQUEUED event and one notification despite two enqueues
	assert.Equal(t, []string{client.EventEnqueued}, store.eventKinds(job1.Id))
	assert.Equal(t, []int64{job1.Id}, notifier.added)
}

func TestEnqueueAfterTerminalCreatesNewJob(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	job1, _, err := svc.Enqueue(ctx, client.KindModelThumbnail, 1, testHash, nil, 0)
	require.NoError(t, err)
	_, err = svc.Lease(ctx, "worker-a", []string{client.KindModelThumbnail}, 0)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, job1.Id, "worker-a", nil)
	require.NoError(t, err)

	job2, dedup, err := svc.Enqueue(ctx, client.KindModelThumbnail, 1, testHash, nil, 0)
	require.NoError(t, err)
	assert.False(t, dedup)
	assert.NotEqual(t, job1.Id, job2.Id)
}

func TestLeaseCompleteLifecycle(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier, nil)
	ctx := context.Background()

	job, _, err := svc.Enqueue(ctx, client.KindSoundWaveform, 5, testHash, []byte(`{"soundId":5}`), 0)
	require.NoError(t, err)

	leased, err := svc.Lease(ctx, "worker-a", []string{client.KindSoundWaveform}, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, leased)
	assert.Equal(t, job.Id, leased.Id)
	assert.Equal(t, 1, leased.Attempts)

	// second lease attempt finds nothing
	second, err := svc.Lease(ctx, "worker-b", []string{client.KindSoundWaveform}, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, second)

	done, err := svc.Complete(ctx, job.Id, "worker-a", []byte(`{"width":256}`))
	require.NoError(t, err)
	assert.Equal(t, client.JobDone, done.Status)
	assert.Equal(t, []int64{job.Id}, notifier.completed)
	assert.Equal(t, []string{client.EventEnqueued, client.EventLeased, client.EventCompleted},
		store.eventKinds(job.Id))
}

func TestCompleteByNonOwnerIsLeaseLost(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	job, _, err := svc.Enqueue(ctx, client.KindModelThumbnail, 1, testHash, nil, 0)
	require.NoError(t, err)
	_, err = svc.Lease(ctx, "worker-a", []string{client.KindModelThumbnail}, time.Minute)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, job.Id, "worker-b", nil)
	assert.True(t, commonerrors.IsLeaseLost(err))
}

func TestFailureCapMatchesAttemptAccounting(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	alerter := &recordingAlerter{}
	svc := newTestService(store, notifier, alerter)
	ctx := context.Background()

	job, _, err := svc.Enqueue(ctx, client.KindModelThumbnail, 1, testHash, nil, 2)
	require.NoError(t, err)

	// first round: lease (attempts=1), fail -> PENDING
	_, err = svc.Lease(ctx, "worker-a", []string{client.KindModelThumbnail}, time.Minute)
	require.NoError(t, err)
	failed, err := svc.Fail(ctx, job.Id, "worker-a", "render error")
	require.NoError(t, err)
	assert.Equal(t, client.JobPending, failed.Status)
	assert.Empty(t, notifier.failed)

	// second round: lease (attempts=2), fail -> FAILED
	_, err = svc.Lease(ctx, "worker-a", []string{client.KindModelThumbnail}, time.Minute)
	require.NoError(t, err)
	failed, err = svc.Fail(ctx, job.Id, "worker-a", "render error")
	require.NoError(t, err)
	assert.Equal(t, client.JobFailed, failed.Status)
	assert.Equal(t, 2, failed.Attempts)
	assert.Equal(t, "render error", failed.LastError.String)
	assert.Equal(t, []int64{job.Id}, notifier.failed)
	require.Len(t, alerter.jobs, 1)

	kinds := store.eventKinds(job.Id)
	failedEvents := 0
	for _, k := range kinds {
		if k == client.EventFailed {
			failedEvents++
		}
	}
	assert.Equal(t, 2, failedEvents)
}

func TestReclaimThenCompleteCountsBothLeases(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, nil)
	sweeper := &Sweeper{service: svc, interval: time.Minute}
	ctx := context.Background()

	job, _, err := svc.Enqueue(ctx, client.KindModelThumbnail, 1, testHash, nil, 0)
	require.NoError(t, err)

	// worker A leases with a short lease and crashes
	_, err = svc.Lease(ctx, "worker-a", []string{client.KindModelThumbnail}, 2*time.Second)
	require.NoError(t, err)

	store.now = store.now.Add(3 * time.Second)
	sweeper.sweep(ctx)

	reclaimedJob, err := svc.Get(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, client.JobPending, reclaimedJob.Status)

	// worker B picks it up and completes it
	leased, err := svc.Lease(ctx, "worker-b", []string{client.KindModelThumbnail}, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, leased)
	done, err := svc.Complete(ctx, job.Id, "worker-b", nil)
	require.NoError(t, err)

	assert.Equal(t, client.JobDone, done.Status)
	assert.Equal(t, 2, done.Attempts)
	assert.Equal(t, []string{client.EventEnqueued, client.EventLeased,
		client.EventExpiredReclaimed, client.EventLeased, client.EventCompleted},
		store.eventKinds(job.Id))
}

func TestReclaimAtCapFails(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	alerter := &recordingAlerter{}
	svc := newTestService(store, notifier, alerter)
	sweeper := &Sweeper{service: svc, interval: time.Minute}
	ctx := context.Background()

	var hookJobs []*client.Job
	svc.SetFailureHook(func(_ context.Context, job *client.Job) {
		hookJobs = append(hookJobs, job)
	})

	job, _, err := svc.Enqueue(ctx, client.KindModelThumbnail, 1, testHash, nil, 1)
	require.NoError(t, err)
	_, err = svc.Lease(ctx, "worker-a", []string{client.KindModelThumbnail}, time.Second)
	require.NoError(t, err)

	store.now = store.now.Add(2 * time.Second)
	sweeper.sweep(ctx)

	got, err := svc.Get(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, client.JobFailed, got.Status)
	assert.Equal(t, "lease expired", got.LastError.String)
	assert.Equal(t, []int64{job.Id}, notifier.failed)
	require.Len(t, alerter.jobs, 1)

	// reclaim at the cap fires the same terminal side effect as a reported
	// failure, so the owner's derived row does not stay PROCESSING
	require.Len(t, hookJobs, 1)
	assert.Equal(t, job.Id, hookJobs[0].Id)
	assert.Equal(t, client.JobFailed, hookJobs[0].Status)
}

func TestReclaimUnderCapDoesNotFireFailureHook(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, nil)
	sweeper := &Sweeper{service: svc, interval: time.Minute}
	ctx := context.Background()

	hookCalls := 0
	svc.SetFailureHook(func(context.Context, *client.Job) { hookCalls++ })

	_, _, err := svc.Enqueue(ctx, client.KindModelThumbnail, 1, testHash, nil, 3)
	require.NoError(t, err)
	_, err = svc.Lease(ctx, "worker-a", []string{client.KindModelThumbnail}, time.Second)
	require.NoError(t, err)

	store.now = store.now.Add(2 * time.Second)
	sweeper.sweep(ctx)

	assert.Equal(t, 0, hookCalls)
}

func TestLeaseFiltersByKind(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	_, _, err := svc.Enqueue(ctx, client.KindModelThumbnail, 1, testHash, nil, 0)
	require.NoError(t, err)

	job, err := svc.Lease(ctx, "worker-a", []string{client.KindSoundWaveform}, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestJobAddedCoalescedAboveHighWaterMark(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier, nil)
	svc.highWaterMark = 1
	ctx := context.Background()

	_, _, err := svc.Enqueue(ctx, client.KindModelThumbnail, 1, testHash, nil, 0)
	require.NoError(t, err)
	_, _, err = svc.Enqueue(ctx, client.KindModelThumbnail, 2, testHash, nil, 0)
	require.NoError(t, err)

	// the second enqueue is above the mark and its notification is dropped
	assert.Len(t, notifier.added, 1)
}
