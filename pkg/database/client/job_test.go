/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"strings"
	"testing"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"gotest.tools/assert"

	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

func TestInsertJobNilInput(t *testing.T) {
	client := &Client{}

	_, _, err := client.InsertJob(context.Background(), nil)
	assert.ErrorContains(t, err, "the input is empty")
}

func TestInsertJobNoDBConnection(t *testing.T) {
	client := &Client{}

	job := &Job{
		Kind:        KindModelThumbnail,
		TargetId:    1,
		BlobHash:    strings.Repeat("ab", 32),
		Status:      JobPending,
		MaxAttempts: 3,
	}
	_, _, err := client.InsertJob(context.Background(), job)
	assert.ErrorContains(t, err, "db has not been initialized")
}

func TestLeaseJobValidation(t *testing.T) {
	client := &Client{}

	_, err := client.LeaseJob(context.Background(), "", []string{KindModelThumbnail}, time.Minute)
	assert.Assert(t, commonerrors.IsBadRequest(err))

	_, err = client.LeaseJob(context.Background(), "worker-1", nil, time.Minute)
	assert.Assert(t, commonerrors.IsBadRequest(err))
}

func TestLeaseJobNoDBConnection(t *testing.T) {
	client := &Client{}

	_, err := client.LeaseJob(context.Background(), "worker-1", []string{KindModelThumbnail}, time.Minute)
	assert.ErrorContains(t, err, "db has not been initialized")
}

func TestQueueMutationsNoDBConnection(t *testing.T) {
	client := &Client{}
	ctx := context.Background()

	err := client.RenewLease(ctx, 1, "worker-1", time.Minute)
	assert.ErrorContains(t, err, "db has not been initialized")

	_, err = client.CompleteJob(ctx, 1, "worker-1", nil)
	assert.ErrorContains(t, err, "db has not been initialized")

	_, err = client.FailJob(ctx, 1, "worker-1", "render error")
	assert.ErrorContains(t, err, "db has not been initialized")

	_, err = client.ReclaimExpiredJobs(ctx, time.Now())
	assert.ErrorContains(t, err, "db has not been initialized")

	_, err = client.GetJob(ctx, 1)
	assert.ErrorContains(t, err, "db has not been initialized")

	_, err = client.SelectJobs(ctx, sqrl.Eq{"status": JobPending}, []string{"id"}, 10, 0)
	assert.ErrorContains(t, err, "db has not been initialized")

	_, err = client.CountJobs(ctx, sqrl.Eq{"status": JobPending})
	assert.ErrorContains(t, err, "db has not been initialized")
}

func TestJobStatusConstants(t *testing.T) {
	assert.Equal(t, JobPending, "PENDING")
	assert.Equal(t, JobLeased, "LEASED")
	assert.Equal(t, JobDone, "DONE")
	assert.Equal(t, JobFailed, "FAILED")
}

func TestJobKindConstants(t *testing.T) {
	assert.Equal(t, KindModelThumbnail, "MODEL_THUMBNAIL")
	assert.Equal(t, KindSoundWaveform, "SOUND_WAVEFORM")
	assert.Equal(t, KindTextureSetThumbnail, "TEXTURESET_THUMBNAIL")
	assert.Equal(t, KindMeshAnalysis, "MESH_ANALYSIS")
}

func TestGetJobFieldTags(t *testing.T) {
	tags := GetJobFieldTags()

	assert.Equal(t, "id", tags["id"])
	assert.Equal(t, "kind", tags["kind"])
	assert.Equal(t, "target_id", tags["targetid"])
	assert.Equal(t, "blob_hash", tags["blobhash"])
	assert.Equal(t, "lease_owner", tags["leaseowner"])
	assert.Equal(t, "lease_expiry", tags["leaseexpiry"])
	assert.Equal(t, "max_attempts", tags["maxattempts"])
	assert.Equal(t, GetFieldTag(tags, "UpdateTime"), "update_time")
}

func TestLeaseJobCommandShape(t *testing.T) {
	// The lease must be a single statement: pick under SKIP LOCKED, count the
	// acquisition, and return the claimed row.
	assert.Assert(t, strings.Contains(leaseJobCmd, "FOR UPDATE SKIP LOCKED"))
	assert.Assert(t, strings.Contains(leaseJobCmd, "attempts = attempts + 1"))
	assert.Assert(t, strings.Contains(leaseJobCmd, "attempts < max_attempts"))
	assert.Assert(t, strings.Contains(leaseJobCmd, "ORDER BY update_time, id"))
	assert.Assert(t, strings.Contains(leaseJobCmd, "RETURNING *"))
}

func TestTerminalCommandsAreOwnerChecked(t *testing.T) {
	for _, cmd := range []string{renewLeaseCmd, completeJobCmd, failJobCmd} {
		assert.Assert(t, strings.Contains(cmd, "lease_owner = $2"))
		assert.Assert(t, strings.Contains(cmd, "status = 'LEASED'"))
	}
}

func TestFailJobCommandCapsAttempts(t *testing.T) {
	assert.Assert(t, strings.Contains(failJobCmd,
		"CASE WHEN attempts >= max_attempts THEN 'FAILED' ELSE 'PENDING' END"))
	assert.Assert(t, strings.Contains(reclaimJobsCmd,
		"CASE WHEN attempts >= max_attempts THEN 'FAILED' ELSE 'PENDING' END"))
}

func TestReclaimCommandRecordsLeaseExpiry(t *testing.T) {
	// the terminal row must say why it failed even when no worker reported
	assert.Assert(t, strings.Contains(reclaimJobsCmd, "last_error = 'lease expired'"))
}

func TestGetJobEventFieldTags(t *testing.T) {
	tags := GetJobEventFieldTags()

	assert.Equal(t, "job_id", tags["jobid"])
	assert.Equal(t, "kind", tags["kind"])
	assert.Equal(t, "payload", tags["payload"])
}

func TestInsertJobEventNilInput(t *testing.T) {
	client := &Client{}

	err := client.InsertJobEvent(context.Background(), nil)
	assert.ErrorContains(t, err, "the input is empty")
}

func TestJobEventKindConstants(t *testing.T) {
	assert.Equal(t, EventEnqueued, "ENQUEUED")
	assert.Equal(t, EventLeased, "LEASED")
	assert.Equal(t, EventProgress, "PROGRESS")
	assert.Equal(t, EventCompleted, "COMPLETED")
	assert.Equal(t, EventFailed, "FAILED")
	assert.Equal(t, EventExpiredReclaimed, "EXPIRED_RECLAIMED")
}
