/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"k8s.io/klog/v2"

	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

const uniqueViolation = "23505"

var (
	getJobCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE id = $1 LIMIT 1`, TableJob)
	insertJobFormat = `INSERT INTO ` + TableJob + ` (%s) VALUES (%s) RETURNING id`

	// Dedup rule: a PENDING or LEASED job with the same triple absorbs the enqueue.
	getActiveJobCmd = fmt.Sprintf(`SELECT * FROM %s
		WHERE kind = $1 AND target_id = $2 AND blob_hash = $3 AND status IN ('%s', '%s')
		LIMIT 1`, TableJob, JobPending, JobLeased)

	// Single-statement lease. The subselect picks the oldest eligible row and
	// SKIP LOCKED keeps concurrent workers from queueing on the same row; the
	// attempt counter records lease acquisitions.
	leaseJobCmd = fmt.Sprintf(`UPDATE %s SET
			status = '%s',
			lease_owner = $1,
			lease_expiry = $2,
			attempts = attempts + 1,
			update_time = now()
		WHERE id = (
			SELECT id FROM %s
			WHERE kind = ANY($3)
			  AND attempts < max_attempts
			  AND (status = '%s' OR (status = '%s' AND lease_expiry < now()))
			ORDER BY update_time, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`, TableJob, JobLeased, TableJob, JobPending, JobLeased)

	renewLeaseCmd = fmt.Sprintf(`UPDATE %s SET
			lease_expiry = $3
		WHERE id = $1 AND lease_owner = $2 AND status = '%s'`, TableJob, JobLeased)

	completeJobCmd = fmt.Sprintf(`UPDATE %s SET
			status = '%s',
			lease_owner = NULL,
			lease_expiry = NULL,
			result = $3,
			update_time = now()
		WHERE id = $1 AND lease_owner = $2 AND status = '%s'
		RETURNING *`, TableJob, JobDone, JobLeased)

	failJobCmd = fmt.Sprintf(`UPDATE %s SET
			status = CASE WHEN attempts >= max_attempts THEN '%s' ELSE '%s' END,
			lease_owner = NULL,
			lease_expiry = NULL,
			last_error = $3,
			update_time = now()
		WHERE id = $1 AND lease_owner = $2 AND status = '%s'
		RETURNING *`, TableJob, JobFailed, JobPending, JobLeased)

	reclaimJobsCmd = fmt.Sprintf(`UPDATE %s SET
			status = CASE WHEN attempts >= max_attempts THEN '%s' ELSE '%s' END,
			lease_owner = NULL,
			lease_expiry = NULL,
			last_error = 'lease expired',
			update_time = now()
		WHERE status = '%s' AND lease_expiry < $1
		RETURNING *`, TableJob, JobFailed, JobPending, JobLeased)
)

// InsertJob appends a job unless an equivalent non-terminal job already exists,
// in which case the existing job is returned with deduplicated=true.
func (c *Client) InsertJob(ctx context.Context, job *Job) (*Job, bool, error) {
	if job == nil {
		return nil, false, commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return nil, false, err
	}

	var existing []*Job
	if err = db.SelectContext(ctx, &existing, getActiveJobCmd, job.Kind, job.TargetId, job.BlobHash); err != nil {
		klog.ErrorS(err, "failed to select active job", "kind", job.Kind, "target", job.TargetId)
		return nil, false, err
	}
	if len(existing) > 0 && existing[0] != nil {
		return existing[0], true, nil
	}

	rows, err := db.NamedQueryContext(ctx, generateCommand(*job, insertJobFormat, "id"), job)
	if err != nil {
		// A concurrent enqueue of the same triple loses the insert race on the
		// partial unique index; the winner's row is the answer.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			if err = db.SelectContext(ctx, &existing, getActiveJobCmd, job.Kind, job.TargetId, job.BlobHash); err == nil && len(existing) > 0 {
				return existing[0], true, nil
			}
		}
		klog.ErrorS(err, "failed to insert job", "kind", job.Kind, "target", job.TargetId)
		return nil, false, err
	}
	defer rows.Close()
	if rows.Next() {
		if err = rows.Scan(&job.Id); err != nil {
			return nil, false, err
		}
	}
	return job, false, nil
}

// LeaseJob atomically claims the oldest eligible job for the worker. Returns
// (nil, nil) when no job is eligible.
func (c *Client) LeaseJob(ctx context.Context, workerId string, kinds []string, leaseDuration time.Duration) (*Job, error) {
	if workerId == "" || len(kinds) == 0 {
		return nil, commonerrors.NewBadRequest("workerId and acceptedKinds must be specified")
	}
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	expiry := time.Now().UTC().Add(leaseDuration)
	job := &Job{}
	err = db.GetContext(ctx, job, leaseJobCmd, workerId, expiry, pq.Array(kinds))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		klog.ErrorS(err, "failed to lease job", "worker", workerId)
		return nil, err
	}
	return job, nil
}

// RenewLease extends the lease expiry iff the worker still owns the lease.
func (c *Client) RenewLease(ctx context.Context, jobId int64, workerId string, extra time.Duration) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	expiry := time.Now().UTC().Add(extra)
	res, err := db.ExecContext(ctx, renewLeaseCmd, jobId, workerId, expiry)
	if err != nil {
		klog.ErrorS(err, "failed to renew lease", "job", jobId, "worker", workerId)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return commonerrors.NewLeaseLost(fmt.Sprintf("job %d is not leased by %s", jobId, workerId))
	}
	return nil
}

// CompleteJob transitions LEASED -> DONE iff the worker owns the lease.
func (c *Client) CompleteJob(ctx context.Context, jobId int64, workerId string, result []byte) (*Job, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	job := &Job{}
	err = db.GetContext(ctx, job, completeJobCmd, jobId, workerId, result)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, commonerrors.NewLeaseLost(fmt.Sprintf("job %d is not leased by %s", jobId, workerId))
	}
	if err != nil {
		klog.ErrorS(err, "failed to complete job", "job", jobId, "worker", workerId)
		return nil, err
	}
	return job, nil
}

// FailJob records a failure. The job returns to PENDING while under the
// attempt cap and becomes FAILED once the cap is reached; the returned row
// carries the resulting status.
func (c *Client) FailJob(ctx context.Context, jobId int64, workerId, errMessage string) (*Job, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	job := &Job{}
	err = db.GetContext(ctx, job, failJobCmd, jobId, workerId, errMessage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, commonerrors.NewLeaseLost(fmt.Sprintf("job %d is not leased by %s", jobId, workerId))
	}
	if err != nil {
		klog.ErrorS(err, "failed to fail job", "job", jobId, "worker", workerId)
		return nil, err
	}
	return job, nil
}

// ReclaimExpiredJobs sweeps expired leases back to PENDING, or to FAILED when
// the attempt cap is exhausted. DONE/FAILED jobs are never touched.
func (c *Client) ReclaimExpiredJobs(ctx context.Context, now time.Time) ([]*Job, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var jobs []*Job
	if err = db.SelectContext(ctx, &jobs, reclaimJobsCmd, now.UTC()); err != nil {
		klog.ErrorS(err, "failed to reclaim expired jobs")
		return nil, err
	}
	return jobs, nil
}

// GetJob retrieves a single job by id.
func (c *Client) GetJob(ctx context.Context, jobId int64) (*Job, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	job := &Job{}
	err = db.GetContext(ctx, job, getJobCmd, jobId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, commonerrors.NewJobNotFound(fmt.Sprintf("job %d not found", jobId))
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// SelectJobs retrieves multiple job records.
func (c *Client) SelectJobs(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*Job, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	sqlStr, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TableJob).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}
	var jobs []*Job
	if c.RequestTimeout > 0 {
		ctx2, cancel := context.WithTimeout(ctx, c.RequestTimeout)
		defer cancel()
		err = db.SelectContext(ctx2, &jobs, sqlStr, args...)
	} else {
		err = db.SelectContext(ctx, &jobs, sqlStr, args...)
	}
	return jobs, err
}

// CountJobs returns the total count of jobs matching the criteria.
func (c *Client) CountJobs(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sqlStr, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TableJob).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sqlStr, args...)
	return cnt, err
}

// CountActiveJobs counts PENDING and LEASED jobs, used for the notification
// high-water mark.
func (c *Client) CountActiveJobs(ctx context.Context) (int, error) {
	return c.CountJobs(ctx, sqrl.Eq{"status": []string{JobPending, JobLeased}})
}

// DeleteTerminalJobs removes DONE/FAILED jobs (and their events) that target
// the given entity. Used by the recycle purge cascade.
func (c *Client) DeleteTerminalJobs(ctx context.Context, kinds []string, targetId int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	deleteEventsCmd := fmt.Sprintf(`DELETE FROM %s WHERE job_id IN (
		SELECT id FROM %s WHERE kind = ANY($1) AND target_id = $2 AND status IN ('%s', '%s'))`,
		TableJobEvent, TableJob, JobDone, JobFailed)
	if _, err = db.ExecContext(ctx, deleteEventsCmd, pq.Array(kinds), targetId); err != nil {
		klog.ErrorS(err, "failed to delete job events", "target", targetId)
		return err
	}
	deleteJobsCmd := fmt.Sprintf(`DELETE FROM %s WHERE kind = ANY($1) AND target_id = $2 AND status IN ('%s', '%s')`,
		TableJob, JobDone, JobFailed)
	if _, err = db.ExecContext(ctx, deleteJobsCmd, pq.Array(kinds), targetId); err != nil {
		klog.ErrorS(err, "failed to delete jobs", "target", targetId)
		return err
	}
	return nil
}
