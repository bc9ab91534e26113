/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

var (
	insertJobEventFormat = `INSERT INTO ` + TableJobEvent + ` (%s) VALUES (%s)`

	selectJobEventsCmd = fmt.Sprintf(`SELECT * FROM %s WHERE job_id = $1 ORDER BY create_time, id`, TableJobEvent)

	// Events of terminal jobs age out; events of live jobs are kept regardless.
	purgeJobEventsCmd = fmt.Sprintf(`DELETE FROM %s USING %s
		WHERE %s.job_id = %s.id
		  AND %s.status IN ('%s', '%s')
		  AND %s.create_time < $1`,
		TableJobEvent, TableJob,
		TableJobEvent, TableJob,
		TableJob, JobDone, JobFailed,
		TableJobEvent)
)

// InsertJobEvent appends an audit entry to the job's event log.
func (c *Client) InsertJobEvent(ctx context.Context, event *JobEvent) error {
	if event == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*event, insertJobEventFormat, "id"), event)
	if err != nil {
		klog.ErrorS(err, "failed to insert job event", "job", event.JobId, "kind", event.Kind)
	}
	return err
}

// SelectJobEvents retrieves the event log of a job in append order.
func (c *Client) SelectJobEvents(ctx context.Context, jobId int64) ([]*JobEvent, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var events []*JobEvent
	err = db.SelectContext(ctx, &events, selectJobEventsCmd, jobId)
	return events, err
}

// PurgeJobEvents removes events of terminal jobs older than the cutoff and
// returns the number of rows removed.
func (c *Client) PurgeJobEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, purgeJobEventsCmd, olderThan.UTC())
	if err != nil {
		klog.ErrorS(err, "failed to purge job events")
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
