/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

var (
	insertBatchUploadFormat = `INSERT INTO ` + TableBatchUpload + ` (%s) VALUES (%s)`

	selectBatchUploadsCmd = fmt.Sprintf(`SELECT * FROM %s WHERE batch_tag = $1 ORDER BY create_time, id`, TableBatchUpload)
)

// InsertBatchUpload records a blob's membership in a client-defined upload batch.
func (c *Client) InsertBatchUpload(ctx context.Context, record *BatchUpload) error {
	if record == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*record, insertBatchUploadFormat, "id"), record)
	if err != nil {
		klog.ErrorS(err, "failed to insert batch upload", "tag", record.BatchTag)
	}
	return err
}

// SelectBatchUploads lists the blobs recorded under a batch tag.
func (c *Client) SelectBatchUploads(ctx context.Context, batchTag string) ([]*BatchUpload, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var records []*BatchUpload
	err = db.SelectContext(ctx, &records, selectBatchUploadsCmd, batchTag)
	return records, err
}
