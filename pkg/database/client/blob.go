/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"k8s.io/klog/v2"

	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

// UpsertBlob inserts the blob record unless it already exists. Returns true
// when the row was created.
func (c *Client) UpsertBlob(ctx context.Context, blob *Blob) (bool, error) {
	if blob == nil {
		return false, commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return false, err
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(blob)
	if res.Error != nil {
		klog.ErrorS(res.Error, "failed to upsert blob", "hash", blob.Hash)
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetBlob retrieves a blob record by content hash.
func (c *Client) GetBlob(ctx context.Context, hash string) (*Blob, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	blob := &Blob{}
	err = db.WithContext(ctx).Where("hash = ?", hash).First(blob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("blob %s not found", hash))
	}
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// CountBlobReferences counts live references to a blob across the referencing
// tables. Zero means the blob is eligible for the GC pass.
func (c *Client) CountBlobReferences(ctx context.Context, hash string) (int64, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return 0, err
	}
	var total int64
	type ref struct {
		table  string
		column string
	}
	refs := []ref{
		{TableVersionFile, "blob_hash"},
		{TableTexture, "blob_hash"},
		{TableSound, "blob_hash"},
		{TableSprite, "blob_hash"},
		{TableThumbnail, "output_blob_hash"},
	}
	for _, r := range refs {
		var n int64
		if err = db.WithContext(ctx).Table(r.table).
			Where(fmt.Sprintf("%s = ?", r.column), hash).Count(&n).Error; err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// ListUnreferencedBlobs returns blob hashes with zero references, up to limit.
func (c *Client) ListUnreferencedBlobs(ctx context.Context, limit int) ([]string, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	cmd := fmt.Sprintf(`SELECT hash FROM %s b
		WHERE NOT EXISTS (SELECT 1 FROM %s WHERE blob_hash = b.hash)
		  AND NOT EXISTS (SELECT 1 FROM %s WHERE blob_hash = b.hash)
		  AND NOT EXISTS (SELECT 1 FROM %s WHERE blob_hash = b.hash)
		  AND NOT EXISTS (SELECT 1 FROM %s WHERE blob_hash = b.hash)
		  AND NOT EXISTS (SELECT 1 FROM %s WHERE output_blob_hash = b.hash)
		LIMIT ?`,
		TableBlob, TableVersionFile, TableTexture, TableSound, TableSprite, TableThumbnail)
	var hashes []string
	if err = db.WithContext(ctx).Raw(cmd, limit).Scan(&hashes).Error; err != nil {
		return nil, err
	}
	return hashes, nil
}

// DeleteBlob removes the blob record. The stored object is the blob store's
// concern.
func (c *Client) DeleteBlob(ctx context.Context, hash string) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Where("hash = ?", hash).Delete(&Blob{}).Error
}
