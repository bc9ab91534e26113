/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

// EnsureThumbnail creates the derived-state row in Pending unless one already
// exists for the owner. Returns the current row.
func (c *Client) EnsureThumbnail(ctx context.Context, ownerKind string, ownerId int64) (*Thumbnail, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	thumb := &Thumbnail{
		OwnerKind: ownerKind,
		OwnerId:   ownerId,
		Status:    ThumbnailPending,
	}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_kind"}, {Name: "owner_id"}},
		DoNothing: true,
	}).Create(thumb).Error
	if err != nil {
		return nil, err
	}
	return c.GetThumbnail(ctx, ownerKind, ownerId)
}

// GetThumbnail retrieves the derived-state row for an owner.
func (c *Client) GetThumbnail(ctx context.Context, ownerKind string, ownerId int64) (*Thumbnail, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	thumb := &Thumbnail{}
	err = db.WithContext(ctx).
		Where("owner_kind = ? AND owner_id = ?", ownerKind, ownerId).
		First(thumb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, commonerrors.NewNotFoundWithMessage(
			fmt.Sprintf("no thumbnail for %s %d", ownerKind, ownerId))
	}
	if err != nil {
		return nil, err
	}
	return thumb, nil
}

// SetThumbnailProcessing marks the row Processing. A terminal row is reset so
// a regenerate request restarts the lifecycle.
func (c *Client) SetThumbnailProcessing(ctx context.Context, ownerKind string, ownerId int64) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Model(&Thumbnail{}).
		Where("owner_kind = ? AND owner_id = ?", ownerKind, ownerId).
		Updates(map[string]interface{}{
			"status":        ThumbnailProcessing,
			"error_message": "",
		}).Error
}

// SetThumbnailReady writes the terminal Ready state. The output blob reference
// is mandatory for Ready.
func (c *Client) SetThumbnailReady(ctx context.Context, ownerKind string, ownerId int64,
	outputHash string, width, height int, sizeBytes int64) error {
	if outputHash == "" {
		return commonerrors.NewBadRequest("output blob hash must be set for a ready thumbnail")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return db.WithContext(ctx).Model(&Thumbnail{}).
		Where("owner_kind = ? AND owner_id = ?", ownerKind, ownerId).
		Updates(map[string]interface{}{
			"status":           ThumbnailReady,
			"output_blob_hash": outputHash,
			"width":            width,
			"height":           height,
			"size_bytes":       sizeBytes,
			"error_message":    "",
			"process_time":     now,
		}).Error
}

// SetThumbnailFailed writes the terminal Failed state with its error message.
func (c *Client) SetThumbnailFailed(ctx context.Context, ownerKind string, ownerId int64, message string) error {
	if message == "" {
		message = "processing failed"
	}
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return db.WithContext(ctx).Model(&Thumbnail{}).
		Where("owner_kind = ? AND owner_id = ?", ownerKind, ownerId).
		Updates(map[string]interface{}{
			"status":        ThumbnailFailed,
			"error_message": message,
			"process_time":  now,
		}).Error
}
