/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

// RecycledEntries groups soft-deleted rows by kind for the recycle listing.
type RecycledEntries struct {
	Models        []RecycleEntry `json:"models"`
	ModelVersions []RecycleEntry `json:"modelVersions"`
	Files         []RecycleEntry `json:"files"`
	TextureSets   []RecycleEntry `json:"textureSets"`
	Textures      []RecycleEntry `json:"textures"`
	Sounds        []RecycleEntry `json:"sounds"`
	Sprites       []RecycleEntry `json:"sprites"`
}

// recycleSource maps a recycle kind to the query that produces its uniform
// (kind, id, name, delete_time) rows.
type recycleSource struct {
	kind string
	cmd  string
}

var recycleSources = []recycleSource{
	{RecycleModel, fmt.Sprintf(
		`SELECT '%s' AS kind, id, display_name AS name, delete_time FROM %s WHERE is_deleted = true`,
		RecycleModel, TableModel)},
	{RecycleModelVersion, fmt.Sprintf(
		`SELECT '%s' AS kind, id, CONCAT('v', version_number) AS name, delete_time FROM %s WHERE is_deleted = true`,
		RecycleModelVersion, TableModelVersion)},
	{RecycleFile, fmt.Sprintf(
		`SELECT '%s' AS kind, id, file_name AS name, delete_time FROM %s WHERE is_deleted = true`,
		RecycleFile, TableVersionFile)},
	{RecycleTextureSet, fmt.Sprintf(
		`SELECT '%s' AS kind, id, name, delete_time FROM %s WHERE is_deleted = true`,
		RecycleTextureSet, TableTextureSet)},
	{RecycleTexture, fmt.Sprintf(
		`SELECT '%s' AS kind, id, texture_type AS name, delete_time FROM %s WHERE is_deleted = true`,
		RecycleTexture, TableTexture)},
	{RecycleSound, fmt.Sprintf(
		`SELECT '%s' AS kind, id, name, delete_time FROM %s WHERE is_deleted = true`,
		RecycleSound, TableSound)},
	{RecycleSprite, fmt.Sprintf(
		`SELECT '%s' AS kind, id, name, delete_time FROM %s WHERE is_deleted = true`,
		RecycleSprite, TableSprite)},
}

// ListRecycled enumerates soft-deleted rows across entity kinds.
func (c *Client) ListRecycled(ctx context.Context) (*RecycledEntries, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	out := &RecycledEntries{}
	for _, src := range recycleSources {
		var entries []RecycleEntry
		if err = db.WithContext(ctx).Raw(src.cmd + " ORDER BY delete_time DESC").Scan(&entries).Error; err != nil {
			return nil, err
		}
		switch src.kind {
		case RecycleModel:
			out.Models = entries
		case RecycleModelVersion:
			out.ModelVersions = entries
		case RecycleFile:
			out.Files = entries
		case RecycleTextureSet:
			out.TextureSets = entries
		case RecycleTexture:
			out.Textures = entries
		case RecycleSound:
			out.Sounds = entries
		case RecycleSprite:
			out.Sprites = entries
		}
	}
	return out, nil
}

// RestoreRecycled clears the soft-delete flags of the named row.
func (c *Client) RestoreRecycled(ctx context.Context, kind string, id int64) error {
	switch kind {
	case RecycleModel:
		return c.SetModelDeleted(ctx, id, false)
	case RecycleModelVersion:
		return c.SetVersionDeleted(ctx, id, false)
	case RecycleFile:
		return c.SetVersionFileDeleted(ctx, id, false)
	case RecycleTextureSet:
		return c.SetTextureSetDeleted(ctx, id, false)
	case RecycleTexture:
		return c.SetTextureDeleted(ctx, id, false)
	case RecycleSound:
		return c.SetSoundDeleted(ctx, id, false)
	case RecycleSprite:
		return c.SetSpriteDeleted(ctx, id, false)
	default:
		return commonerrors.NewBadRequest(fmt.Sprintf("unknown recycle kind %q", kind))
	}
}

// PurgeRecycled permanently removes a recycled row and its owned rows.
// Referenced blobs are never collected here; the GC pass owns that decision.
func (c *Client) PurgeRecycled(ctx context.Context, kind string, id int64) error {
	switch kind {
	case RecycleModel:
		return c.PurgeModel(ctx, id)
	case RecycleTextureSet:
		return c.PurgeTextureSet(ctx, id)
	case RecycleSound:
		return c.PurgeSound(ctx, id)
	case RecycleSprite:
		return c.PurgeSprite(ctx, id)
	case RecycleModelVersion:
		return c.PurgeModelVersion(ctx, id)
	case RecycleFile, RecycleTexture:
		return c.purgeOwnedRow(ctx, kind, id)
	default:
		return commonerrors.NewBadRequest(fmt.Sprintf("unknown recycle kind %q", kind))
	}
}

// purgeOwnedRow hard-deletes a leaf row that is already soft-deleted.
func (c *Client) purgeOwnedRow(ctx context.Context, kind string, id int64) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	var model interface{}
	switch kind {
	case RecycleFile:
		model = &VersionFile{}
	case RecycleTexture:
		model = &Texture{}
	}
	res := db.WithContext(ctx).Where("id = ? AND is_deleted = true", id).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return commonerrors.NewPrecondition(fmt.Sprintf("%s %d is not in the recycle bin", kind, id))
	}
	return nil
}
