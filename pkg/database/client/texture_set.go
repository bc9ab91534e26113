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
	"k8s.io/klog/v2"

	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

// heightLikeTypes are mutually exclusive within one texture set.
var heightLikeTypes = []string{TextureHeight, TextureDisplacement, TextureBump}

func isHeightLike(textureType string) bool {
	for _, t := range heightLikeTypes {
		if t == textureType {
			return true
		}
	}
	return false
}

// CreateTextureSet inserts a texture set row.
func (c *Client) CreateTextureSet(ctx context.Context, set *TextureSet) error {
	if set == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	if err = db.WithContext(ctx).Create(set).Error; err != nil {
		klog.ErrorS(err, "failed to create texture set", "name", set.Name)
		return err
	}
	return nil
}

// GetTextureSet retrieves a live texture set with its visible textures.
// SPLIT_CHANNEL placeholders are excluded from the preload.
func (c *Client) GetTextureSet(ctx context.Context, setId int64) (*TextureSet, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	set := &TextureSet{}
	err = db.WithContext(ctx).
		Preload("Textures", "is_deleted = false AND texture_type <> ?", TextureSplitChannel).
		Where("id = ? AND is_deleted = false", setId).
		First(set).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("texture set %d not found", setId))
	}
	if err != nil {
		return nil, err
	}
	return set, nil
}

// ListTextureSets returns a page of live texture sets plus the unpaged total.
func (c *Client) ListTextureSets(ctx context.Context, page, pageSize int) ([]*TextureSet, int64, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, 0, err
	}
	query := db.WithContext(ctx).Model(&TextureSet{}).Where("is_deleted = false")
	var total int64
	if err = query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var sets []*TextureSet
	err = query.Order("id").Limit(pageSize).Offset((page - 1) * pageSize).Find(&sets).Error
	if err != nil {
		return nil, 0, err
	}
	return sets, total, nil
}

// UpdateTextureSet updates the mutable fields (name, uv_scale).
func (c *Client) UpdateTextureSet(ctx context.Context, setId int64, fields map[string]interface{}) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	fields["update_time"] = time.Now().UTC()
	res := db.WithContext(ctx).Model(&TextureSet{}).
		Where("id = ? AND is_deleted = false", setId).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return commonerrors.NewNotFoundWithMessage(fmt.Sprintf("texture set %d not found", setId))
	}
	return nil
}

// AddTexture attaches a texture to a set under the set's invariants:
// HEIGHT/DISPLACEMENT/BUMP are mutually exclusive, and a (blob, channel) pair
// maps to at most one non-placeholder semantic type across the set.
func (c *Client) AddTexture(ctx context.Context, texture *Texture) error {
	if texture == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		set := &TextureSet{}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND is_deleted = false", texture.TextureSetId).
			First(set).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return commonerrors.NewNotFoundWithMessage(
					fmt.Sprintf("texture set %d not found", texture.TextureSetId))
			}
			return err
		}
		// one texture per semantic type per set, matching the partial unique
		// index, so the violation surfaces as a conflict instead of a raw 23505
		var sameType int64
		if err := tx.Model(&Texture{}).
			Where("texture_set_id = ? AND is_deleted = false AND texture_type = ?",
				texture.TextureSetId, texture.TextureType).
			Count(&sameType).Error; err != nil {
			return err
		}
		if sameType > 0 {
			return commonerrors.NewTextureConflict(fmt.Sprintf(
				"texture set %d already has a %s texture", texture.TextureSetId, texture.TextureType))
		}
		if isHeightLike(texture.TextureType) {
			var n int64
			if err := tx.Model(&Texture{}).
				Where("texture_set_id = ? AND is_deleted = false AND texture_type IN ?",
					texture.TextureSetId, heightLikeTypes).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return commonerrors.NewTextureConflict(fmt.Sprintf(
					"texture set %d already has a height-like texture", texture.TextureSetId))
			}
		}
		if texture.TextureType != TextureSplitChannel {
			var n int64
			if err := tx.Model(&Texture{}).
				Where("texture_set_id = ? AND is_deleted = false AND blob_hash = ? AND source_channel = ? AND texture_type <> ?",
					texture.TextureSetId, texture.BlobHash, texture.SourceChannel, TextureSplitChannel).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return commonerrors.NewTextureConflict(fmt.Sprintf(
					"blob %s channel %q already mapped in texture set %d",
					texture.BlobHash, texture.SourceChannel, texture.TextureSetId))
			}
		}
		if err := tx.Create(texture).Error; err != nil {
			return err
		}
		return tx.Model(&TextureSet{}).Where("id = ?", texture.TextureSetId).
			Update("update_time", time.Now().UTC()).Error
	})
}

// SetTextureDeleted soft-deletes or restores a texture.
func (c *Client) SetTextureDeleted(ctx context.Context, textureId int64, deleted bool) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	fields := map[string]interface{}{"is_deleted": deleted}
	if deleted {
		fields["delete_time"] = time.Now().UTC()
	} else {
		fields["delete_time"] = nil
	}
	res := db.WithContext(ctx).Model(&Texture{}).
		Where("id = ? AND is_deleted = ?", textureId, !deleted).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return commonerrors.NewNotFoundWithMessage(fmt.Sprintf("texture %d not found", textureId))
	}
	return nil
}

// AssociateTextureSet links a texture set to a model version. Idempotent.
func (c *Client) AssociateTextureSet(ctx context.Context, versionId, setId int64) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	assoc := &ModelTextureSet{VersionId: versionId, TextureSetId: setId}
	return db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(assoc).Error
}

// DissociateTextureSet unlinks a texture set from a model version.
func (c *Client) DissociateTextureSet(ctx context.Context, versionId, setId int64) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Where("version_id = ? AND texture_set_id = ?", versionId, setId).
		Delete(&ModelTextureSet{}).Error
}

// SetTextureSetDeleted soft-deletes or restores a texture set.
func (c *Client) SetTextureSetDeleted(ctx context.Context, setId int64, deleted bool) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	fields := map[string]interface{}{
		"is_deleted":  deleted,
		"update_time": time.Now().UTC(),
	}
	if deleted {
		fields["delete_time"] = time.Now().UTC()
	} else {
		fields["delete_time"] = nil
	}
	res := db.WithContext(ctx).Model(&TextureSet{}).
		Where("id = ? AND is_deleted = ?", setId, !deleted).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return commonerrors.NewNotFoundWithMessage(fmt.Sprintf("texture set %d not found", setId))
	}
	return nil
}

// PurgeTextureSet permanently removes a recycled texture set, its textures,
// thumbnail and association edges.
func (c *Client) PurgeTextureSet(ctx context.Context, setId int64) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		set := &TextureSet{}
		if err := tx.Where("id = ? AND is_deleted = true", setId).First(set).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return commonerrors.NewPrecondition(
					fmt.Sprintf("texture set %d is not in the recycle bin", setId))
			}
			return err
		}
		if err := tx.Where("texture_set_id = ?", setId).Delete(&Texture{}).Error; err != nil {
			return err
		}
		if err := tx.Where("texture_set_id = ?", setId).Delete(&ModelTextureSet{}).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_kind = ? AND owner_id = ?", OwnerTextureSet, setId).
			Delete(&Thumbnail{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&Model{}).Where("default_texture_set_id = ?", setId).
			Update("default_texture_set_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("member_kind = ? AND member_id = ?", MemberTextureSet, setId).
			Delete(&PackMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("member_kind = ? AND member_id = ?", MemberTextureSet, setId).
			Delete(&ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", setId).Delete(&TextureSet{}).Error
	})
}
