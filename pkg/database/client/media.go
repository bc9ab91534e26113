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
	"k8s.io/klog/v2"

	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

// Sounds and sprites share the versionless single-blob pattern.

// CreateSound inserts a sound row.
func (c *Client) CreateSound(ctx context.Context, sound *Sound) error {
	if sound == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	if err = db.WithContext(ctx).Create(sound).Error; err != nil {
		klog.ErrorS(err, "failed to create sound", "name", sound.Name)
		return err
	}
	return nil
}

// GetSound retrieves a live sound.
func (c *Client) GetSound(ctx context.Context, soundId int64) (*Sound, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	sound := &Sound{}
	err = db.WithContext(ctx).Where("id = ? AND is_deleted = false", soundId).First(sound).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("sound %d not found", soundId))
	}
	if err != nil {
		return nil, err
	}
	return sound, nil
}

// GetSoundByBlob finds a live sound referencing the blob. Used for upload
// idempotency.
func (c *Client) GetSoundByBlob(ctx context.Context, hash string) (*Sound, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	sound := &Sound{}
	err = db.WithContext(ctx).Where("blob_hash = ? AND is_deleted = false", hash).First(sound).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("no sound references blob %s", hash))
	}
	if err != nil {
		return nil, err
	}
	return sound, nil
}

// ListSounds returns a page of live sounds plus the unpaged total.
func (c *Client) ListSounds(ctx context.Context, page, pageSize int) ([]*Sound, int64, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, 0, err
	}
	query := db.WithContext(ctx).Model(&Sound{}).Where("is_deleted = false")
	var total int64
	if err = query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var sounds []*Sound
	err = query.Order("id").Limit(pageSize).Offset((page - 1) * pageSize).Find(&sounds).Error
	return sounds, total, err
}

// SetSoundDeleted soft-deletes or restores a sound.
func (c *Client) SetSoundDeleted(ctx context.Context, soundId int64, deleted bool) error {
	return c.setMediaDeleted(ctx, &Sound{}, "sound", soundId, deleted)
}

// CreateSprite inserts a sprite row.
func (c *Client) CreateSprite(ctx context.Context, sprite *Sprite) error {
	if sprite == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	if err = db.WithContext(ctx).Create(sprite).Error; err != nil {
		klog.ErrorS(err, "failed to create sprite", "name", sprite.Name)
		return err
	}
	return nil
}

// GetSprite retrieves a live sprite.
func (c *Client) GetSprite(ctx context.Context, spriteId int64) (*Sprite, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	sprite := &Sprite{}
	err = db.WithContext(ctx).Where("id = ? AND is_deleted = false", spriteId).First(sprite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("sprite %d not found", spriteId))
	}
	if err != nil {
		return nil, err
	}
	return sprite, nil
}

// ListSprites returns a page of live sprites plus the unpaged total.
func (c *Client) ListSprites(ctx context.Context, page, pageSize int) ([]*Sprite, int64, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, 0, err
	}
	query := db.WithContext(ctx).Model(&Sprite{}).Where("is_deleted = false")
	var total int64
	if err = query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var sprites []*Sprite
	err = query.Order("id").Limit(pageSize).Offset((page - 1) * pageSize).Find(&sprites).Error
	return sprites, total, err
}

// SetSpriteDeleted soft-deletes or restores a sprite.
func (c *Client) SetSpriteDeleted(ctx context.Context, spriteId int64, deleted bool) error {
	return c.setMediaDeleted(ctx, &Sprite{}, "sprite", spriteId, deleted)
}

func (c *Client) setMediaDeleted(ctx context.Context, model interface{}, kind string, id int64, deleted bool) error {
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
	res := db.WithContext(ctx).Model(model).
		Where("id = ? AND is_deleted = ?", id, !deleted).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return commonerrors.NewNotFoundWithMessage(fmt.Sprintf("%s %d not found", kind, id))
	}
	return nil
}

// PurgeSound permanently removes a recycled sound, its thumbnail row and
// membership edges.
func (c *Client) PurgeSound(ctx context.Context, soundId int64) error {
	return c.purgeMedia(ctx, &Sound{}, OwnerSound, MemberSound, soundId)
}

// PurgeSprite permanently removes a recycled sprite, its thumbnail row and
// membership edges.
func (c *Client) PurgeSprite(ctx context.Context, spriteId int64) error {
	return c.purgeMedia(ctx, &Sprite{}, OwnerSprite, MemberSprite, spriteId)
}

func (c *Client) purgeMedia(ctx context.Context, model interface{}, ownerKind, memberKind string, id int64) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND is_deleted = true", id).Find(model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return commonerrors.NewPrecondition(
				fmt.Sprintf("%s %d is not in the recycle bin", ownerKind, id))
		}
		if err := tx.Where("owner_kind = ? AND owner_id = ?", ownerKind, id).
			Delete(&Thumbnail{}).Error; err != nil {
			return err
		}
		if err := tx.Where("member_kind = ? AND member_id = ?", memberKind, id).
			Delete(&PackMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("member_kind = ? AND member_id = ?", memberKind, id).
			Delete(&ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(model).Error
	})
}
