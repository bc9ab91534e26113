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

// ListModelsOptions filters the default model listing. Zero ids disable the
// corresponding membership filter.
type ListModelsOptions struct {
	Page         int
	PageSize     int
	PackId       int64
	ProjectId    int64
	TextureSetId int64
}

// CreateModel inserts a model row.
func (c *Client) CreateModel(ctx context.Context, model *Model) error {
	if model == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	if err = db.WithContext(ctx).Create(model).Error; err != nil {
		klog.ErrorS(err, "failed to create model", "name", model.DisplayName)
		return err
	}
	return nil
}

// GetModel retrieves a model with its live versions and their files.
func (c *Client) GetModel(ctx context.Context, modelId int64, includeDeleted bool) (*Model, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	model := &Model{}
	query := db.WithContext(ctx).
		Preload("Versions", "is_deleted = false", func(db *gorm.DB) *gorm.DB {
			return db.Order("version_number")
		}).
		Preload("Versions.Files", "is_deleted = false").
		Where("id = ?", modelId)
	if !includeDeleted {
		query = query.Where("is_deleted = false")
	}
	err = query.First(model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, commonerrors.NewModelNotFound(fmt.Sprintf("model %d not found", modelId))
	}
	if err != nil {
		return nil, err
	}
	return model, nil
}

// ListModels returns a page of live models plus the unpaged total.
func (c *Client) ListModels(ctx context.Context, opts ListModelsOptions) ([]*Model, int64, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, 0, err
	}
	query := db.WithContext(ctx).Model(&Model{}).Where("is_deleted = false")
	if opts.PackId > 0 {
		query = query.Where(fmt.Sprintf(
			"id IN (SELECT member_id FROM %s WHERE pack_id = ? AND member_kind = ?)", TablePackMember),
			opts.PackId, MemberModel)
	}
	if opts.ProjectId > 0 {
		query = query.Where(fmt.Sprintf(
			"id IN (SELECT member_id FROM %s WHERE project_id = ? AND member_kind = ?)", TableProjectMember),
			opts.ProjectId, MemberModel)
	}
	if opts.TextureSetId > 0 {
		query = query.Where(fmt.Sprintf(
			"id IN (SELECT model_id FROM %s WHERE id IN (SELECT version_id FROM %s WHERE texture_set_id = ?))",
			TableModelVersion, TableModelTextureSet), opts.TextureSetId)
	}

	var total int64
	if err = query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []*Model
	err = query.Order("id").
		Limit(opts.PageSize).
		Offset((opts.Page - 1) * opts.PageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	return models, total, nil
}

// UpdateModelMetadata updates the mutable descriptive fields. Used by the
// classifier hook and the rename endpoint.
func (c *Client) UpdateModelMetadata(ctx context.Context, modelId int64, fields map[string]interface{}) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	fields["update_time"] = time.Now().UTC()
	res := db.WithContext(ctx).Model(&Model{}).
		Where("id = ? AND is_deleted = false", modelId).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return commonerrors.NewModelNotFound(fmt.Sprintf("model %d not found", modelId))
	}
	return nil
}

// CreateModelVersion allocates the next version number under a per-model
// advisory lock so concurrent creators cannot collide or leave gaps. The first
// version of a model becomes active. Returns the version and whether it is the
// model's first.
func (c *Client) CreateModelVersion(ctx context.Context, modelId int64, description string) (*ModelVersion, bool, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, false, err
	}
	version := &ModelVersion{ModelId: modelId, Description: description}
	first := false
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", modelId).Error; err != nil {
			return err
		}
		model := &Model{}
		if err := tx.Where("id = ? AND is_deleted = false", modelId).First(model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return commonerrors.NewModelNotFound(fmt.Sprintf("model %d not found", modelId))
			}
			return err
		}
		var maxNumber int
		if err := tx.Model(&ModelVersion{}).
			Where("model_id = ?", modelId).
			Select("COALESCE(MAX(version_number), 0)").
			Scan(&maxNumber).Error; err != nil {
			return err
		}
		version.VersionNumber = maxNumber + 1
		if err := tx.Create(version).Error; err != nil {
			return err
		}
		if model.ActiveVersionId == nil {
			first = true
			return tx.Model(&Model{}).Where("id = ?", modelId).
				Updates(map[string]interface{}{
					"active_version_id": version.Id,
					"update_time":       time.Now().UTC(),
				}).Error
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return version, first, nil
}

// GetModelVersion retrieves a live version with its files.
func (c *Client) GetModelVersion(ctx context.Context, versionId int64) (*ModelVersion, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	version := &ModelVersion{}
	err = db.WithContext(ctx).
		Preload("Files", "is_deleted = false").
		Where("id = ? AND is_deleted = false", versionId).
		First(version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, commonerrors.NewVersionNotFound(fmt.Sprintf("version %d not found", versionId))
	}
	if err != nil {
		return nil, err
	}
	return version, nil
}

// AddVersionFile attaches a role-tagged blob reference to a version. Replaying
// the same attachment returns the existing row.
func (c *Client) AddVersionFile(ctx context.Context, file *VersionFile) (*VersionFile, bool, error) {
	if file == nil {
		return nil, false, commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return nil, false, err
	}
	existing := &VersionFile{}
	err = db.WithContext(ctx).
		Where("version_id = ? AND blob_hash = ? AND role = ? AND is_deleted = false",
			file.VersionId, file.BlobHash, file.Role).
		First(existing).Error
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if err = db.WithContext(ctx).Create(file).Error; err != nil {
		klog.ErrorS(err, "failed to add version file", "version", file.VersionId, "hash", file.BlobHash)
		return nil, false, err
	}
	return file, false, nil
}

// GetVersionFileByHash finds a live role-tagged reference to the blob. Used
// for upload idempotency: replaying the same bytes resolves to the original
// attachment.
func (c *Client) GetVersionFileByHash(ctx context.Context, hash, role string) (*VersionFile, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	file := &VersionFile{}
	err = db.WithContext(ctx).
		Where("blob_hash = ? AND role = ? AND is_deleted = false", hash, role).
		Order("id").
		First(file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, commonerrors.NewNotFoundWithMessage(
			fmt.Sprintf("no %s file references blob %s", role, hash))
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

// SetActiveVersion swaps the model's active-version pointer after verifying the
// target version belongs to the model. Returns the previous pointer (0 when
// unset).
func (c *Client) SetActiveVersion(ctx context.Context, modelId, versionId int64) (int64, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return 0, err
	}
	var prev int64
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := &Model{}
		if err := tx.Where("id = ? AND is_deleted = false", modelId).First(model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return commonerrors.NewModelNotFound(fmt.Sprintf("model %d not found", modelId))
			}
			return err
		}
		version := &ModelVersion{}
		if err := tx.Where("id = ? AND model_id = ? AND is_deleted = false", versionId, modelId).
			First(version).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return commonerrors.NewVersionNotFound(
					fmt.Sprintf("version %d does not belong to model %d", versionId, modelId))
			}
			return err
		}
		if model.ActiveVersionId != nil {
			prev = *model.ActiveVersionId
		}
		return tx.Model(&Model{}).Where("id = ?", modelId).
			Updates(map[string]interface{}{
				"active_version_id": versionId,
				"update_time":       time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return 0, err
	}
	return prev, nil
}

// SetDefaultTextureSet updates the default-texture-set pointer. A non-nil
// target must be associated with one of the model's versions.
func (c *Client) SetDefaultTextureSet(ctx context.Context, modelId int64, textureSetId *int64) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := &Model{}
		if err := tx.Where("id = ? AND is_deleted = false", modelId).First(model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return commonerrors.NewModelNotFound(fmt.Sprintf("model %d not found", modelId))
			}
			return err
		}
		if textureSetId != nil {
			var n int64
			if err := tx.Table(TableModelTextureSet).
				Where(fmt.Sprintf("texture_set_id = ? AND version_id IN (SELECT id FROM %s WHERE model_id = ?)",
					TableModelVersion), *textureSetId, modelId).
				Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return commonerrors.NewPrecondition(fmt.Sprintf(
					"texture set %d is not associated with model %d", *textureSetId, modelId))
			}
		}
		return tx.Model(&Model{}).Where("id = ?", modelId).
			Updates(map[string]interface{}{
				"default_texture_set_id": textureSetId,
				"update_time":            time.Now().UTC(),
			}).Error
	})
}

// SetModelDeleted soft-deletes or restores a model.
func (c *Client) SetModelDeleted(ctx context.Context, modelId int64, deleted bool) error {
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
	res := db.WithContext(ctx).Model(&Model{}).
		Where("id = ? AND is_deleted = ?", modelId, !deleted).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return commonerrors.NewModelNotFound(fmt.Sprintf("model %d not found", modelId))
	}
	return nil
}

// PurgeModel permanently removes a recycled model and its owned rows:
// versions, version files, thumbnails, association edges. Blobs are left for
// the GC pass. Refuses unless the model is soft-deleted.
func (c *Client) PurgeModel(ctx context.Context, modelId int64) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := &Model{}
		if err := tx.Where("id = ? AND is_deleted = true", modelId).First(model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return commonerrors.NewPrecondition(
					fmt.Sprintf("model %d is not in the recycle bin", modelId))
			}
			return err
		}
		versionIds := tx.Model(&ModelVersion{}).Where("model_id = ?", modelId).Select("id")
		if err := tx.Where("owner_kind = ? AND owner_id IN (?)", OwnerModelVersion, versionIds).
			Delete(&Thumbnail{}).Error; err != nil {
			return err
		}
		if err := tx.Where("version_id IN (?)", versionIds).Delete(&VersionFile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("version_id IN (?)", versionIds).Delete(&ModelTextureSet{}).Error; err != nil {
			return err
		}
		if err := tx.Where("member_kind = ? AND member_id = ?", MemberModel, modelId).
			Delete(&PackMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("member_kind = ? AND member_id = ?", MemberModel, modelId).
			Delete(&ProjectMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("model_id = ?", modelId).Delete(&ModelVersion{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", modelId).Delete(&Model{}).Error
	})
}

// replacementVersionId picks the version to promote when the active one goes
// away: the newest remaining live version, or nil when none remain.
func replacementVersionId(remaining []*ModelVersion) *int64 {
	var best *ModelVersion
	for _, v := range remaining {
		if best == nil || v.VersionNumber > best.VersionNumber {
			best = v
		}
	}
	if best == nil {
		return nil
	}
	return &best.Id
}

// PurgeModelVersion permanently removes a recycled version with its files,
// thumbnail and association edges. If the model's active pointer referenced
// the version, the newest remaining live version is promoted, so a model
// with versions is never left without an active one.
func (c *Client) PurgeModelVersion(ctx context.Context, versionId int64) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		version := &ModelVersion{}
		if err := tx.Where("id = ? AND is_deleted = true", versionId).First(version).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return commonerrors.NewPrecondition(
					fmt.Sprintf("version %d is not in the recycle bin", versionId))
			}
			return err
		}
		if err := tx.Where("owner_kind = ? AND owner_id = ?", OwnerModelVersion, versionId).
			Delete(&Thumbnail{}).Error; err != nil {
			return err
		}
		if err := tx.Where("version_id = ?", versionId).Delete(&VersionFile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("version_id = ?", versionId).Delete(&ModelTextureSet{}).Error; err != nil {
			return err
		}
		model := &Model{}
		if err := tx.Where("id = ?", version.ModelId).First(model).Error; err != nil {
			return err
		}
		if model.ActiveVersionId != nil && *model.ActiveVersionId == versionId {
			var remaining []*ModelVersion
			if err := tx.Where("model_id = ? AND id <> ? AND is_deleted = false",
				version.ModelId, versionId).Find(&remaining).Error; err != nil {
				return err
			}
			if err := tx.Model(&Model{}).Where("id = ?", version.ModelId).
				Update("active_version_id", replacementVersionId(remaining)).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", versionId).Delete(&ModelVersion{}).Error
	})
}

// SetVersionDeleted soft-deletes or restores a single version.
func (c *Client) SetVersionDeleted(ctx context.Context, versionId int64, deleted bool) error {
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
	res := db.WithContext(ctx).Model(&ModelVersion{}).
		Where("id = ? AND is_deleted = ?", versionId, !deleted).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return commonerrors.NewVersionNotFound(fmt.Sprintf("version %d not found", versionId))
	}
	return nil
}

// SetVersionFileDeleted soft-deletes or restores a version file.
func (c *Client) SetVersionFileDeleted(ctx context.Context, fileId int64, deleted bool) error {
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
	res := db.WithContext(ctx).Model(&VersionFile{}).
		Where("id = ? AND is_deleted = ?", fileId, !deleted).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return commonerrors.NewNotFoundWithMessage(fmt.Sprintf("file %d not found", fileId))
	}
	return nil
}
