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

// Packs and projects are containers: membership is association only, never
// ownership.

// CreatePack inserts a pack row. Names are unique within the kind.
func (c *Client) CreatePack(ctx context.Context, pack *Pack) error {
	if pack == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	if err = db.WithContext(ctx).Create(pack).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return commonerrors.NewAlreadyExist(fmt.Sprintf("pack %q already exists", pack.Name))
		}
		klog.ErrorS(err, "failed to create pack", "name", pack.Name)
		return err
	}
	return nil
}

// GetPack retrieves a pack by id.
func (c *Client) GetPack(ctx context.Context, packId int64) (*Pack, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	pack := &Pack{}
	err = db.WithContext(ctx).Where("id = ?", packId).First(pack).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("pack %d not found", packId))
	}
	if err != nil {
		return nil, err
	}
	return pack, nil
}

// ListPacks lists all packs.
func (c *Client) ListPacks(ctx context.Context) ([]*Pack, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	var packs []*Pack
	err = db.WithContext(ctx).Order("id").Find(&packs).Error
	return packs, err
}

// DeletePack removes a pack and its membership edges. Containers have no
// recycle bin; members are untouched.
func (c *Client) DeletePack(ctx context.Context, packId int64) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pack_id = ?", packId).Delete(&PackMember{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", packId).Delete(&Pack{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return commonerrors.NewNotFoundWithMessage(fmt.Sprintf("pack %d not found", packId))
		}
		return nil
	})
}

// AddPackMember adds a member edge. Idempotent.
func (c *Client) AddPackMember(ctx context.Context, member *PackMember) error {
	if member == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(member).Error
}

// RemovePackMember removes a member edge.
func (c *Client) RemovePackMember(ctx context.Context, packId int64, memberKind string, memberId int64) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Where("pack_id = ? AND member_kind = ? AND member_id = ?", packId, memberKind, memberId).
		Delete(&PackMember{}).Error
}

// CreateProject inserts a project row. Names are unique within the kind.
func (c *Client) CreateProject(ctx context.Context, project *Project) error {
	if project == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	if err = db.WithContext(ctx).Create(project).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return commonerrors.NewAlreadyExist(fmt.Sprintf("project %q already exists", project.Name))
		}
		klog.ErrorS(err, "failed to create project", "name", project.Name)
		return err
	}
	return nil
}

// GetProject retrieves a project by id.
func (c *Client) GetProject(ctx context.Context, projectId int64) (*Project, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	project := &Project{}
	err = db.WithContext(ctx).Where("id = ?", projectId).First(project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("project %d not found", projectId))
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}

// ListProjects lists all projects.
func (c *Client) ListProjects(ctx context.Context) ([]*Project, error) {
	db, err := c.GetGormDB()
	if err != nil {
		return nil, err
	}
	var projects []*Project
	err = db.WithContext(ctx).Order("id").Find(&projects).Error
	return projects, err
}

// DeleteProject removes a project and its membership edges.
func (c *Client) DeleteProject(ctx context.Context, projectId int64) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectId).Delete(&ProjectMember{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", projectId).Delete(&Project{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return commonerrors.NewNotFoundWithMessage(fmt.Sprintf("project %d not found", projectId))
		}
		return nil
	})
}

// AddProjectMember adds a member edge. Idempotent.
func (c *Client) AddProjectMember(ctx context.Context, member *ProjectMember) error {
	if member == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(member).Error
}

// RemoveProjectMember removes a member edge.
func (c *Client) RemoveProjectMember(ctx context.Context, projectId int64, memberKind string, memberId int64) error {
	db, err := c.GetGormDB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Where("project_id = ? AND member_kind = ? AND member_id = ?", projectId, memberKind, memberId).
		Delete(&ProjectMember{}).Error
}
