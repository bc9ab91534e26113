/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"

	"github.com/meshstash/meshstash/pkg/blob"
	"github.com/meshstash/meshstash/pkg/database/client"
	dbutils "github.com/meshstash/meshstash/pkg/database/utils"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	"github.com/meshstash/meshstash/pkg/events"
)

// Target kinds for EntitySpec.
const (
	TargetNewModel    = "model"
	TargetNewVersion  = "modelVersion"
	TargetVersionFile = "versionFile"
	TargetTextureSet  = "textureSet"
	TargetSound       = "sound"
	TargetSprite      = "sprite"
)

// EntitySpec names where an uploaded blob attaches. Together with the blob
// hash it forms the idempotency key of the upload.
type EntitySpec struct {
	Target       string
	ModelId      int64
	VersionId    int64
	TextureSetId int64
	Role         string
	BatchTag     string
}

// Result identifies what the upload attached to.
type Result struct {
	EntityId     int64
	VersionId    int64
	BlobHash     string
	Deduplicated bool
	IsNewEntity  bool
}

// Database is the slice of the asset store the pipeline attaches through.
// *client.Client satisfies it.
type Database interface {
	UpsertBlob(ctx context.Context, blob *client.Blob) (bool, error)
	InsertBatchUpload(ctx context.Context, record *client.BatchUpload) error
	GetVersionFileByHash(ctx context.Context, hash, role string) (*client.VersionFile, error)
	GetModelVersion(ctx context.Context, versionId int64) (*client.ModelVersion, error)
	GetModel(ctx context.Context, modelId int64, includeDeleted bool) (*client.Model, error)
	CreateModel(ctx context.Context, model *client.Model) error
	CreateModelVersion(ctx context.Context, modelId int64, description string) (*client.ModelVersion, bool, error)
	AddVersionFile(ctx context.Context, file *client.VersionFile) (*client.VersionFile, bool, error)
	CreateTextureSet(ctx context.Context, set *client.TextureSet) error
	GetTextureSet(ctx context.Context, setId int64) (*client.TextureSet, error)
	AddTexture(ctx context.Context, texture *client.Texture) error
	GetSoundByBlob(ctx context.Context, hash string) (*client.Sound, error)
	CreateSound(ctx context.Context, sound *client.Sound) error
	CreateSprite(ctx context.Context, sprite *client.Sprite) error
}

// Service is the idempotent upload pipeline: validate, stream into the blob
// store, reuse or create the blob record, attach per the entity spec, emit the
// domain event.
type Service struct {
	store blob.Store
	db    Database
	bus   *events.Bus
}

func NewService(store blob.Store, db Database, bus *events.Bus) *Service {
	return &Service{store: store, db: db, bus: bus}
}

// UploadBlob runs the pipeline. Replaying the same (bytes, spec) returns the
// same identifiers and creates no duplicate versions or jobs.
func (s *Service) UploadBlob(ctx context.Context, fileName, declaredKind string,
	r io.Reader, spec EntitySpec) (*Result, error) {
	if err := ValidateExtension(fileName, declaredKind); err != nil {
		return nil, err
	}

	hash, written, wasNew, err := s.store.Put(ctx, r)
	if err != nil {
		return nil, err
	}
	if _, err = s.db.UpsertBlob(ctx, &client.Blob{
		Hash:         hash,
		SizeBytes:    written,
		MimeHint:     mimeHint(fileName),
		FileNameHint: filepath.Base(fileName),
		Kind:         declaredKind,
	}); err != nil {
		return nil, err
	}
	klog.InfoS("blob persisted", "hash", hash, "bytes", written, "new", wasNew)

	result, err := s.attach(ctx, fileName, hash, spec)
	if err != nil {
		return nil, err
	}
	if spec.BatchTag != "" {
		record := &client.BatchUpload{
			BatchTag:   spec.BatchTag,
			UploadKind: declaredKind,
			BlobHash:   hash,
			OwnerKind:  dbutils.NullString(spec.Target),
			OwnerId:    dbutils.NullInt64(result.EntityId),
		}
		if err = s.db.InsertBatchUpload(ctx, record); err != nil {
			klog.Warningf("failed to record batch upload, tag: %s, err: %v", spec.BatchTag, err)
		}
	}
	return result, nil
}

func (s *Service) attach(ctx context.Context, fileName, hash string, spec EntitySpec) (*Result, error) {
	switch spec.Target {
	case TargetNewModel:
		return s.attachNewModel(ctx, fileName, hash)
	case TargetNewVersion:
		return s.attachNewVersion(ctx, fileName, hash, spec.ModelId)
	case TargetVersionFile:
		return s.attachVersionFile(ctx, fileName, hash, spec)
	case TargetTextureSet:
		return s.attachTextureSet(ctx, fileName, hash, spec.TextureSetId)
	case TargetSound:
		return s.attachSound(ctx, fileName, hash)
	case TargetSprite:
		return s.attachSprite(ctx, fileName, hash)
	default:
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("unknown upload target %q", spec.Target))
	}
}

// attachNewModel creates a model with version 1 around the blob. Replaying
// the same bytes resolves to the original model instead.
func (s *Service) attachNewModel(ctx context.Context, fileName, hash string) (*Result, error) {
	if existing, err := s.db.GetVersionFileByHash(ctx, hash, client.RolePrimary); err == nil {
		version, err := s.db.GetModelVersion(ctx, existing.VersionId)
		if err != nil {
			return nil, err
		}
		return &Result{
			EntityId:     version.ModelId,
			VersionId:    version.Id,
			BlobHash:     hash,
			Deduplicated: true,
		}, nil
	} else if !commonerrors.IsNotFound(err) {
		return nil, err
	}

	model := &client.Model{DisplayName: displayName(fileName)}
	if err := s.db.CreateModel(ctx, model); err != nil {
		return nil, err
	}
	version, _, err := s.db.CreateModelVersion(ctx, model.Id, "initial upload")
	if err != nil {
		return nil, err
	}
	if _, _, err = s.db.AddVersionFile(ctx, &client.VersionFile{
		VersionId: version.Id,
		BlobHash:  hash,
		Role:      client.RolePrimary,
		FileName:  filepath.Base(fileName),
	}); err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.ModelUploaded{
		ModelId:     model.Id,
		VersionId:   version.Id,
		BlobHash:    hash,
		FileName:    filepath.Base(fileName),
		IsNewEntity: true,
	})
	return &Result{EntityId: model.Id, VersionId: version.Id, BlobHash: hash, IsNewEntity: true}, nil
}

// attachNewVersion adds a version to an existing model. If the model already
// has a live version carrying the blob, that version is the answer.
func (s *Service) attachNewVersion(ctx context.Context, fileName, hash string, modelId int64) (*Result, error) {
	if modelId <= 0 {
		return nil, commonerrors.NewBadRequest("modelId must be specified")
	}
	model, err := s.db.GetModel(ctx, modelId, false)
	if err != nil {
		return nil, err
	}
	for _, version := range model.Versions {
		for _, file := range version.Files {
			if file.BlobHash == hash && file.Role == client.RolePrimary {
				return &Result{
					EntityId:     modelId,
					VersionId:    version.Id,
					BlobHash:     hash,
					Deduplicated: true,
				}, nil
			}
		}
	}

	version, _, err := s.db.CreateModelVersion(ctx, modelId, "uploaded version")
	if err != nil {
		return nil, err
	}
	if _, _, err = s.db.AddVersionFile(ctx, &client.VersionFile{
		VersionId: version.Id,
		BlobHash:  hash,
		Role:      client.RolePrimary,
		FileName:  filepath.Base(fileName),
	}); err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.ModelUploaded{
		ModelId:   modelId,
		VersionId: version.Id,
		BlobHash:  hash,
		FileName:  filepath.Base(fileName),
	})
	return &Result{EntityId: modelId, VersionId: version.Id, BlobHash: hash}, nil
}

// attachVersionFile adds a role-tagged reference to a named existing version.
func (s *Service) attachVersionFile(ctx context.Context, fileName, hash string, spec EntitySpec) (*Result, error) {
	if spec.VersionId <= 0 {
		return nil, commonerrors.NewBadRequest("versionId must be specified")
	}
	role := spec.Role
	if role == "" {
		role = client.RoleAuxiliary
	}
	version, err := s.db.GetModelVersion(ctx, spec.VersionId)
	if err != nil {
		return nil, err
	}
	_, deduplicated, err := s.db.AddVersionFile(ctx, &client.VersionFile{
		VersionId: version.Id,
		BlobHash:  hash,
		Role:      role,
		FileName:  filepath.Base(fileName),
	})
	if err != nil {
		return nil, err
	}
	if !deduplicated && role == client.RolePrimary {
		s.bus.Publish(ctx, events.ModelUploaded{
			ModelId:   version.ModelId,
			VersionId: version.Id,
			BlobHash:  hash,
			FileName:  filepath.Base(fileName),
		})
	}
	return &Result{
		EntityId:     version.ModelId,
		VersionId:    version.Id,
		BlobHash:     hash,
		Deduplicated: deduplicated,
	}, nil
}

// attachTextureSet adds the blob as an albedo texture of an existing set, or
// creates a set named after the file.
func (s *Service) attachTextureSet(ctx context.Context, fileName, hash string, setId int64) (*Result, error) {
	isNew := false
	if setId <= 0 {
		set := &client.TextureSet{Name: displayName(fileName), UVScale: 1}
		if err := s.db.CreateTextureSet(ctx, set); err != nil {
			return nil, err
		}
		setId = set.Id
		isNew = true
	} else {
		set, err := s.db.GetTextureSet(ctx, setId)
		if err != nil {
			return nil, err
		}
		for _, texture := range set.Textures {
			if texture.BlobHash == hash && texture.SourceChannel == "" {
				return &Result{EntityId: setId, BlobHash: hash, Deduplicated: true}, nil
			}
		}
	}
	if err := s.db.AddTexture(ctx, &client.Texture{
		TextureSetId: setId,
		BlobHash:     hash,
		TextureType:  client.TextureAlbedo,
	}); err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.TextureSetChanged{TextureSetId: setId, BlobHash: hash})
	return &Result{EntityId: setId, BlobHash: hash, IsNewEntity: isNew}, nil
}

// attachSound creates a sound around the blob, or resolves to the existing
// sound referencing it.
func (s *Service) attachSound(ctx context.Context, fileName, hash string) (*Result, error) {
	if existing, err := s.db.GetSoundByBlob(ctx, hash); err == nil {
		return &Result{EntityId: existing.Id, BlobHash: hash, Deduplicated: true}, nil
	} else if !commonerrors.IsNotFound(err) {
		return nil, err
	}
	sound := &client.Sound{Name: displayName(fileName), BlobHash: hash}
	if err := s.db.CreateSound(ctx, sound); err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.SoundUploaded{
		SoundId:     sound.Id,
		BlobHash:    hash,
		FileName:    filepath.Base(fileName),
		IsNewEntity: true,
	})
	return &Result{EntityId: sound.Id, BlobHash: hash, IsNewEntity: true}, nil
}

func (s *Service) attachSprite(ctx context.Context, fileName, hash string) (*Result, error) {
	sprite := &client.Sprite{Name: displayName(fileName), BlobHash: hash}
	if err := s.db.CreateSprite(ctx, sprite); err != nil {
		return nil, err
	}
	return &Result{EntityId: sprite.Id, BlobHash: hash, IsNewEntity: true}, nil
}

func displayName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func mimeHint(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".gltf":
		return "model/gltf+json"
	case ".glb":
		return "model/gltf-binary"
	case ".obj", ".fbx", ".stl", ".dae", ".3ds":
		return "application/octet-stream"
	default:
		return "application/octet-stream"
	}
}
