/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package upload

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshstash/meshstash/pkg/blob"
	"github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	"github.com/meshstash/meshstash/pkg/events"
)

// fakeDatabase keeps the asset graph in memory, with the same dedup rules the
// real client enforces.
type fakeDatabase struct {
	nextId   int64
	blobs    map[string]*client.Blob
	models   map[int64]*client.Model
	versions map[int64]*client.ModelVersion
	files    []*client.VersionFile
	batches  []*client.BatchUpload
	sounds   map[int64]*client.Sound
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{
		blobs:    map[string]*client.Blob{},
		models:   map[int64]*client.Model{},
		versions: map[int64]*client.ModelVersion{},
		sounds:   map[int64]*client.Sound{},
	}
}

func (f *fakeDatabase) id() int64 {
	f.nextId++
	return f.nextId
}

func (f *fakeDatabase) UpsertBlob(ctx context.Context, b *client.Blob) (bool, error) {
	if _, ok := f.blobs[b.Hash]; ok {
		return false, nil
	}
	f.blobs[b.Hash] = b
	return true, nil
}

func (f *fakeDatabase) InsertBatchUpload(ctx context.Context, record *client.BatchUpload) error {
	f.batches = append(f.batches, record)
	return nil
}

func (f *fakeDatabase) GetVersionFileByHash(ctx context.Context, hash, role string) (*client.VersionFile, error) {
	for _, file := range f.files {
		if file.BlobHash == hash && file.Role == role {
			return file, nil
		}
	}
	return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("no version file for blob %s", hash))
}

func (f *fakeDatabase) GetModelVersion(ctx context.Context, versionId int64) (*client.ModelVersion, error) {
	version, ok := f.versions[versionId]
	if !ok {
		return nil, commonerrors.NewVersionNotFound(fmt.Sprintf("version %d not found", versionId))
	}
	return version, nil
}

func (f *fakeDatabase) GetModel(ctx context.Context, modelId int64, includeDeleted bool) (*client.Model, error) {
	model, ok := f.models[modelId]
	if !ok {
		return nil, commonerrors.NewModelNotFound(fmt.Sprintf("model %d not found", modelId))
	}
	out := *model
	out.Versions = nil
	for _, version := range f.versions {
		if version.ModelId != modelId {
			continue
		}
		v := *version
		for _, file := range f.files {
			if file.VersionId == v.Id {
				v.Files = append(v.Files, *file)
			}
		}
		out.Versions = append(out.Versions, v)
	}
	return &out, nil
}

func (f *fakeDatabase) CreateModel(ctx context.Context, model *client.Model) error {
	model.Id = f.id()
	f.models[model.Id] = model
	return nil
}

func (f *fakeDatabase) CreateModelVersion(ctx context.Context, modelId int64, description string) (*client.ModelVersion, bool, error) {
	number := 1
	for _, v := range f.versions {
		if v.ModelId == modelId && v.VersionNumber >= number {
			number = v.VersionNumber + 1
		}
	}
	version := &client.ModelVersion{
		Id:            f.id(),
		ModelId:       modelId,
		VersionNumber: number,
		Description:   description,
	}
	f.versions[version.Id] = version
	return version, true, nil
}

func (f *fakeDatabase) AddVersionFile(ctx context.Context, file *client.VersionFile) (*client.VersionFile, bool, error) {
	for _, existing := range f.files {
		if existing.VersionId == file.VersionId && existing.BlobHash == file.BlobHash &&
			existing.Role == file.Role {
			return existing, true, nil
		}
	}
	file.Id = f.id()
	f.files = append(f.files, file)
	return file, false, nil
}

func (f *fakeDatabase) CreateTextureSet(ctx context.Context, set *client.TextureSet) error {
	set.Id = f.id()
	return nil
}

func (f *fakeDatabase) GetTextureSet(ctx context.Context, setId int64) (*client.TextureSet, error) {
	return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("texture set %d not found", setId))
}

func (f *fakeDatabase) AddTexture(ctx context.Context, texture *client.Texture) error {
	return nil
}

func (f *fakeDatabase) GetSoundByBlob(ctx context.Context, hash string) (*client.Sound, error) {
	for _, sound := range f.sounds {
		if sound.BlobHash == hash {
			return sound, nil
		}
	}
	return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("no sound for blob %s", hash))
}

func (f *fakeDatabase) CreateSound(ctx context.Context, sound *client.Sound) error {
	sound.Id = f.id()
	f.sounds[sound.Id] = sound
	return nil
}

func (f *fakeDatabase) CreateSprite(ctx context.Context, sprite *client.Sprite) error {
	sprite.Id = f.id()
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeDatabase, *events.Bus) {
	t.Helper()
	store, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	db := newFakeDatabase()
	bus := events.NewBus()
	return NewService(store, db, bus), db, bus
}

func TestUploadBlobReplayIsIdempotent(t *testing.T) {
	svc, db, bus := newTestService(t)

	uploaded := 0
	bus.Subscribe(events.EventModelUploaded, func(ctx context.Context, event events.Event) error {
		uploaded++
		return nil
	})

	payload := []byte("v 0.0 0.0 0.0\nv 1.0 0.0 0.0\nv 0.0 1.0 0.0\nf 1 2 3\n")
	spec := EntitySpec{Target: TargetNewModel}

	first, err := svc.UploadBlob(context.Background(), "crate.obj", client.BlobKindModel,
		bytes.NewReader(payload), spec)
	require.NoError(t, err)
	assert.True(t, first.IsNewEntity)
	assert.False(t, first.Deduplicated)

	second, err := svc.UploadBlob(context.Background(), "crate.obj", client.BlobKindModel,
		bytes.NewReader(payload), spec)
	require.NoError(t, err)

	// the replay resolves to the original entities and creates nothing
	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.EntityId, second.EntityId)
	assert.Equal(t, first.VersionId, second.VersionId)
	assert.Equal(t, first.BlobHash, second.BlobHash)
	assert.Len(t, db.models, 1)
	assert.Len(t, db.versions, 1)
	assert.Len(t, db.files, 1)
	assert.Equal(t, 1, uploaded)
}

func TestUploadBlobNewVersionReplay(t *testing.T) {
	svc, db, _ := newTestService(t)

	payload := []byte("solid cube\nendsolid cube\n")
	first, err := svc.UploadBlob(context.Background(), "cube.stl", client.BlobKindModel,
		bytes.NewReader(payload), EntitySpec{Target: TargetNewModel})
	require.NoError(t, err)

	replay, err := svc.UploadBlob(context.Background(), "cube.stl", client.BlobKindModel,
		bytes.NewReader(payload), EntitySpec{Target: TargetNewVersion, ModelId: first.EntityId})
	require.NoError(t, err)

	assert.True(t, replay.Deduplicated)
	assert.Equal(t, first.VersionId, replay.VersionId)
	assert.Len(t, db.versions, 1)
}

func TestUploadBlobRejectsBadExtension(t *testing.T) {
	svc, db, _ := newTestService(t)

	_, err := svc.UploadBlob(context.Background(), "malware.exe", client.BlobKindModel,
		bytes.NewReader([]byte("MZ")), EntitySpec{Target: TargetNewModel})
	assert.True(t, commonerrors.IsUnsupportedFormat(err))
	assert.Len(t, db.blobs, 0)
}

func TestUploadBlobRecordsBatchMembership(t *testing.T) {
	svc, db, _ := newTestService(t)

	result, err := svc.UploadBlob(context.Background(), "chair.glb", client.BlobKindModel,
		bytes.NewReader([]byte("glTF")), EntitySpec{Target: TargetNewModel, BatchTag: "batch-7"})
	require.NoError(t, err)

	require.Len(t, db.batches, 1)
	assert.Equal(t, "batch-7", db.batches[0].BatchTag)
	assert.Equal(t, result.BlobHash, db.batches[0].BlobHash)
	assert.Equal(t, result.EntityId, db.batches[0].OwnerId.Int64)
}
