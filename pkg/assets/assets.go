/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package assets

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/klog/v2"

	"github.com/meshstash/meshstash/pkg/blob"
	commonconfig "github.com/meshstash/meshstash/pkg/config"
	"github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	"github.com/meshstash/meshstash/pkg/events"
	"github.com/meshstash/meshstash/pkg/queue"
	utilsjson "github.com/meshstash/meshstash/pkg/utils/json"
)

// Broadcaster pushes entity-scoped notifications, implemented by the hub.
type Broadcaster interface {
	ActiveVersionChanged(modelId, versionId, prevVersionId int64, thumbnailReady bool, thumbnailUrl string)
	ThumbnailStatusChanged(ownerKind string, ownerId int64, status, url, errMessage string)
	WaveformReady(soundId int64, url string)
}

// Service owns the asset graph: versions, pointers, memberships, soft delete
// and the recycle bin. Writes go through the database client; successful
// writes publish domain events.
type Service struct {
	db    *client.Client
	bus   *events.Bus
	queue *queue.Service
	store blob.Store
}

func NewService(db *client.Client, bus *events.Bus, q *queue.Service, store blob.Store) *Service {
	return &Service{db: db, bus: bus, queue: q, store: store}
}

// ThumbnailFileUrl is the stable URL of a model's thumbnail image.
func ThumbnailFileUrl(modelId int64) string {
	return fmt.Sprintf("/models/%d/thumbnail/file", modelId)
}

// GetModel returns the model with versions and files.
func (s *Service) GetModel(ctx context.Context, modelId int64) (*client.Model, error) {
	return s.db.GetModel(ctx, modelId, false)
}

// ListModels returns a page of models with membership filters applied.
func (s *Service) ListModels(ctx context.Context, opts client.ListModelsOptions) ([]*client.Model, int64, error) {
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.PageSize <= 0 || opts.PageSize > 200 {
		opts.PageSize = 20
	}
	return s.db.ListModels(ctx, opts)
}

// NewVersion allocates the next version number for the model. The first
// version becomes active and announces itself with prev omitted.
func (s *Service) NewVersion(ctx context.Context, modelId int64, description string) (*client.ModelVersion, error) {
	version, first, err := s.db.CreateModelVersion(ctx, modelId, description)
	if err != nil {
		return nil, err
	}
	if first {
		s.bus.Publish(ctx, events.ActiveVersionChanged{
			ModelId:   modelId,
			VersionId: version.Id,
		})
	}
	return version, nil
}

// SetActiveVersion swaps the active-version pointer and publishes the change
// with the thumbnail state of the new target.
func (s *Service) SetActiveVersion(ctx context.Context, modelId, versionId int64) error {
	prev, err := s.db.SetActiveVersion(ctx, modelId, versionId)
	if err != nil {
		return err
	}
	thumbnailReady := false
	thumbnailUrl := ""
	if thumb, err := s.db.GetThumbnail(ctx, client.OwnerModelVersion, versionId); err == nil &&
		thumb.Status == client.ThumbnailReady {
		thumbnailReady = true
		thumbnailUrl = ThumbnailFileUrl(modelId)
	}
	s.bus.Publish(ctx, events.ActiveVersionChanged{
		ModelId:        modelId,
		VersionId:      versionId,
		PrevVersionId:  prev,
		ThumbnailReady: thumbnailReady,
		ThumbnailUrl:   thumbnailUrl,
	})
	return nil
}

// SetDefaultTextureSet validates the association precondition and updates the
// pointer.
func (s *Service) SetDefaultTextureSet(ctx context.Context, modelId int64, textureSetId *int64) error {
	return s.db.SetDefaultTextureSet(ctx, modelId, textureSetId)
}

// DeleteModel soft-deletes the model into the recycle bin.
func (s *Service) DeleteModel(ctx context.Context, modelId int64) error {
	return s.db.SetModelDeleted(ctx, modelId, true)
}

// GetModelThumbnail resolves the derived thumbnail state of the model's
// active version. A model without versions or rows reports Pending.
func (s *Service) GetModelThumbnail(ctx context.Context, modelId int64) (*client.Thumbnail, error) {
	model, err := s.db.GetModel(ctx, modelId, false)
	if err != nil {
		return nil, err
	}
	if model.ActiveVersionId == nil {
		return &client.Thumbnail{
			OwnerKind: client.OwnerModelVersion,
			Status:    client.ThumbnailPending,
		}, nil
	}
	thumb, err := s.db.GetThumbnail(ctx, client.OwnerModelVersion, *model.ActiveVersionId)
	if commonerrors.IsNotFound(err) {
		return &client.Thumbnail{
			OwnerKind: client.OwnerModelVersion,
			OwnerId:   *model.ActiveVersionId,
			Status:    client.ThumbnailPending,
		}, nil
	}
	return thumb, err
}

// OpenThumbnailFile streams the Ready thumbnail image of the model.
func (s *Service) OpenThumbnailFile(ctx context.Context, modelId int64) (*client.Thumbnail, error) {
	thumb, err := s.GetModelThumbnail(ctx, modelId)
	if err != nil {
		return nil, err
	}
	if thumb.Status != client.ThumbnailReady || thumb.OutputBlobHash == "" {
		return nil, commonerrors.NewNotFoundWithMessage(
			fmt.Sprintf("model %d has no ready thumbnail", modelId))
	}
	return thumb, nil
}

// RegenerateThumbnail enqueues a fresh derivation for the active version.
// Dedup in the queue absorbs the request while one is already in flight.
func (s *Service) RegenerateThumbnail(ctx context.Context, modelId int64) (*client.Job, bool, error) {
	model, err := s.db.GetModel(ctx, modelId, false)
	if err != nil {
		return nil, false, err
	}
	if model.ActiveVersionId == nil {
		return nil, false, commonerrors.NewPrecondition(
			fmt.Sprintf("model %d has no active version", modelId))
	}
	version, err := s.db.GetModelVersion(ctx, *model.ActiveVersionId)
	if err != nil {
		return nil, false, err
	}
	primaryHash := ""
	primaryName := ""
	for _, file := range version.Files {
		if file.Role == client.RolePrimary {
			primaryHash = file.BlobHash
			primaryName = file.FileName
			break
		}
	}
	if primaryHash == "" {
		return nil, false, commonerrors.NewPrecondition(
			fmt.Sprintf("version %d has no primary file", version.Id))
	}
	if _, err = s.db.EnsureThumbnail(ctx, client.OwnerModelVersion, version.Id); err != nil {
		return nil, false, err
	}
	payload := utilsjson.MarshalSilently(jobPayload{
		ModelId:   modelId,
		VersionId: version.Id,
		FileName:  primaryName,
	})
	return s.queue.Enqueue(ctx, client.KindModelThumbnail, version.Id, primaryHash, payload, 0)
}

// ApplyClassification attaches classifier tags and description to a model,
// subject to the configured gates. Advisory: disabled classification is not an
// error.
func (s *Service) ApplyClassification(ctx context.Context, modelId int64, tags []string,
	description string, confidence float64) error {
	if !commonconfig.IsClassificationEnabled() {
		return nil
	}
	if confidence < commonconfig.GetClassificationMinConfidence() {
		klog.InfoS("classification below confidence threshold", "model", modelId, "confidence", confidence)
		return nil
	}
	if max := commonconfig.GetClassificationMaxTags(); len(tags) > max {
		tags = tags[:max]
	}
	fields := map[string]interface{}{"tags": strings.Join(tags, ",")}
	if description != "" {
		fields["description"] = description
	}
	return s.db.UpdateModelMetadata(ctx, modelId, fields)
}

// ListRecycled enumerates soft-deleted rows across kinds.
func (s *Service) ListRecycled(ctx context.Context) (*client.RecycledEntries, error) {
	return s.db.ListRecycled(ctx)
}

// Restore clears the soft-delete flags of a recycled row.
func (s *Service) Restore(ctx context.Context, kind string, id int64) error {
	return s.db.RestoreRecycled(ctx, kind, id)
}

// Purge permanently removes a recycled row. For models the terminal jobs of
// its versions go too; blobs stay for the GC pass.
func (s *Service) Purge(ctx context.Context, kind string, id int64) error {
	if kind == client.RecycleModel {
		model, err := s.db.GetModel(ctx, id, true)
		if err == nil {
			for _, version := range model.Versions {
				if err := s.db.DeleteTerminalJobs(ctx,
					[]string{client.KindModelThumbnail, client.KindMeshAnalysis}, version.Id); err != nil {
					klog.Warningf("failed to delete jobs of version %d: %v", version.Id, err)
				}
			}
		}
	}
	return s.db.PurgeRecycled(ctx, kind, id)
}

// SweepUnreferencedBlobs removes store objects whose hash has zero references.
// Maintenance operation, never on the hot path.
func (s *Service) SweepUnreferencedBlobs(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	hashes, err := s.db.ListUnreferencedBlobs(ctx, limit)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, hash := range hashes {
		if err := s.store.Remove(ctx, hash); err != nil {
			klog.Warningf("failed to remove blob %s: %v", hash, err)
			continue
		}
		if err := s.db.DeleteBlob(ctx, hash); err != nil {
			klog.Warningf("failed to delete blob record %s: %v", hash, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		klog.Infof("blob gc removed %d unreferenced blobs", removed)
	}
	return removed, nil
}
