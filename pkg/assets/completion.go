/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package assets

import (
	"context"
	"encoding/json"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/meshstash/meshstash/pkg/database/client"
)

// jobResult is the result document derivation processors report on success.
type jobResult struct {
	OutputBlobHash string   `json:"outputBlobHash"`
	Width          int      `json:"width,omitempty"`
	Height         int      `json:"height,omitempty"`
	SizeBytes      int64    `json:"sizeBytes,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Description    string   `json:"description,omitempty"`
	Confidence     float64  `json:"confidence,omitempty"`
}

type jobPayload struct {
	ModelId      int64  `json:"modelId,omitempty"`
	VersionId    int64  `json:"versionId,omitempty"`
	SoundId      int64  `json:"soundId,omitempty"`
	TextureSetId int64  `json:"textureSetId,omitempty"`
	FileName     string `json:"fileName,omitempty"`
}

// WaveformFileUrl is the stable URL of a sound's waveform image.
func WaveformFileUrl(soundId int64) string {
	return fmt.Sprintf("/sounds/%d/waveform/file", soundId)
}

// OwnerOfJobKind maps a derivation job kind to the thumbnail owner it writes.
func OwnerOfJobKind(kind string) (string, bool) {
	switch kind {
	case client.KindModelThumbnail:
		return client.OwnerModelVersion, true
	case client.KindTextureSetThumbnail:
		return client.OwnerTextureSet, true
	case client.KindSoundWaveform:
		return client.OwnerSound, true
	default:
		return "", false
	}
}

// CompletionHook returns the side effect to install on the queue: write the
// derived row from the job result, then push the entity-scoped notification.
// Runs after the DONE transition committed, so a crash between the two leaves
// a completed job whose derived state catches up on regenerate.
func (s *Service) CompletionHook(broadcaster Broadcaster) func(context.Context, *client.Job) {
	return func(ctx context.Context, job *client.Job) {
		if job.Kind == client.KindMeshAnalysis {
			s.applyAnalysis(ctx, job)
			return
		}
		owner, ok := OwnerOfJobKind(job.Kind)
		if !ok {
			return
		}
		var result jobResult
		if err := json.Unmarshal([]byte(job.Result.String), &result); err != nil {
			klog.ErrorS(err, "failed to decode job result", "job", job.Id, "kind", job.Kind)
			return
		}
		if result.OutputBlobHash == "" {
			klog.Warningf("job %d completed without an output blob, kind: %s", job.Id, job.Kind)
			return
		}
		err := s.db.SetThumbnailReady(ctx, owner, job.TargetId,
			result.OutputBlobHash, result.Width, result.Height, result.SizeBytes)
		if err != nil {
			klog.ErrorS(err, "failed to write derived state", "job", job.Id, "owner", owner, "ownerId", job.TargetId)
			return
		}
		if broadcaster == nil {
			return
		}
		var payload jobPayload
		_ = json.Unmarshal(job.Payload, &payload)
		switch job.Kind {
		case client.KindModelThumbnail:
			url := ""
			if payload.ModelId > 0 {
				url = ThumbnailFileUrl(payload.ModelId)
			}
			broadcaster.ThumbnailStatusChanged(owner, job.TargetId, client.ThumbnailReady, url, "")
		case client.KindSoundWaveform:
			url := WaveformFileUrl(job.TargetId)
			broadcaster.ThumbnailStatusChanged(owner, job.TargetId, client.ThumbnailReady, url, "")
			broadcaster.WaveformReady(job.TargetId, url)
		case client.KindTextureSetThumbnail:
			broadcaster.ThumbnailStatusChanged(owner, job.TargetId, client.ThumbnailReady, "", "")
		}
	}
}

// FailureHook returns the side effect for jobs that terminate FAILED: the
// derived row records the last error and subscribers learn about it.
func (s *Service) FailureHook(broadcaster Broadcaster) func(context.Context, *client.Job) {
	return func(ctx context.Context, job *client.Job) {
		owner, ok := OwnerOfJobKind(job.Kind)
		if !ok {
			return
		}
		message := job.LastError.String
		if err := s.db.SetThumbnailFailed(ctx, owner, job.TargetId, message); err != nil {
			klog.ErrorS(err, "failed to record derivation failure", "job", job.Id, "owner", owner, "ownerId", job.TargetId)
			return
		}
		if broadcaster != nil {
			broadcaster.ThumbnailStatusChanged(owner, job.TargetId, client.ThumbnailFailed, "", message)
		}
	}
}

// applyAnalysis feeds a mesh-analysis result into the classification gates.
func (s *Service) applyAnalysis(ctx context.Context, job *client.Job) {
	var result jobResult
	if err := json.Unmarshal([]byte(job.Result.String), &result); err != nil {
		klog.ErrorS(err, "failed to decode analysis result", "job", job.Id)
		return
	}
	var payload jobPayload
	_ = json.Unmarshal(job.Payload, &payload)
	if payload.ModelId <= 0 {
		return
	}
	err := s.ApplyClassification(ctx, payload.ModelId, result.Tags, result.Description, result.Confidence)
	if err != nil {
		klog.ErrorS(err, "failed to apply classification", "model", payload.ModelId)
	}
}
