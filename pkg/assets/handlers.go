/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package assets

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/meshstash/meshstash/pkg/database/client"
	"github.com/meshstash/meshstash/pkg/events"
	"github.com/meshstash/meshstash/pkg/queue"
	utilsjson "github.com/meshstash/meshstash/pkg/utils/json"
)

// RegisterHandlers wires the domain events to their side effects: uploads
// enqueue derivation jobs, pointer changes reach the push fabric. Handlers run
// synchronously inside the publishing operation; failures are advisory.
func RegisterHandlers(bus *events.Bus, db *client.Client, q *queue.Service, broadcaster Broadcaster) {
	bus.Subscribe(events.EventModelUploaded, func(ctx context.Context, e events.Event) error {
		event := e.(events.ModelUploaded)
		if _, err := db.EnsureThumbnail(ctx, client.OwnerModelVersion, event.VersionId); err != nil {
			return err
		}
		payload := utilsjson.MarshalSilently(jobPayload{
			ModelId:   event.ModelId,
			VersionId: event.VersionId,
			FileName:  event.FileName,
		})
		_, _, err := q.Enqueue(ctx, client.KindModelThumbnail, event.VersionId, event.BlobHash, payload, 0)
		return err
	})

	bus.Subscribe(events.EventSoundUploaded, func(ctx context.Context, e events.Event) error {
		event := e.(events.SoundUploaded)
		if _, err := db.EnsureThumbnail(ctx, client.OwnerSound, event.SoundId); err != nil {
			return err
		}
		payload := utilsjson.MarshalSilently(jobPayload{
			SoundId:  event.SoundId,
			FileName: event.FileName,
		})
		_, _, err := q.Enqueue(ctx, client.KindSoundWaveform, event.SoundId, event.BlobHash, payload, 0)
		return err
	})

	bus.Subscribe(events.EventTextureSetChanged, func(ctx context.Context, e events.Event) error {
		event := e.(events.TextureSetChanged)
		if _, err := db.EnsureThumbnail(ctx, client.OwnerTextureSet, event.TextureSetId); err != nil {
			return err
		}
		payload := utilsjson.MarshalSilently(jobPayload{TextureSetId: event.TextureSetId})
		_, _, err := q.Enqueue(ctx, client.KindTextureSetThumbnail, event.TextureSetId, event.BlobHash, payload, 0)
		return err
	})

	bus.Subscribe(events.EventActiveVersionChanged, func(ctx context.Context, e events.Event) error {
		event := e.(events.ActiveVersionChanged)
		if broadcaster != nil {
			broadcaster.ActiveVersionChanged(event.ModelId, event.VersionId, event.PrevVersionId,
				event.ThumbnailReady, event.ThumbnailUrl)
		}
		return nil
	})

	klog.Info("asset event handlers registered")
}
