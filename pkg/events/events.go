/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package events

import (
	"context"
	"sync"

	"k8s.io/klog/v2"
)

// Event is a domain event published after a successful asset-graph write.
type Event interface {
	Name() string
}

// Handler reacts to a published event. Handlers run synchronously inside the
// publishing operation so that side effects (job enqueue) are observable only
// after the write they follow is durable.
type Handler func(ctx context.Context, event Event) error

// Bus is the in-process pub/sub fabric. Handler failures are logged and never
// fail the originating operation.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for the named event.
func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// Publish delivers the event to all subscribed handlers in registration order.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Name()]
	b.mu.RUnlock()
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			klog.Warningf("event handler failed, event: %s, err: %v", event.Name(), err)
		}
	}
}

const (
	EventModelUploaded        = "ModelUploaded"
	EventSoundUploaded        = "SoundUploaded"
	EventTextureSetChanged    = "TextureSetChanged"
	EventActiveVersionChanged = "ActiveVersionChanged"
)

// ModelUploaded fires when an upload created or extended a model.
type ModelUploaded struct {
	ModelId     int64
	VersionId   int64
	BlobHash    string
	FileName    string
	IsNewEntity bool
}

func (ModelUploaded) Name() string { return EventModelUploaded }

// SoundUploaded fires when an upload created a sound.
type SoundUploaded struct {
	SoundId     int64
	BlobHash    string
	FileName    string
	IsNewEntity bool
}

func (SoundUploaded) Name() string { return EventSoundUploaded }

// TextureSetChanged fires when a texture set gained or lost textures.
type TextureSetChanged struct {
	TextureSetId int64
	BlobHash     string
}

func (TextureSetChanged) Name() string { return EventTextureSetChanged }

// ActiveVersionChanged fires when the model's active-version pointer moved.
// PrevVersionId is zero when the first version became active.
type ActiveVersionChanged struct {
	ModelId        int64
	VersionId      int64
	PrevVersionId  int64
	ThumbnailReady bool
	ThumbnailUrl   string
}

func (ActiveVersionChanged) Name() string { return EventActiveVersionChanged }
