/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package processors holds the built-in job processors a worker can run:
// model thumbnails through an external renderer, texture-set previews,
// sound waveforms, and the mesh-analysis placeholder.
package processors

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/meshstash/meshstash/pkg/database/client"
	"github.com/meshstash/meshstash/pkg/worker"
)

// payload mirrors the job payload the server writes at enqueue time.
type payload struct {
	ModelId      int64  `json:"modelId,omitempty"`
	VersionId    int64  `json:"versionId,omitempty"`
	SoundId      int64  `json:"soundId,omitempty"`
	TextureSetId int64  `json:"textureSetId,omitempty"`
	FileName     string `json:"fileName,omitempty"`
}

func decodePayload(job *client.Job) payload {
	p := payload{}
	_ = json.Unmarshal(job.Payload, &p)
	return p
}

// fetchToFile streams the job's input blob into a local path.
func fetchToFile(ctx context.Context, blobs worker.Blobs, hash, path string) error {
	in, err := blobs.FetchBlob(ctx, hash)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// DefaultRegistry bundles every built-in processor.
func DefaultRegistry() (*worker.Registry, error) {
	registry := worker.NewRegistry()
	for _, p := range []worker.Processor{
		NewModelThumbnail(),
		NewTextureSetThumbnail(),
		NewSoundWaveform(),
		NewMeshAnalysis(),
	} {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
