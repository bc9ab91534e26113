/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package processors

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"k8s.io/klog/v2"

	commonconfig "github.com/meshstash/meshstash/pkg/config"
	"github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	"github.com/meshstash/meshstash/pkg/worker"
)

const thumbnailSize = 512

// ModelThumbnail renders a poster image for a model version by invoking the
// configured external renderer, then fits the frame into the thumbnail box.
// The renderer command is a template with {input} and {output} placeholders.
type ModelThumbnail struct {
	rendererCommand string
}

func NewModelThumbnail() *ModelThumbnail {
	return &ModelThumbnail{rendererCommand: commonconfig.GetWorkerRendererCommand()}
}

func (p *ModelThumbnail) Kind() string {
	return client.KindModelThumbnail
}

func (p *ModelThumbnail) Process(ctx context.Context, job *client.Job, blobs worker.Blobs) (*worker.Result, error) {
	if p.rendererCommand == "" {
		return nil, commonerrors.NewNotAvailable("no renderer command configured")
	}
	meta := decodePayload(job)

	dir, err := os.MkdirTemp("", "meshstash-render-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	ext := strings.ToLower(filepath.Ext(meta.FileName))
	if ext == "" {
		ext = ".obj"
	}
	inputPath := filepath.Join(dir, "input"+ext)
	outputPath := filepath.Join(dir, "render.png")
	if err = fetchToFile(ctx, blobs, job.BlobHash, inputPath); err != nil {
		return nil, err
	}

	args := renderArgs(p.rendererCommand, inputPath, outputPath)
	if len(args) == 0 {
		return nil, commonerrors.NewNotAvailable("renderer command is empty after expansion")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("renderer failed: %v: %s", err, tail(output, 512))
	}

	frame, err := imaging.Open(outputPath)
	if err != nil {
		return nil, fmt.Errorf("renderer produced no readable frame: %v", err)
	}
	thumb := imaging.Fit(frame, thumbnailSize, thumbnailSize, imaging.Lanczos)

	encoded := &bytes.Buffer{}
	if err = imaging.Encode(encoded, thumb, imaging.PNG); err != nil {
		return nil, err
	}
	hash, size, err := blobs.StoreBlob(ctx, "thumbnail.png", bytes.NewReader(encoded.Bytes()))
	if err != nil {
		return nil, err
	}
	klog.InfoS("model thumbnail rendered", "version", job.TargetId,
		"width", thumb.Bounds().Dx(), "height", thumb.Bounds().Dy(), "bytes", size)
	return &worker.Result{
		OutputBlobHash: hash,
		Width:          thumb.Bounds().Dx(),
		Height:         thumb.Bounds().Dy(),
		SizeBytes:      size,
	}, nil
}

// renderArgs expands the placeholders and splits the template into argv.
// Paths are substituted after splitting, so spaces in temp paths survive.
func renderArgs(template, input, output string) []string {
	fields := strings.Fields(template)
	for i, field := range fields {
		field = strings.ReplaceAll(field, "{input}", input)
		field = strings.ReplaceAll(field, "{output}", output)
		fields[i] = field
	}
	return fields
}

func tail(output []byte, limit int) string {
	s := strings.TrimSpace(string(output))
	if len(s) > limit {
		s = "..." + s[len(s)-limit:]
	}
	return s
}
