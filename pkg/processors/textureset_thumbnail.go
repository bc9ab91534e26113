/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package processors

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"

	"github.com/meshstash/meshstash/pkg/database/client"
	"github.com/meshstash/meshstash/pkg/worker"
)

const spriteSize = 256

// TextureSetThumbnail previews a texture set as a lit sphere wearing the
// set's albedo map. Pure CPU rendering, no external tools.
type TextureSetThumbnail struct{}

func NewTextureSetThumbnail() *TextureSetThumbnail {
	return &TextureSetThumbnail{}
}

func (p *TextureSetThumbnail) Kind() string {
	return client.KindTextureSetThumbnail
}

func (p *TextureSetThumbnail) Process(ctx context.Context, job *client.Job, blobs worker.Blobs) (*worker.Result, error) {
	in, err := blobs.FetchBlob(ctx, job.BlobHash)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	albedo, err := imaging.Decode(in)
	if err != nil {
		return nil, fmt.Errorf("albedo texture is not decodable: %v", err)
	}

	// resample the texture to the sphere's UV resolution first so the
	// shading loop reads a fixed-size map
	uvMap := image.NewNRGBA(image.Rect(0, 0, spriteSize, spriteSize))
	xdraw.ApproxBiLinear.Scale(uvMap, uvMap.Bounds(), albedo, albedo.Bounds(), xdraw.Over, nil)

	sphere := shadeSphere(uvMap, spriteSize)

	encoded := &bytes.Buffer{}
	if err = imaging.Encode(encoded, sphere, imaging.PNG); err != nil {
		return nil, err
	}
	hash, size, err := blobs.StoreBlob(ctx, "textureset.png", bytes.NewReader(encoded.Bytes()))
	if err != nil {
		return nil, err
	}
	return &worker.Result{
		OutputBlobHash: hash,
		Width:          spriteSize,
		Height:         spriteSize,
		SizeBytes:      size,
	}, nil
}

// shadeSphere lambert-shades a sphere of the given diameter, sampling the
// uv map by normal direction. Light comes from the upper left.
func shadeSphere(uvMap *image.NRGBA, size int) *image.NRGBA {
	img := imaging.New(size, size, color.NRGBA{A: 0})
	radius := float64(size) / 2
	lx, ly, lz := -0.5, -0.6, 0.62
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := (float64(x) + 0.5 - radius) / radius
			dy := (float64(y) + 0.5 - radius) / radius
			rr := dx*dx + dy*dy
			if rr > 1 {
				continue
			}
			dz := math.Sqrt(1 - rr)
			lambert := dx*lx + dy*ly + dz*lz
			if lambert < 0.08 {
				lambert = 0.08
			}
			u := int((dx + 1) / 2 * float64(size-1))
			v := int((dy + 1) / 2 * float64(size-1))
			texel := uvMap.NRGBAAt(u, v)
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(float64(texel.R) * lambert),
				G: uint8(float64(texel.G) * lambert),
				B: uint8(float64(texel.B) * lambert),
				A: 255,
			})
		}
	}
	return img
}
