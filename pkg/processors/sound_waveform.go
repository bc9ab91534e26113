/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package processors

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/meshstash/meshstash/pkg/database/client"
	"github.com/meshstash/meshstash/pkg/worker"
)

const (
	waveformWidth  = 800
	waveformHeight = 160

	// maxWavBytes caps how much audio a single job pulls into memory.
	maxWavBytes = 256 << 20
)

// SoundWaveform extracts per-bucket peak amplitudes from PCM WAV data and
// renders them as a waveform strip.
type SoundWaveform struct{}

func NewSoundWaveform() *SoundWaveform {
	return &SoundWaveform{}
}

func (p *SoundWaveform) Kind() string {
	return client.KindSoundWaveform
}

func (p *SoundWaveform) Process(ctx context.Context, job *client.Job, blobs worker.Blobs) (*worker.Result, error) {
	meta := decodePayload(job)
	if ext := strings.ToLower(filepath.Ext(meta.FileName)); ext != "" && ext != ".wav" {
		return nil, fmt.Errorf("waveform rendering supports wav input, got %s", ext)
	}

	in, err := blobs.FetchBlob(ctx, job.BlobHash)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	data, err := io.ReadAll(io.LimitReader(in, maxWavBytes))
	if err != nil {
		return nil, err
	}

	peaks, err := wavPeaks(data, waveformWidth)
	if err != nil {
		return nil, err
	}
	strip := renderWaveform(peaks, waveformWidth, waveformHeight)

	encoded := &bytes.Buffer{}
	if err = imaging.Encode(encoded, strip, imaging.PNG); err != nil {
		return nil, err
	}
	hash, size, err := blobs.StoreBlob(ctx, "waveform.png", bytes.NewReader(encoded.Bytes()))
	if err != nil {
		return nil, err
	}
	return &worker.Result{
		OutputBlobHash: hash,
		Width:          waveformWidth,
		Height:         waveformHeight,
		SizeBytes:      size,
	}, nil
}

// wavPeaks parses a RIFF/WAVE container holding 16-bit PCM and folds the
// samples into buckets of max absolute amplitude, normalized to [0, 1].
func wavPeaks(data []byte, buckets int) ([]float64, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a riff wave file")
	}
	var (
		bitsPerSample uint16
		channels      uint16
		samples       []byte
		sawFormat     bool
	)
	offset := 12
	for offset+8 <= len(data) {
		chunkId := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}
		switch chunkId {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("malformed fmt chunk")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, fmt.Errorf("unsupported wav encoding %d, want pcm", format)
			}
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			sawFormat = true
		case "data":
			samples = data[body : body+chunkSize]
		}
		// chunks are word-aligned
		offset = body + chunkSize + chunkSize%2
	}
	if !sawFormat || samples == nil {
		return nil, fmt.Errorf("wav file missing fmt or data chunk")
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported sample width %d, want 16", bitsPerSample)
	}
	if channels == 0 {
		return nil, fmt.Errorf("wav file reports zero channels")
	}

	frameSize := 2 * int(channels)
	frames := len(samples) / frameSize
	if frames == 0 {
		return nil, fmt.Errorf("wav file has no audio frames")
	}
	peaks := make([]float64, buckets)
	for frame := 0; frame < frames; frame++ {
		bucket := frame * buckets / frames
		base := frame * frameSize
		for ch := 0; ch < int(channels); ch++ {
			sample := int16(binary.LittleEndian.Uint16(samples[base+2*ch : base+2*ch+2]))
			amplitude := float64(sample) / 32768
			if amplitude < 0 {
				amplitude = -amplitude
			}
			if amplitude > peaks[bucket] {
				peaks[bucket] = amplitude
			}
		}
	}
	return peaks, nil
}

// renderWaveform draws symmetric peak bars around the horizontal midline.
func renderWaveform(peaks []float64, width, height int) *image.NRGBA {
	background := color.NRGBA{R: 24, G: 26, B: 30, A: 255}
	bar := color.NRGBA{R: 96, G: 200, B: 255, A: 255}
	midline := color.NRGBA{R: 60, G: 64, B: 72, A: 255}

	img := imaging.New(width, height, background)
	mid := height / 2
	for x := 0; x < width && x < len(peaks); x++ {
		extent := int(peaks[x] * float64(mid-2))
		if extent < 1 {
			img.Set(x, mid, midline)
			continue
		}
		for y := mid - extent; y <= mid+extent; y++ {
			img.Set(x, y, bar)
		}
	}
	return img
}
