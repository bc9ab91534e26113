/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package processors

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

type fakeBlobs struct {
	input      []byte
	stored     []byte
	storedName string
}

func (f *fakeBlobs) FetchBlob(ctx context.Context, hash string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.input)), nil
}

func (f *fakeBlobs) StoreBlob(ctx context.Context, fileName string, r io.Reader) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	f.stored = data
	f.storedName = fileName
	return "feedface", int64(len(data)), nil
}

func buildWav(samples []int16, channels uint16) []byte {
	body := &bytes.Buffer{}
	for _, s := range samples {
		_ = binary.Write(body, binary.LittleEndian, s)
	}
	data := body.Bytes()

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(4+8+16+8+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // pcm
	_ = binary.Write(buf, binary.LittleEndian, channels)
	_ = binary.Write(buf, binary.LittleEndian, uint32(44100))
	_ = binary.Write(buf, binary.LittleEndian, uint32(44100)*uint32(channels)*2)
	_ = binary.Write(buf, binary.LittleEndian, channels*2)
	_ = binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, imaging.Encode(buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestWavPeaks(t *testing.T) {
	// four frames into two buckets: peaks 0.5 then 1.0
	samples := []int16{16384, -8192, 4096, -32768}
	peaks, err := wavPeaks(buildWav(samples, 1), 2)
	require.NoError(t, err)
	require.Len(t, peaks, 2)
	assert.InDelta(t, 0.5, peaks[0], 0.01)
	assert.InDelta(t, 1.0, peaks[1], 0.01)
}

func TestWavPeaksStereoTakesLoudestChannel(t *testing.T) {
	samples := []int16{100, -16384, 200, -16384}
	peaks, err := wavPeaks(buildWav(samples, 2), 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, peaks[0], 0.01)
}

func TestWavPeaksRejectsGarbage(t *testing.T) {
	_, err := wavPeaks([]byte("definitely not audio"), 4)
	assert.Error(t, err)

	wav := buildWav([]int16{1, 2, 3}, 1)
	wav[20] = 3 // ieee float format tag
	_, err = wavPeaks(wav, 4)
	assert.ErrorContains(t, err, "unsupported wav encoding")
}

func TestSoundWaveformProcess(t *testing.T) {
	samples := make([]int16, 4000)
	for i := range samples {
		samples[i] = int16((i % 200) * 150)
	}
	blobs := &fakeBlobs{input: buildWav(samples, 1)}
	job := &client.Job{Id: 1, Kind: client.KindSoundWaveform, TargetId: 9, BlobHash: "abc",
		Payload: []byte(`{"soundId":9,"fileName":"boom.wav"}`)}

	result, err := NewSoundWaveform().Process(context.Background(), job, blobs)
	require.NoError(t, err)
	assert.Equal(t, "feedface", result.OutputBlobHash)
	assert.Equal(t, waveformWidth, result.Width)
	assert.Equal(t, waveformHeight, result.Height)
	assert.Equal(t, "waveform.png", blobs.storedName)

	img, err := imaging.Decode(bytes.NewReader(blobs.stored))
	require.NoError(t, err)
	assert.Equal(t, waveformWidth, img.Bounds().Dx())
}

func TestSoundWaveformRejectsNonWav(t *testing.T) {
	blobs := &fakeBlobs{input: []byte("mp3bytes")}
	job := &client.Job{Kind: client.KindSoundWaveform, Payload: []byte(`{"fileName":"song.mp3"}`)}
	_, err := NewSoundWaveform().Process(context.Background(), job, blobs)
	assert.ErrorContains(t, err, "supports wav input")
}

func TestTextureSetThumbnailProcess(t *testing.T) {
	texture := imaging.New(8, 8, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	blobs := &fakeBlobs{input: encodePNG(t, texture)}
	job := &client.Job{Kind: client.KindTextureSetThumbnail, TargetId: 3, BlobHash: "tex"}

	result, err := NewTextureSetThumbnail().Process(context.Background(), job, blobs)
	require.NoError(t, err)
	assert.Equal(t, spriteSize, result.Width)
	assert.Equal(t, spriteSize, result.Height)

	img, err := imaging.Decode(bytes.NewReader(blobs.stored))
	require.NoError(t, err)
	nrgba := imaging.Clone(img)
	center := nrgba.NRGBAAt(spriteSize/2, spriteSize/2)
	assert.Greater(t, int(center.A), 0)
	assert.Greater(t, int(center.R), int(center.B))
	corner := nrgba.NRGBAAt(1, 1)
	assert.Equal(t, uint8(0), corner.A)
}

func TestTextureSetThumbnailRejectsNonImage(t *testing.T) {
	blobs := &fakeBlobs{input: []byte("not an image")}
	job := &client.Job{Kind: client.KindTextureSetThumbnail, BlobHash: "tex"}
	_, err := NewTextureSetThumbnail().Process(context.Background(), job, blobs)
	assert.ErrorContains(t, err, "not decodable")
}

func TestModelThumbnailRequiresRenderer(t *testing.T) {
	p := &ModelThumbnail{}
	_, err := p.Process(context.Background(), &client.Job{Kind: client.KindModelThumbnail}, &fakeBlobs{})
	assert.True(t, commonerrors.IsNotAvailable(err))
}

func TestModelThumbnailProcess(t *testing.T) {
	// a renderer that just copies its input makes the pipeline testable with
	// a png posing as the model file
	frame := imaging.New(1024, 768, color.NRGBA{R: 10, G: 120, B: 10, A: 255})
	blobs := &fakeBlobs{input: encodePNG(t, frame)}
	job := &client.Job{Kind: client.KindModelThumbnail, TargetId: 5, BlobHash: "mdl",
		Payload: []byte(`{"modelId":2,"versionId":5,"fileName":"cube.obj"}`)}

	p := &ModelThumbnail{rendererCommand: "cp {input} {output}"}
	result, err := p.Process(context.Background(), job, blobs)
	require.NoError(t, err)
	assert.Equal(t, "feedface", result.OutputBlobHash)
	assert.Equal(t, thumbnailSize, result.Width)
	assert.Equal(t, 384, result.Height) // 1024x768 fit into 512 keeps aspect
	assert.Equal(t, "thumbnail.png", blobs.storedName)
}

func TestModelThumbnailRendererFailure(t *testing.T) {
	blobs := &fakeBlobs{input: []byte("obj data")}
	job := &client.Job{Kind: client.KindModelThumbnail, Payload: []byte(`{"fileName":"cube.obj"}`)}
	p := &ModelThumbnail{rendererCommand: "false {input} {output}"}
	_, err := p.Process(context.Background(), job, blobs)
	assert.ErrorContains(t, err, "renderer failed")
}

func TestRenderArgs(t *testing.T) {
	args := renderArgs("blender --background --python render.py -- {input} {output}", "/tmp/in.obj", "/tmp/out.png")
	assert.Equal(t, []string{"blender", "--background", "--python", "render.py", "--", "/tmp/in.obj", "/tmp/out.png"}, args)
	assert.Empty(t, renderArgs("", "a", "b"))
}

func TestMeshAnalysisNotAvailable(t *testing.T) {
	_, err := NewMeshAnalysis().Process(context.Background(), &client.Job{Kind: client.KindMeshAnalysis}, &fakeBlobs{})
	assert.True(t, commonerrors.IsNotAvailable(err))
}

func TestDefaultRegistry(t *testing.T) {
	registry, err := DefaultRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{
		client.KindMeshAnalysis,
		client.KindModelThumbnail,
		client.KindSoundWaveform,
		client.KindTextureSetThumbnail,
	}, registry.AcceptedKinds())
}
