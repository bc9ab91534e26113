/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

func TestValidateExtension(t *testing.T) {
	cases := []struct {
		name     string
		fileName string
		kind     string
		wantErr  bool
	}{
		{"obj model", "cube.obj", client.BlobKindModel, false},
		{"glb model", "scene.GLB", client.BlobKindModel, false},
		{"blend is project not model", "scene.blend", client.BlobKindModel, true},
		{"blend project", "scene.blend", client.BlobKindProjectFile, false},
		{"zip project", "bundle.zip", client.BlobKindProjectFile, false},
		{"png texture", "albedo.png", client.BlobKindTexture, false},
		{"exr texture", "hdr.exr", client.BlobKindTexture, false},
		{"png image", "poster.png", client.BlobKindImage, false},
		{"wav sound", "boom.wav", client.BlobKindSound, false},
		{"flac sound", "music.flac", client.BlobKindSound, false},
		{"exe rejected", "malware.exe", client.BlobKindModel, true},
		{"sound ext for model", "boom.wav", client.BlobKindModel, true},
		{"no extension", "README", client.BlobKindModel, true},
		{"other allows anything", "data.bin", client.BlobKindOther, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateExtension(tc.fileName, tc.kind)
			if tc.wantErr {
				assert.Error(t, err)
				assert.True(t, commonerrors.IsUnsupportedFormat(err) || commonerrors.IsBadRequest(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateExtensionUnknownKind(t *testing.T) {
	err := ValidateExtension("cube.obj", "WIDGET")
	assert.True(t, commonerrors.IsBadRequest(err))
}

func TestIsRenderable(t *testing.T) {
	assert.True(t, IsRenderable("cube.obj"))
	assert.True(t, IsRenderable("Cube.FBX"))
	assert.False(t, IsRenderable("scene.blend"))
	assert.False(t, IsRenderable("albedo.png"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "cube", displayName("/tmp/uploads/cube.obj"))
	assert.Equal(t, "tree house", displayName("tree house.glb"))
}
