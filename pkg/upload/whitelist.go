/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package upload

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

// Extension whitelists per role. Validation happens before any byte is
// streamed so a rejected upload changes no state.
var (
	modelExtensions = map[string]bool{
		".obj": true, ".fbx": true, ".gltf": true, ".glb": true,
		".stl": true, ".dae": true, ".3ds": true,
	}
	textureExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".tga": true, ".bmp": true,
		".webp": true, ".exr": true, ".tif": true, ".tiff": true,
	}
	soundExtensions = map[string]bool{
		".wav": true, ".mp3": true, ".ogg": true, ".flac": true,
	}
	projectExtensions = map[string]bool{
		".blend": true, ".max": true, ".ma": true, ".mb": true,
		".spp": true, ".zip": true,
	}
)

// ValidateExtension checks the file name against the whitelist of the
// declared blob kind.
func ValidateExtension(fileName, declaredKind string) error {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return commonerrors.NewUnsupportedFormat(fmt.Sprintf("file %q has no extension", fileName))
	}
	var allowed map[string]bool
	switch declaredKind {
	case client.BlobKindModel:
		allowed = modelExtensions
	case client.BlobKindTexture, client.BlobKindImage, client.BlobKindMaterial:
		allowed = textureExtensions
	case client.BlobKindSound:
		allowed = soundExtensions
	case client.BlobKindProjectFile:
		allowed = projectExtensions
	case client.BlobKindOther:
		return nil
	default:
		return commonerrors.NewBadRequest(fmt.Sprintf("unknown blob kind %q", declaredKind))
	}
	if !allowed[ext] {
		return commonerrors.NewUnsupportedFormat(
			fmt.Sprintf("extension %q is not allowed for kind %s", ext, declaredKind))
	}
	return nil
}

// IsRenderable reports whether the extension names a primary-renderable model
// format.
func IsRenderable(fileName string) bool {
	return modelExtensions[strings.ToLower(filepath.Ext(fileName))]
}
