/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodeRoundTrip(t *testing.T) {
	err := NewLeaseLost("lease expired")
	assert.True(t, IsMeshStash(err))
	assert.True(t, IsLeaseLost(err))
	assert.True(t, IsConflict(err))
	assert.Equal(t, LeaseLost, GetErrorCode(err))
	assert.Equal(t, int32(http.StatusConflict), err.Status().Code)
}

func TestIsNotFoundCoversDomainCodes(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("model", "42")))
	assert.True(t, IsNotFound(NewNotFound("modelVersion", "7")))
	assert.True(t, IsNotFound(NewNotFound("job", "j-1")))
	assert.True(t, IsNotFound(NewNotFoundWithMessage("gone")))
	assert.False(t, IsNotFound(NewBadRequest("nope")))
}

func TestIgnoreFound(t *testing.T) {
	assert.Nil(t, IgnoreFound(nil))
	assert.Nil(t, IgnoreFound(NewNotFound("model", "1")))
	assert.NotNil(t, IgnoreFound(NewInternalError("boom")))
}

func TestGetErrorCodeNonMeshStash(t *testing.T) {
	assert.Equal(t, "", GetErrorCode(nil))
	assert.Equal(t, "", GetErrorCode(fmt.Errorf("plain")))
}

func TestUploadErrorStatuses(t *testing.T) {
	assert.Equal(t, int32(http.StatusBadRequest), NewUnsupportedFormat(".xyz").Status().Code)
	assert.Equal(t, int32(http.StatusInternalServerError), NewStorageIO("disk full").Status().Code)
	assert.Equal(t, int32(http.StatusInternalServerError), NewIntegrity("hash mismatch").Status().Code)
	assert.Equal(t, int32(http.StatusConflict), NewPrecondition("not associated").Status().Code)
	assert.Equal(t, int32(http.StatusServiceUnavailable), NewTransientDependency("renderer down").Status().Code)
	assert.Equal(t, int32(http.StatusNotImplemented), NewNotAvailable("no mesh backend").Status().Code)
}

func TestTextureConflictIsConflictStatus(t *testing.T) {
	// a duplicate semantic slot in a texture set is a conflict, not a
	// malformed request
	err := NewTextureConflict("texture set 3 already has a ALBEDO texture")
	assert.Equal(t, int32(http.StatusConflict), err.Status().Code)
	assert.Equal(t, TextureConflict, GetErrorCode(err))
}

func TestWrapError(t *testing.T) {
	inner := fmt.Errorf("inner failure")
	err := WrapError(inner, "outer context", StorageIO)
	assert.Equal(t, StorageIO, err.Code)
	assert.Contains(t, err.Error(), "inner failure")
	assert.Contains(t, err.Error(), "outer context")
}
