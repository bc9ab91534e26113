/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonconfig "github.com/meshstash/meshstash/pkg/config"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

func TestNewStoreUnknownBackend(t *testing.T) {
	commonconfig.SetValue("blob.backend", "tape")

	_, err := NewStore(context.Background())
	assert.True(t, commonerrors.IsBadRequest(err))
}

func TestNewStoreWrapsBackendFailure(t *testing.T) {
	// a regular file where the store root should be makes MkdirAll fail
	badRoot := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(badRoot, []byte("x"), 0o644))
	commonconfig.SetValue("blob.backend", "local")
	commonconfig.SetValue("blob.store_root", badRoot)

	_, err := NewStore(context.Background())
	require.Error(t, err)

	var wrapped *commonerrors.Error
	require.True(t, errors.As(err, &wrapped))
	assert.Equal(t, commonerrors.StorageIO, wrapped.Code)
	assert.Contains(t, wrapped.Error(), "failed to initialize the local blob store")
	assert.NotEmpty(t, wrapped.GetTopStackString())
}
