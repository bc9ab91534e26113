/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package blob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

func TestLocalStorePutGet(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	payload := []byte("v 0.0 0.0 0.0\nf 1 2 3\n")
	wantHash := sha256.Sum256(payload)

	hash, written, wasNew, err := store.Put(context.Background(), bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(wantHash[:]), hash)
	assert.Equal(t, int64(len(payload)), written)
	assert.True(t, wasNew)

	rc, err := store.Get(context.Background(), hash)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestLocalStorePutIdempotent(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	payload := []byte("same bytes twice")
	hash1, _, wasNew1, err := store.Put(context.Background(), bytes.NewReader(payload))
	require.NoError(t, err)
	hash2, _, wasNew2, err := store.Put(context.Background(), bytes.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, hash1, hash2)
	assert.True(t, wasNew1)
	assert.False(t, wasNew2)
}

func TestLocalStoreNoStagingLeftovers(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	_, _, _, err = store.Put(context.Background(), bytes.NewReader([]byte("abc")))
	require.NoError(t, err)
	_, _, _, err = store.Put(context.Background(), bytes.NewReader([]byte("abc")))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, stagingDir))
	require.NoError(t, err)
	assert.Len(t, entries, 0)
}

func TestLocalStoreGetMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	missing := bytes.Repeat([]byte("ab"), 32)
	_, err = store.Get(context.Background(), string(missing[:64]))
	assert.True(t, commonerrors.IsNotFound(err))
}

func TestLocalStoreRejectsBadHash(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "../../etc/passwd")
	assert.True(t, commonerrors.IsBadRequest(err))
	_, err = store.Exists(context.Background(), "short")
	assert.True(t, commonerrors.IsBadRequest(err))
}

func TestLocalStoreExistsAndRemove(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	hash, _, _, err := store.Put(context.Background(), bytes.NewReader([]byte("gc me")))
	require.NoError(t, err)

	ok, err := store.Exists(context.Background(), hash)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Remove(context.Background(), hash))
	ok, err = store.Exists(context.Background(), hash)
	require.NoError(t, err)
	assert.False(t, ok)

	// removing twice is not an error
	assert.NoError(t, store.Remove(context.Background(), hash))
}

func TestLocalStoreCancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, _, err = store.Put(ctx, bytes.NewReader([]byte("never stored")))
	assert.Error(t, err)
}
