/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"k8s.io/klog/v2"

	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

const stagingDir = "staging"

// LocalStore is a content-addressed store on the local filesystem. Objects live at
// <root>/<h[0:2]>/<h[2:4]>/<hash>; writes stage under <root>/staging and are published
// with an atomic rename.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, commonerrors.NewInternalError("the blob store root is empty")
	}
	if err := os.MkdirAll(filepath.Join(root, stagingDir), 0o755); err != nil {
		return nil, commonerrors.NewStorageIO(err.Error())
	}
	klog.Infof("init local blob store at %s", root)
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) objectPath(hash string) string {
	return filepath.Join(s.root, hash[0:2], hash[2:4], hash)
}

func (s *LocalStore) stagingPath() string {
	suffix := xxhash.Sum64String(fmt.Sprintf("%d-%d", os.Getpid(), time.Now().UnixNano()))
	return filepath.Join(s.root, stagingDir, fmt.Sprintf("put-%016x", suffix))
}

func (s *LocalStore) Put(ctx context.Context, r io.Reader) (string, int64, bool, error) {
	staging := s.stagingPath()
	file, err := os.OpenFile(staging, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, false, commonerrors.NewStorageIO(err.Error())
	}
	removeStaging := true
	defer func() {
		file.Close()
		if removeStaging {
			os.Remove(staging)
		}
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(file, hasher), newContextReader(ctx, r))
	if err != nil {
		return "", 0, false, commonerrors.NewStorageIO(err.Error())
	}
	if err = file.Sync(); err != nil {
		return "", 0, false, commonerrors.NewStorageIO(err.Error())
	}
	if err = file.Close(); err != nil {
		return "", 0, false, commonerrors.NewStorageIO(err.Error())
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	target := s.objectPath(hash)
	if info, err := os.Stat(target); err == nil {
		// The same bytes were stored before. The loser of a concurrent put lands here too.
		if info.Size() != written {
			return "", 0, false, commonerrors.NewIntegrity(
				fmt.Sprintf("stored object %s has size %d, expected %d", hash, info.Size(), written))
		}
		return hash, written, false, nil
	}
	if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", 0, false, commonerrors.NewStorageIO(err.Error())
	}
	if err = os.Rename(staging, target); err != nil {
		return "", 0, false, commonerrors.NewStorageIO(err.Error())
	}
	removeStaging = false
	return hash, written, true, nil
}

func (s *LocalStore) Get(ctx context.Context, hash string) (io.ReadCloser, error) {
	if !IsValidHash(hash) {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("invalid blob hash %q", hash))
	}
	file, err := os.Open(s.objectPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, commonerrors.NewNotFoundWithMessage(fmt.Sprintf("blob %s not found", hash))
		}
		return nil, commonerrors.NewStorageIO(err.Error())
	}
	return file, nil
}

func (s *LocalStore) Exists(ctx context.Context, hash string) (bool, error) {
	if !IsValidHash(hash) {
		return false, commonerrors.NewBadRequest(fmt.Sprintf("invalid blob hash %q", hash))
	}
	if _, err := os.Stat(s.objectPath(hash)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, commonerrors.NewStorageIO(err.Error())
	}
	return true, nil
}

func (s *LocalStore) Remove(ctx context.Context, hash string) error {
	if !IsValidHash(hash) {
		return commonerrors.NewBadRequest(fmt.Sprintf("invalid blob hash %q", hash))
	}
	if err := os.Remove(s.objectPath(hash)); err != nil && !os.IsNotExist(err) {
		return commonerrors.NewStorageIO(err.Error())
	}
	return nil
}

// contextReader cancels a streaming copy when the caller's context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func newContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &contextReader{ctx: ctx, r: r}
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
