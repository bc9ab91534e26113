/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package blob

import (
	"context"
	"io"
	"regexp"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Store persists immutable byte streams keyed by their SHA-256. Put is idempotent:
// concurrent puts of the same bytes converge to a single stored copy. Partial writes are
// never visible to Get. Remove exists for the GC maintenance pass only and must not be
// called on the hot path.
type Store interface {
	// Put streams the input, computes its SHA-256 and stores the bytes if absent.
	// wasNew is informational, never a failure.
	Put(ctx context.Context, r io.Reader) (hash string, written int64, wasNew bool, err error)
	Get(ctx context.Context, hash string) (io.ReadCloser, error)
	Exists(ctx context.Context, hash string) (bool, error)
	Remove(ctx context.Context, hash string) error
}

// IsValidHash reports whether s looks like a lowercase hex SHA-256.
func IsValidHash(s string) bool {
	return hashPattern.MatchString(s)
}
