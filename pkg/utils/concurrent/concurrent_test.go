/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package concurrent

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gotest.tools/assert"
)

func TestExec(t *testing.T) {
	var total int64
	successes, err := Exec(8, func() error {
		atomic.AddInt64(&total, 1)
		return nil
	})
	assert.NilError(t, err)
	assert.Equal(t, successes, 8)
	assert.Equal(t, total, int64(8))
}

func TestExecWithFailures(t *testing.T) {
	var calls int64
	successes, err := Exec(4, func() error {
		if atomic.AddInt64(&calls, 1)%2 == 0 {
			return fmt.Errorf("boom")
		}
		return nil
	})
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, successes, 2)
}

func TestExecNoWork(t *testing.T) {
	successes, err := Exec(0, nil)
	assert.NilError(t, err)
	assert.Equal(t, successes, 0)
}
