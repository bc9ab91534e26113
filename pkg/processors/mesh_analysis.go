/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package processors

import (
	"context"

	"github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	"github.com/meshstash/meshstash/pkg/worker"
)

// MeshAnalysis is the registration point for geometry statistics and
// classification. The analysis toolchain ships separately; a worker built
// without it reports the jobs as not available.
type MeshAnalysis struct{}

func NewMeshAnalysis() *MeshAnalysis {
	return &MeshAnalysis{}
}

func (p *MeshAnalysis) Kind() string {
	return client.KindMeshAnalysis
}

func (p *MeshAnalysis) Process(ctx context.Context, job *client.Job, blobs worker.Blobs) (*worker.Result, error) {
	return nil, commonerrors.NewNotAvailable("mesh analysis is not bundled with this worker build")
}
