/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package worker

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/meshstash/meshstash/pkg/database/client"
)

// Result is the document a processor reports on success. It is stored as the
// job result and drives the completion side effect on the server.
type Result struct {
	OutputBlobHash string   `json:"outputBlobHash,omitempty"`
	Width          int      `json:"width,omitempty"`
	Height         int      `json:"height,omitempty"`
	SizeBytes      int64    `json:"sizeBytes,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Description    string   `json:"description,omitempty"`
	Confidence     float64  `json:"confidence,omitempty"`
}

// Blobs is the slice of the job API processors use to move bytes: fetch the
// input blob, store the derived output.
type Blobs interface {
	FetchBlob(ctx context.Context, hash string) (io.ReadCloser, error)
	StoreBlob(ctx context.Context, fileName string, r io.Reader) (string, int64, error)
}

// Processor turns one leased job into a result. Process must honor ctx
// cancellation: the loop cancels it when the lease is lost or the job budget
// runs out.
type Processor interface {
	Kind() string
	Process(ctx context.Context, job *client.Job, blobs Blobs) (*Result, error)
}

// Registry holds the processors a worker runs, keyed by job kind.
type Registry struct {
	processors map[string]Processor
}

func NewRegistry() *Registry {
	return &Registry{processors: map[string]Processor{}}
}

func (r *Registry) Register(p Processor) error {
	kind := p.Kind()
	if kind == "" {
		return fmt.Errorf("processor kind must not be empty")
	}
	if _, ok := r.processors[kind]; ok {
		return fmt.Errorf("processor for kind %s already registered", kind)
	}
	r.processors[kind] = p
	return nil
}

func (r *Registry) Get(kind string) (Processor, bool) {
	p, ok := r.processors[kind]
	return p, ok
}

// AcceptedKinds is what the worker asks the queue for when leasing.
func (r *Registry) AcceptedKinds() []string {
	kinds := make([]string, 0, len(r.processors))
	for kind := range r.processors {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
