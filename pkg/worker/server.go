/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package worker

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"k8s.io/klog/v2"

	commonconfig "github.com/meshstash/meshstash/pkg/config"
	commonklog "github.com/meshstash/meshstash/pkg/klog"
	"github.com/meshstash/meshstash/pkg/options"
)

// Server is the worker process: one polling loop over the server's worker
// API, with the registered processors.
type Server struct {
	opts     *options.Options
	loop     *Loop
	ctx      context.Context
	cancel   context.CancelFunc
	isInited bool
}

// NewServer builds the worker process around the given registry. The registry
// is supplied by the caller so alternate builds can ship different processor
// sets.
func NewServer(newRegistry func() (*Registry, error)) (*Server, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	s := &Server{
		opts:   &options.Options{},
		ctx:    ctx,
		cancel: cancel,
	}
	if err := s.init(newRegistry); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Server) init(newRegistry func() (*Registry, error)) error {
	var err error
	if err = s.opts.InitFlags(); err != nil {
		klog.ErrorS(err, "failed to parse flags")
		return err
	}
	if err = commonklog.Init(s.opts.LogfilePath, s.opts.LogFileSize); err != nil {
		klog.ErrorS(err, "failed to init logs")
		return err
	}
	if err = s.initConfig(); err != nil {
		klog.ErrorS(err, "failed to init config")
		return err
	}
	if commonconfig.GetWorkerApiUrl() == "" {
		return fmt.Errorf("the worker api url is not defined")
	}
	registry, err := newRegistry()
	if err != nil {
		klog.ErrorS(err, "failed to build the processor registry")
		return err
	}
	s.loop = NewLoop(NewApiClient(), registry)
	s.isInited = true
	return nil
}

func (s *Server) initConfig() error {
	if s.opts.Config == "" {
		return commonconfig.LoadConfig("")
	}
	fullPath, err := filepath.Abs(s.opts.Config)
	if err != nil {
		return err
	}
	if err = commonconfig.LoadConfig(fullPath); err != nil {
		return fmt.Errorf("config path: %s, err: %v", fullPath, err)
	}
	return nil
}

func (s *Server) Start() {
	if !s.isInited {
		klog.Errorf("please init the worker first")
		return
	}
	klog.Infof("starting worker")
	s.loop.Start()
	<-s.ctx.Done()
	s.Stop()
}

func (s *Server) Stop() {
	if s.loop != nil {
		s.loop.Stop()
	}
	klog.Info("worker is stopped")
	klog.Flush()
	s.cancel()
}
