/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/meshstash/meshstash/pkg/assets"
	"github.com/meshstash/meshstash/pkg/blob"
	commonconfig "github.com/meshstash/meshstash/pkg/config"
	dbclient "github.com/meshstash/meshstash/pkg/database/client"
	"github.com/meshstash/meshstash/pkg/events"
	"github.com/meshstash/meshstash/pkg/handlers"
	"github.com/meshstash/meshstash/pkg/hub"
	commonklog "github.com/meshstash/meshstash/pkg/klog"
	"github.com/meshstash/meshstash/pkg/notify"
	"github.com/meshstash/meshstash/pkg/options"
	"github.com/meshstash/meshstash/pkg/queue"
	"github.com/meshstash/meshstash/pkg/upload"
)

const shutdownGrace = 15 * time.Second

// Server is the MeshStash api-server process: the HTTP surface, the push hub
// and the queue sweeper, wired over one database client and one blob store.
type Server struct {
	opts       *options.Options
	httpServer *http.Server
	dbClient   *dbclient.Client
	sweeper    *queue.Sweeper
	pushHub    *hub.Hub
	ctx        context.Context
	cancel     context.CancelFunc
	isInited   bool
}

func NewServer() (*Server, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	s := &Server{
		opts:   &options.Options{},
		ctx:    ctx,
		cancel: cancel,
	}
	if err := s.init(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Server) init() error {
	gin.SetMode(gin.ReleaseMode)
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
		klog.Errorf("please init api-server first")
		return
	}
	gin.EnableJsonDecoderDisallowUnknownFields()

	klog.Infof("starting api-server")
	go func() {
		if err := s.startHttpServer(); err != nil && err != http.ErrServerClosed {
			klog.ErrorS(err, "failed to start http-server")
			os.Exit(-1)
		}
	}()

	<-s.ctx.Done()
	s.Stop()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			klog.ErrorS(err, "failed to shutdown httpserver")
		}
	}
	if s.dbClient != nil {
		s.dbClient.Close()
	}
	klog.Info("api-server is stopped")
	klog.Flush()
	s.cancel()
}

func (s *Server) startHttpServer() error {
	if commonconfig.GetServerPort() <= 0 {
		return fmt.Errorf("the apiserver port is not defined")
	}
	handler, err := s.initComponents()
	if err != nil {
		return err
	}
	addr := fmt.Sprintf(":%d", commonconfig.GetServerPort())
	s.httpServer = &http.Server{Addr: addr, Handler: handler}
	klog.Infof("http-server listen port: %d", commonconfig.GetServerPort())
	return s.httpServer.ListenAndServe()
}

// initComponents wires the process: database, blob store, push hub, queue
// with its hooks, the event bus and the HTTP handlers.
func (s *Server) initComponents() (*gin.Engine, error) {
	s.dbClient = dbclient.NewClient()
	if s.dbClient == nil {
		return nil, fmt.Errorf("failed to init the database client")
	}
	store, err := blob.NewStore(s.ctx)
	if err != nil {
		return nil, err
	}

	s.pushHub = hub.NewHub()
	go s.pushHub.Run()

	queueService := queue.NewService(s.dbClient, s.pushHub, notify.NewEmailChannel())
	bus := events.NewBus()
	uploadService := upload.NewService(store, s.dbClient, bus)
	assetService := assets.NewService(s.dbClient, bus, queueService, store)
	assets.RegisterHandlers(bus, s.dbClient, queueService, s.pushHub)
	queueService.SetCompletionHook(assetService.CompletionHook(s.pushHub))
	queueService.SetFailureHook(assetService.FailureHook(s.pushHub))

	s.sweeper = queue.NewSweeper(queueService)
	s.sweeper.Start()

	return handlers.InitHttpHandlers(s.dbClient, assetService, uploadService, queueService, store, s.pushHub)
}
