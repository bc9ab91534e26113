/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/meshstash/meshstash/pkg/assets"
	"github.com/meshstash/meshstash/pkg/blob"
	commonconfig "github.com/meshstash/meshstash/pkg/config"
	dbclient "github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	apiutils "github.com/meshstash/meshstash/pkg/handlers/apiutils"
	asset_handlers "github.com/meshstash/meshstash/pkg/handlers/asset-handlers"
	hub_handlers "github.com/meshstash/meshstash/pkg/handlers/hub-handlers"
	job_handlers "github.com/meshstash/meshstash/pkg/handlers/job-handlers"
	"github.com/meshstash/meshstash/pkg/hub"
	"github.com/meshstash/meshstash/pkg/queue"
	"github.com/meshstash/meshstash/pkg/upload"
)

// InitHttpHandlers builds the gin engine: logging, recovery and CORS
// middleware, then the asset API, the worker protocol and the websocket
// subscription endpoint.
func InitHttpHandlers(db *dbclient.Client, assetService *assets.Service, uploadService *upload.Service,
	queueService *queue.Service, store blob.Store, pushHub *hub.Hub) (*gin.Engine, error) {
	engine := gin.New()
	engine.Use(apiutils.Logger(), gin.Recovery())
	if origins := commonconfig.GetCorsAllowedOrigins(); len(origins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "If-None-Match"},
			ExposeHeaders:    []string{"ETag", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	engine.NoRoute(func(c *gin.Context) {
		apiutils.AbortWithApiError(c, commonerrors.NewNotFoundWithMessage(c.Request.RequestURI+" not found"))
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	assetHandler := asset_handlers.NewHandler(db, assetService, uploadService, queueService, store)
	asset_handlers.InitAssetRouters(engine, assetHandler)

	workerHandler := job_handlers.NewHandler(db, queueService, store)
	job_handlers.InitWorkerRouters(engine, workerHandler)

	hubHandler := hub_handlers.NewHandler(pushHub)
	hub_handlers.InitHubRouters(engine, hubHandler)
	return engine, nil
}
