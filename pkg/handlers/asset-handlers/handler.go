/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package asset_handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meshstash/meshstash/pkg/assets"
	"github.com/meshstash/meshstash/pkg/blob"
	dbclient "github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	apiutils "github.com/meshstash/meshstash/pkg/handlers/apiutils"
	"github.com/meshstash/meshstash/pkg/queue"
	"github.com/meshstash/meshstash/pkg/upload"
	jsonutils "github.com/meshstash/meshstash/pkg/utils/json"
)

const jsonContentType = "application/json; charset=utf-8"

// Handler serves the public asset API: uploads, the asset graph, derived
// thumbnails, containers and the recycle bin.
type Handler struct {
	dbClient *dbclient.Client
	assets   *assets.Service
	uploads  *upload.Service
	queue    *queue.Service
	store    blob.Store
}

func NewHandler(db *dbclient.Client, assetService *assets.Service, uploadService *upload.Service,
	queueService *queue.Service, store blob.Store) *Handler {
	return &Handler{
		dbClient: db,
		assets:   assetService,
		uploads:  uploadService,
		queue:    queueService,
		store:    store,
	}
}

type handleFunc func(*gin.Context) (interface{}, error)

func handle(c *gin.Context, fn handleFunc) {
	rsp, err := fn(c)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	code := http.StatusOK
	// If a status was previously set, use that status in the response.
	if c.Writer.Status() > 0 {
		code = c.Writer.Status()
	}
	switch rspType := rsp.(type) {
	case []byte:
		c.Data(code, jsonContentType, rspType)
	case string:
		c.Data(code, jsonContentType, []byte(rspType))
	default:
		c.JSON(code, rspType)
	}
}

func getBodyFromRequest(req *http.Request, bodyStruct interface{}) ([]byte, error) {
	body, err := apiutils.ReadBody(req)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	if err = jsonutils.UnmarshalWithCheck(body, bodyStruct); err != nil {
		return body, commonerrors.NewBadRequest(err.Error())
	}
	return body, nil
}
