/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package hub_handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"k8s.io/klog/v2"

	"github.com/meshstash/meshstash/pkg/hub"
)

// Handler upgrades websocket connections and hands them to the hub.
type Handler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

func NewHandler(h *hub.Hub) *Handler {
	return &Handler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// CORS policy is enforced by the router middleware; the upgrade
			// itself accepts any origin that passed it.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Subscribe upgrades the request. The upgrader writes its own error response
// on failure, so there is nothing to abort here.
func (h *Handler) Subscribe(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		klog.Warningf("websocket upgrade failed: %v", err)
		return
	}
	hub.NewClient(h.hub, conn)
}

func InitHubRouters(e *gin.Engine, h *Handler) {
	e.GET("/api/v1/subscribe", h.Subscribe)
}
