/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"k8s.io/klog/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 4096
	sendBuffer     = 64
)

// Client RPC methods.
const (
	MethodJoinGroup          = "JoinGroup"
	MethodLeaveGroup         = "LeaveGroup"
	MethodJoinAllModelsGroup = "JoinAllModelsGroup"
)

// rpcRequest is the inbound client->server frame.
type rpcRequest struct {
	Method     string `json:"method"`
	EntityKind string `json:"entityKind"`
	EntityId   int64  `json:"entityId"`
}

// Client is one websocket connection. The groups map is owned by the hub
// goroutine; the pumps never touch it.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	groups map[string]bool

	closeOnce sync.Once
}

// NewClient wraps an upgraded connection and starts its pumps.
func NewClient(h *Hub, conn *websocket.Conn) *Client {
	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		groups: make(map[string]bool),
	}
	go client.writePump()
	go client.readPump()
	return client
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// readPump parses inbound RPC frames until the connection drops, then hands
// the client back to the hub so its memberships are released.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				klog.Warningf("unexpected websocket close: %v", err)
			}
			return
		}
		req := rpcRequest{}
		if err = json.Unmarshal(raw, &req); err != nil {
			klog.Warningf("invalid hub rpc frame: %v", err)
			continue
		}
		c.dispatch(req)
	}
}

func (c *Client) dispatch(req rpcRequest) {
	switch req.Method {
	case MethodJoinGroup:
		if req.EntityKind == "" || req.EntityId <= 0 {
			return
		}
		c.hub.join <- membership{client: c, group: GroupName(req.EntityKind, req.EntityId)}
	case MethodLeaveGroup:
		if req.EntityKind == "" || req.EntityId <= 0 {
			return
		}
		c.hub.leave <- membership{client: c, group: GroupName(req.EntityKind, req.EntityId)}
	case MethodJoinAllModelsGroup:
		c.hub.join <- membership{client: c, group: GroupAllModels}
		c.hub.join <- membership{client: c, group: GroupAllJobs}
	default:
		klog.Warningf("unknown hub rpc method: %q", req.Method)
	}
}

// writePump drains the send channel and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
