/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"k8s.io/klog/v2"
)

const SchemaVersion = 1

// Group names. Entity groups are "<kind>:<id>"; the broadcast groups carry
// coarse updates for clients that do not join per-entity.
const (
	GroupAllModels = "models:all"
	GroupAllJobs   = "jobs:all"
)

// Server->client message types.
const (
	MsgThumbnailStatusChanged = "ThumbnailStatusChanged"
	MsgWaveformReady          = "WaveformReady"
	MsgActiveVersionChanged   = "ActiveVersionChanged"
	MsgJobAdded               = "JobAdded"
	MsgJobCompleted           = "JobCompleted"
	MsgJobFailed              = "JobFailed"
)

// Message is the envelope every server->client frame carries. Timestamp is
// monotonic so clients can drop stale notifications.
type Message struct {
	Type          string      `json:"type"`
	SchemaVersion int         `json:"schemaVersion"`
	Timestamp     int64       `json:"timestamp"`
	Data          interface{} `json:"data"`
}

// GroupName builds the group key of an entity.
func GroupName(entityKind string, entityId int64) string {
	return fmt.Sprintf("%s:%d", entityKind, entityId)
}

type publishRequest struct {
	group   string
	payload []byte
}

// Hub is the push fabric. A single goroutine owns the membership maps and
// drains the publish channel, which gives per-group FIFO delivery for free.
type Hub struct {
	unregister chan *Client
	join       chan membership
	leave      chan membership
	publish    chan publishRequest
	groups     map[string]map[*Client]bool

	mu     sync.Mutex
	lastTs int64
}

type membership struct {
	client *Client
	group  string
}

func NewHub() *Hub {
	return &Hub{
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		publish:    make(chan publishRequest, 256),
		groups:     make(map[string]map[*Client]bool),
	}
}

// Run drains the hub channels. Call in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.unregister:
			// disconnect releases all memberships
			for group := range client.groups {
				h.removeFromGroup(client, group)
			}
			client.closeSend()
		case m := <-h.join:
			if h.groups[m.group] == nil {
				h.groups[m.group] = make(map[*Client]bool)
			}
			h.groups[m.group][m.client] = true
			m.client.groups[m.group] = true
		case m := <-h.leave:
			h.removeFromGroup(m.client, m.group)
			delete(m.client.groups, m.group)
		case req := <-h.publish:
			for client := range h.groups[req.group] {
				select {
				case client.send <- req.payload:
				default:
					// slow consumer; drop the connection rather than block the hub
					klog.Warningf("dropping slow hub client, group: %s", req.group)
					h.removeAll(client)
					client.closeSend()
				}
			}
		}
	}
}

func (h *Hub) removeFromGroup(client *Client, group string) {
	if members, ok := h.groups[group]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

func (h *Hub) removeAll(client *Client) {
	for group := range client.groups {
		h.removeFromGroup(client, group)
	}
	client.groups = map[string]bool{}
}

// nextTimestamp returns a strictly increasing millisecond timestamp.
func (h *Hub) nextTimestamp() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	ts := time.Now().UnixMilli()
	if ts <= h.lastTs {
		ts = h.lastTs + 1
	}
	h.lastTs = ts
	return ts
}

// Publish fans a message out to the group's current members. At-least-once,
// no backfill.
func (h *Hub) Publish(group, msgType string, data interface{}) {
	msg := Message{
		Type:          msgType,
		SchemaVersion: SchemaVersion,
		Timestamp:     h.nextTimestamp(),
		Data:          data,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		klog.ErrorS(err, "failed to marshal hub message", "type", msgType)
		return
	}
	h.publish <- publishRequest{group: group, payload: payload}
}

// ThumbnailStatusChanged notifies an entity group of a thumbnail transition.
func (h *Hub) ThumbnailStatusChanged(ownerKind string, ownerId int64, status, url, errMessage string) {
	data := map[string]interface{}{
		"ownerKind": ownerKind,
		"ownerId":   ownerId,
		"status":    status,
	}
	if url != "" {
		data["url"] = url
	}
	if errMessage != "" {
		data["error"] = errMessage
	}
	h.Publish(GroupName(ownerKind, ownerId), MsgThumbnailStatusChanged, data)
	h.Publish(GroupAllModels, MsgThumbnailStatusChanged, data)
}

// WaveformReady notifies a sound's group that its waveform is available.
func (h *Hub) WaveformReady(soundId int64, url string) {
	data := map[string]interface{}{"soundId": soundId, "url": url}
	h.Publish(GroupName("sound", soundId), MsgWaveformReady, data)
}

// ActiveVersionChanged notifies the model's group and the all-models group.
// Prev is omitted when the first version became active.
func (h *Hub) ActiveVersionChanged(modelId, versionId, prevVersionId int64, thumbnailReady bool, thumbnailUrl string) {
	data := map[string]interface{}{
		"modelId":        modelId,
		"new":            versionId,
		"thumbnailReady": thumbnailReady,
	}
	if prevVersionId > 0 {
		data["prev"] = prevVersionId
	}
	if thumbnailUrl != "" {
		data["thumbnailUrl"] = thumbnailUrl
	}
	h.Publish(GroupName("model", modelId), MsgActiveVersionChanged, data)
	h.Publish(GroupAllModels, MsgActiveVersionChanged, data)
}

// JobAdded implements the queue notifier.
func (h *Hub) JobAdded(jobId int64, kind string) {
	h.Publish(GroupAllJobs, MsgJobAdded, map[string]interface{}{"jobId": jobId, "kind": kind})
}

// JobCompleted implements the queue notifier.
func (h *Hub) JobCompleted(jobId int64) {
	h.Publish(GroupAllJobs, MsgJobCompleted, map[string]interface{}{"jobId": jobId})
}

// JobFailed implements the queue notifier.
func (h *Hub) JobFailed(jobId int64, reason string) {
	h.Publish(GroupAllJobs, MsgJobFailed, map[string]interface{}{"jobId": jobId, "reason": reason})
}
