/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(h *Hub) *Client {
	return &Client{
		hub:    h,
		send:   make(chan []byte, sendBuffer),
		groups: make(map[string]bool),
	}
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case payload := <-c.send:
		msg := Message{}
		require.NoError(t, json.Unmarshal(payload, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for hub message")
		return Message{}
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.send:
		t.Fatalf("unexpected message: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubFansOutToGroupMembers(t *testing.T) {
	h := NewHub()
	go h.Run()

	member := newTestClient(h)
	outsider := newTestClient(h)
	h.join <- membership{client: member, group: GroupName("model", 7)}

	h.ThumbnailStatusChanged("model", 7, "Ready", "/models/7/thumbnail/file", "")

	msg := recv(t, member)
	assert.Equal(t, MsgThumbnailStatusChanged, msg.Type)
	assert.Equal(t, SchemaVersion, msg.SchemaVersion)
	assert.True(t, msg.Timestamp > 0)
	assertNoMessage(t, outsider)
}

func TestHubPerGroupFIFO(t *testing.T) {
	h := NewHub()
	go h.Run()

	member := newTestClient(h)
	h.join <- membership{client: member, group: GroupAllJobs}

	for i := int64(1); i <= 5; i++ {
		h.JobAdded(i, "MODEL_THUMBNAIL")
	}

	var lastTs int64
	for i := int64(1); i <= 5; i++ {
		msg := recv(t, member)
		assert.Equal(t, MsgJobAdded, msg.Type)
		data := msg.Data.(map[string]interface{})
		assert.Equal(t, float64(i), data["jobId"])
		assert.True(t, msg.Timestamp > lastTs)
		lastTs = msg.Timestamp
	}
}

func TestHubLeaveGroupStopsDelivery(t *testing.T) {
	h := NewHub()
	go h.Run()

	member := newTestClient(h)
	group := GroupName("sound", 3)
	h.join <- membership{client: member, group: group}
	h.leave <- membership{client: member, group: group}

	h.WaveformReady(3, "/sounds/3/waveform")
	assertNoMessage(t, member)
}

func TestHubDisconnectReleasesAllMemberships(t *testing.T) {
	h := NewHub()
	go h.Run()

	member := newTestClient(h)
	h.join <- membership{client: member, group: GroupAllModels}
	h.join <- membership{client: member, group: GroupName("model", 1)}

	h.unregister <- member

	h.ActiveVersionChanged(1, 2, 1, false, "")
	// send channel is closed on unregister; nothing is delivered
	select {
	case payload, ok := <-member.send:
		assert.False(t, ok, "expected closed channel, got %s", payload)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestActiveVersionChangedOmitsPrevForFirstVersion(t *testing.T) {
	h := NewHub()
	go h.Run()

	member := newTestClient(h)
	h.join <- membership{client: member, group: GroupName("model", 9)}

	h.ActiveVersionChanged(9, 1, 0, false, "")
	msg := recv(t, member)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["new"])
	_, hasPrev := data["prev"]
	assert.False(t, hasPrev)

	h.ActiveVersionChanged(9, 2, 1, true, "/models/9/thumbnail/file")
	msg = recv(t, member)
	data = msg.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["prev"])
	assert.Equal(t, true, data["thumbnailReady"])
}

func TestTimestampsAreStrictlyIncreasing(t *testing.T) {
	h := NewHub()
	var prev int64
	for i := 0; i < 100; i++ {
		ts := h.nextTimestamp()
		assert.True(t, ts > prev)
		prev = ts
	}
}
