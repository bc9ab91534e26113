/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package channel

import (
	"reflect"
	"testing"
)

func TestTomb(t *testing.T) {
	tomb := NewTomb()
	var workflow []string
	expected := []string{"stop", "stopping", "stopped"}
	go func() {
		defer tomb.Done()
		<-tomb.Stopping()
		workflow = append(workflow, "stopping")
	}()
	workflow = append(workflow, "stop")
	tomb.Stop()
	workflow = append(workflow, "stopped")
	if !reflect.DeepEqual(workflow, expected) {
		t.Errorf("expected workflow %v, got %v", expected, workflow)
	}
}

func TestTombIsStopped(t *testing.T) {
	tomb := NewTomb()
	if tomb.IsStopped() {
		t.Errorf("new tomb should not be stopped")
	}
	go func() {
		defer tomb.Done()
		<-tomb.Stopping()
	}()
	tomb.Stop()
	if !tomb.IsStopped() {
		t.Errorf("tomb should be stopped after Stop")
	}
}
