/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestQueueDefaults(t *testing.T) {
	viper.Reset()
	assert.Equal(t, 600*time.Second, GetQueueLeaseDuration())
	assert.Equal(t, 3, GetQueueMaxAttempts())
	assert.Equal(t, 5*time.Second, GetQueueIdleBackoff())
	assert.Equal(t, 30*time.Second, GetQueueReclaimInterval())
	assert.Equal(t, 168*time.Hour, GetQueueEventRetention())
}

func TestUploadDefaults(t *testing.T) {
	viper.Reset()
	assert.Equal(t, int64(1073741824), GetUploadMaxBytes())
	assert.Equal(t, int64(10485760), GetThumbnailMaxBytes())
}

func TestClassificationDefaults(t *testing.T) {
	viper.Reset()
	assert.False(t, IsClassificationEnabled())
	assert.Equal(t, 0.1, GetClassificationMinConfidence())
	assert.Equal(t, 10, GetClassificationMaxTags())
}

func TestEnvironmentBinding(t *testing.T) {
	viper.Reset()
	t.Setenv("QUEUE_LEASE_SECONDS", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example ,")

	err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	assert.Equal(t, 2*time.Second, GetQueueLeaseDuration())
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, GetCorsAllowedOrigins())
}

func TestSetValueOverridesDefault(t *testing.T) {
	viper.Reset()
	SetValue("queue.max_attempts", 5)
	assert.Equal(t, 5, GetQueueMaxAttempts())
}
