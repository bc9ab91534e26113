/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

func SetValue(key string, value interface{}) {
	viper.Set(key, value)
}

// LoadConfig binds the recognized environment variables and optionally reads a yaml
// config file. An empty path skips the file and leaves the environment as the only
// source.
func LoadConfig(path string) error {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getBool(key string, defaultValue bool) bool {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetBool(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

func getInt64(key string, defaultValue int64) int64 {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt64(key)
}

func getFloat(key string, defaultValue float64) float64 {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetFloat64(key)
}

func getStrings(key string) []string {
	val := viper.GetString(key)
	return removeBlank(strings.Split(val, ","))
}

func removeBlank(slice []string) []string {
	var result []string
	for _, val := range slice {
		if trim := strings.TrimSpace(val); trim != "" {
			result = append(result, trim)
		}
	}
	return result
}

// server

func GetServerPort() int {
	return getInt(serverPort, 8080)
}

func GetCorsAllowedOrigins() []string {
	return getStrings(corsAllowedOrigins)
}

// db

func GetDBHost() string {
	return getString(dbHost, "")
}

func GetDBPort() int {
	return getInt(dbPort, 5432)
}

func GetDBUser() string {
	return getString(dbUser, "")
}

func GetDBPassword() string {
	return getString(dbPassword, "")
}

func GetDBName() string {
	return getString(dbName, "")
}

func GetDBSslMode() string {
	return getString(dbSslMode, "disable")
}

func GetDBMaxOpenConns() int {
	return getInt(dbMaxOpenConns, 0)
}

func GetDBMaxIdleConns() int {
	return getInt(dbMaxIdleConns, 0)
}

func GetDBMaxLifetimeSecond() int {
	return getInt(dbMaxLifetimeSecond, 0)
}

func GetDBMaxIdleTimeSecond() int {
	return getInt(dbMaxIdleTimeSecond, 0)
}

func GetDBConnectTimeoutSecond() int {
	return getInt(dbConnectTimeoutSecond, 10)
}

func GetDBRequestTimeoutSecond() int {
	return getInt(dbRequestTimeoutSecond, 30)
}

// blob store

func GetBlobBackend() string {
	return getString(blobBackend, "local")
}

func GetBlobStoreRoot() string {
	return getString(blobRoot, "/var/lib/meshstash/blobs")
}

func GetS3Endpoint() string {
	return getString(s3Endpoint, "")
}

func GetS3Region() string {
	return getString(s3Region, "us-east-1")
}

func GetS3Bucket() string {
	return getString(s3Bucket, "meshstash")
}

func GetS3AccessKey() string {
	return getString(s3AccessKey, "")
}

func GetS3SecretKey() string {
	return getString(s3SecretKey, "")
}

// queue

func GetQueueLeaseDuration() time.Duration {
	return time.Duration(getInt(queueLeaseSeconds, 600)) * time.Second
}

func GetQueueMaxAttempts() int {
	return getInt(queueMaxAttempts, 3)
}

func GetQueueIdleBackoff() time.Duration {
	return time.Duration(getInt(queueIdleBackoffMs, 5000)) * time.Millisecond
}

func GetQueueReclaimInterval() time.Duration {
	return time.Duration(getInt(queueReclaimIntervalMs, 30000)) * time.Millisecond
}

func GetQueueEventRetention() time.Duration {
	return time.Duration(getInt(queueEventRetentionHours, 168)) * time.Hour
}

func GetQueueHighWaterMark() int {
	return getInt(queueHighWaterMark, 1000)
}

// upload

func GetUploadMaxBytes() int64 {
	return getInt64(uploadMaxBytes, 1073741824)
}

func GetThumbnailMaxBytes() int64 {
	return getInt64(thumbnailMaxBytes, 10485760)
}

// classification

func IsClassificationEnabled() bool {
	return getBool(classificationEnabled, false)
}

func GetClassificationMinConfidence() float64 {
	return getFloat(classificationMinConfidence, 0.1)
}

func GetClassificationMaxTags() int {
	return getInt(classificationMaxTags, 10)
}

// worker

func GetWorkerApiUrl() string {
	return getString(workerApiUrl, "http://127.0.0.1:8080")
}

func GetWorkerId() string {
	return getString(workerId, "")
}

func GetWorkerRendererCommand() string {
	return getString(workerRendererCommand, "")
}

func GetWorkerJobBudget() time.Duration {
	return time.Duration(getInt(workerJobBudgetSeconds, 1800)) * time.Second
}

// notify

func IsEmailNotifyEnabled() bool {
	return getBool(notifyEmailEnabled, false)
}

func GetSmtpHost() string {
	return getString(notifySmtpHost, "")
}

func GetSmtpPort() int {
	return getInt(notifySmtpPort, 587)
}

func GetSmtpUser() string {
	return getString(notifySmtpUser, "")
}

func GetSmtpPassword() string {
	return getString(notifySmtpPassword, "")
}

func GetEmailFrom() string {
	return getString(notifyEmailFrom, "")
}

func GetEmailTo() []string {
	return getStrings(notifyEmailTo)
}
