/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	// server
	serverPrefix       = "server."
	serverPort         = serverPrefix + "port"
	corsAllowedOrigins = serverPrefix + "cors_allowed_origins"

	// db
	dbPrefix               = "db."
	dbHost                 = dbPrefix + "host"
	dbPort                 = dbPrefix + "port"
	dbUser                 = dbPrefix + "user"
	dbPassword             = dbPrefix + "password"
	dbName                 = dbPrefix + "name"
	dbSslMode              = dbPrefix + "ssl_mode"
	dbMaxOpenConns         = dbPrefix + "max_open_conns"
	dbMaxIdleConns         = dbPrefix + "max_idle_conns"
	dbMaxLifetimeSecond    = dbPrefix + "max_lifetime_second"
	dbMaxIdleTimeSecond    = dbPrefix + "max_idle_time_second"
	dbConnectTimeoutSecond = dbPrefix + "connect_timeout_second"
	dbRequestTimeoutSecond = dbPrefix + "request_timeout_second"

	// blob store
	blobPrefix  = "blob."
	blobBackend = blobPrefix + "backend"
	blobRoot    = blobPrefix + "store_root"

	// s3 blob backend
	s3Prefix    = "s3."
	s3Endpoint  = s3Prefix + "endpoint"
	s3Region    = s3Prefix + "region"
	s3Bucket    = s3Prefix + "bucket"
	s3AccessKey = s3Prefix + "access_key"
	s3SecretKey = s3Prefix + "secret_key"

	// queue
	queuePrefix              = "queue."
	queueLeaseSeconds        = queuePrefix + "lease_seconds"
	queueMaxAttempts         = queuePrefix + "max_attempts"
	queueIdleBackoffMs       = queuePrefix + "idle_backoff_ms"
	queueReclaimIntervalMs   = queuePrefix + "reclaim_interval_ms"
	queueEventRetentionHours = queuePrefix + "event_retention_hours"
	queueHighWaterMark       = queuePrefix + "high_water_mark"

	// upload
	uploadPrefix      = "upload."
	uploadMaxBytes    = uploadPrefix + "max_bytes"
	thumbnailMaxBytes = uploadPrefix + "thumbnail_max_bytes"

	// classification
	classificationPrefix        = "classification."
	classificationEnabled       = classificationPrefix + "enabled"
	classificationMinConfidence = classificationPrefix + "min_confidence"
	classificationMaxTags       = classificationPrefix + "max_tags"

	// worker
	workerPrefix           = "worker."
	workerApiUrl           = workerPrefix + "api_url"
	workerId               = workerPrefix + "id"
	workerRendererCommand  = workerPrefix + "renderer_command"
	workerJobBudgetSeconds = workerPrefix + "job_budget_seconds"

	// notify
	notifyPrefix       = "notify."
	notifyEmailEnabled = notifyPrefix + "email_enabled"
	notifySmtpHost     = notifyPrefix + "smtp_host"
	notifySmtpPort     = notifyPrefix + "smtp_port"
	notifySmtpUser     = notifyPrefix + "smtp_user"
	notifySmtpPassword = notifyPrefix + "smtp_password"
	notifyEmailFrom    = notifyPrefix + "email_from"
	notifyEmailTo      = notifyPrefix + "email_to"
)

// envBindings maps configuration keys to the environment variables recognized at startup.
var envBindings = map[string]string{
	serverPort:                  "SERVER_PORT",
	corsAllowedOrigins:          "CORS_ALLOWED_ORIGINS",
	dbHost:                      "DB_HOST",
	dbPort:                      "DB_PORT",
	dbUser:                      "DB_USER",
	dbPassword:                  "DB_PASSWORD",
	dbName:                      "DB_NAME",
	dbSslMode:                   "DB_SSL_MODE",
	blobBackend:                 "BLOB_STORE_BACKEND",
	blobRoot:                    "BLOB_STORE_ROOT",
	s3Endpoint:                  "S3_ENDPOINT",
	s3Region:                    "S3_REGION",
	s3Bucket:                    "S3_BUCKET",
	s3AccessKey:                 "S3_ACCESS_KEY",
	s3SecretKey:                 "S3_SECRET_KEY",
	queueLeaseSeconds:           "QUEUE_LEASE_SECONDS",
	queueMaxAttempts:            "QUEUE_MAX_ATTEMPTS",
	queueIdleBackoffMs:          "QUEUE_IDLE_BACKOFF_MS",
	queueReclaimIntervalMs:      "QUEUE_RECLAIM_INTERVAL_MS",
	queueEventRetentionHours:    "QUEUE_EVENT_RETENTION_HOURS",
	queueHighWaterMark:          "QUEUE_HIGH_WATER_MARK",
	uploadMaxBytes:              "UPLOAD_MAX_BYTES",
	thumbnailMaxBytes:           "THUMBNAIL_MAX_BYTES",
	classificationEnabled:       "IMAGE_CLASSIFICATION_ENABLED",
	classificationMinConfidence: "CLASSIFICATION_MIN_CONFIDENCE",
	classificationMaxTags:       "CLASSIFICATION_MAX_TAGS",
	workerApiUrl:                "WORKER_API_URL",
	workerId:                    "WORKER_ID",
	workerRendererCommand:       "WORKER_RENDERER_COMMAND",
	workerJobBudgetSeconds:      "WORKER_JOB_BUDGET_SECONDS",
	notifyEmailEnabled:          "NOTIFY_EMAIL_ENABLED",
	notifySmtpHost:              "NOTIFY_SMTP_HOST",
	notifySmtpPort:              "NOTIFY_SMTP_PORT",
	notifySmtpUser:              "NOTIFY_SMTP_USER",
	notifySmtpPassword:          "NOTIFY_SMTP_PASSWORD",
	notifyEmailFrom:             "NOTIFY_EMAIL_FROM",
	notifyEmailTo:               "NOTIFY_EMAIL_TO",
}
