/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/lib/pq"
)

const (
	DESC = "desc"
	ASC  = "asc"

	CreateTime = "create_time"
	UpdateTime = "update_time"
)

// Job statuses. The queue FSM is PENDING -> LEASED -> (DONE | FAILED | PENDING).
const (
	JobPending = "PENDING"
	JobLeased  = "LEASED"
	JobDone    = "DONE"
	JobFailed  = "FAILED"
)

// Job kinds map one-to-one onto registered processors.
const (
	KindModelThumbnail      = "MODEL_THUMBNAIL"
	KindSoundWaveform       = "SOUND_WAVEFORM"
	KindTextureSetThumbnail = "TEXTURESET_THUMBNAIL"
	KindMeshAnalysis        = "MESH_ANALYSIS"
)

// Job event kinds. PROGRESS carries a subkind in the message field.
const (
	EventEnqueued         = "ENQUEUED"
	EventLeased           = "LEASED"
	EventProgress         = "PROGRESS"
	EventCompleted        = "COMPLETED"
	EventFailed           = "FAILED"
	EventExpiredReclaimed = "EXPIRED_RECLAIMED"
)

type Job struct {
	Id          int64          `db:"id"`
	Kind        string         `db:"kind"`
	TargetId    int64          `db:"target_id"`
	BlobHash    string         `db:"blob_hash"`
	Status      string         `db:"status"`
	Attempts    int            `db:"attempts"`
	MaxAttempts int            `db:"max_attempts"`
	LeaseOwner  sql.NullString `db:"lease_owner"`
	LeaseExpiry pq.NullTime    `db:"lease_expiry"`
	LastError   sql.NullString `db:"last_error"`
	Payload     []byte         `db:"payload"`
	Result      sql.NullString `db:"result"`
	CreateTime  pq.NullTime    `db:"create_time"`
	UpdateTime  pq.NullTime    `db:"update_time"`
}

// GetJobFieldTags returns the JobFieldTags value.
func GetJobFieldTags() map[string]string {
	j := Job{}
	return getFieldTags(j)
}

type JobEvent struct {
	Id         int64          `db:"id"`
	JobId      int64          `db:"job_id"`
	Kind       string         `db:"kind"`
	Message    sql.NullString `db:"message"`
	Payload    []byte         `db:"payload"`
	CreateTime pq.NullTime    `db:"create_time"`
}

// GetJobEventFieldTags returns the JobEventFieldTags value.
func GetJobEventFieldTags() map[string]string {
	e := JobEvent{}
	return getFieldTags(e)
}

type BatchUpload struct {
	Id         int64          `db:"id"`
	BatchTag   string         `db:"batch_tag"`
	UploadKind string         `db:"upload_kind"`
	BlobHash   string         `db:"blob_hash"`
	OwnerKind  sql.NullString `db:"owner_kind"`
	OwnerId    sql.NullInt64  `db:"owner_id"`
	CreateTime pq.NullTime    `db:"create_time"`
}

// GetBatchUploadFieldTags returns the BatchUploadFieldTags value.
func GetBatchUploadFieldTags() map[string]string {
	b := BatchUpload{}
	return getFieldTags(b)
}

// getFieldTags retrieves FieldTags for internal use.
func getFieldTags(obj interface{}) map[string]string {
	result := make(map[string]string)
	t := reflect.TypeOf(obj)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		result[strings.ToLower(field.Name)] = field.Tag.Get("db")
	}
	return result
}

// generateCommand generates SQL command string using reflection
// Iterates through struct fields and builds column and value lists
// Skips fields with specified ignoreTag
// Returns formatted SQL command with columns and values
func generateCommand(obj interface{}, format, ignoreTag string) string {
	t := reflect.TypeOf(obj)
	columns := make([]string, 0, t.NumField())
	values := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("db")
		if tag == ignoreTag {
			continue
		}
		columns = append(columns, tag)
		values = append(values, fmt.Sprintf(":%s", tag))
	}
	cmd := fmt.Sprintf(format, strings.Join(columns, ", "), strings.Join(values, ", "))
	return cmd
}

// GetFieldTag returns the FieldTag value.
func GetFieldTag(tags map[string]string, name string) string {
	name = strings.ToLower(name)
	return tags[name]
}
