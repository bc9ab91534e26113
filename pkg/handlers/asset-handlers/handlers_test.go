/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package asset_handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbclient "github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
)

func newTestContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, recorder
}

func TestParseEntitySpec(t *testing.T) {
	c, _ := newTestContext(t, "/files?target=version_file&modelId=3&versionId=9&role=primary")
	spec, err := parseEntitySpec(c)
	require.NoError(t, err)
	assert.Equal(t, "version_file", spec.Target)
	assert.Equal(t, int64(3), spec.ModelId)
	assert.Equal(t, int64(9), spec.VersionId)
	assert.Equal(t, "primary", spec.Role)

	c, _ = newTestContext(t, "/files?modelId=3")
	_, err = parseEntitySpec(c)
	assert.Error(t, err, "missing target")

	c, _ = newTestContext(t, "/files?target=model&modelId=zero")
	_, err = parseEntitySpec(c)
	assert.Error(t, err, "malformed id")
}

func TestParsePageClamps(t *testing.T) {
	c, _ := newTestContext(t, "/sounds?page=-2&pageSize=9999")
	page, pageSize, err := parsePage(c)
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, pageSize)

	c, _ = newTestContext(t, "/sounds?page=4&pageSize=50")
	page, pageSize, err = parsePage(c)
	require.NoError(t, err)
	assert.Equal(t, 4, page)
	assert.Equal(t, 50, pageSize)
}

func TestRequireReadyThumbnail(t *testing.T) {
	ready := &dbclient.Thumbnail{
		OwnerKind:      dbclient.OwnerSound,
		OwnerId:        5,
		Status:         dbclient.ThumbnailReady,
		OutputBlobHash: "abc",
	}
	got, err := requireReadyThumbnail(ready, nil)
	require.NoError(t, err)
	assert.Equal(t, ready, got)

	pending := &dbclient.Thumbnail{OwnerKind: dbclient.OwnerSound, OwnerId: 5, Status: dbclient.ThumbnailPending}
	_, err = requireReadyThumbnail(pending, nil)
	assert.True(t, commonerrors.IsNotFound(err))

	_, err = requireReadyThumbnail(nil, commonerrors.NewInternalError("db down"))
	assert.Error(t, err)
	assert.False(t, commonerrors.IsNotFound(err))
}

func TestHandleWrapsErrors(t *testing.T) {
	c, recorder := newTestContext(t, "/models/abc")
	handle(c, func(*gin.Context) (interface{}, error) {
		return nil, commonerrors.NewBadRequest("the id is malformed")
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	parsed := map[string]string{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &parsed))
	assert.NotEmpty(t, parsed["error"])
}

func TestHandleWritesJson(t *testing.T) {
	c, recorder := newTestContext(t, "/models/7")
	handle(c, func(*gin.Context) (interface{}, error) {
		return gin.H{"id": int64(7)}, nil
	})
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"id":7}`, recorder.Body.String())
}

func TestCreateBatchAnswersCreated(t *testing.T) {
	c, recorder := newTestContext(t, "/batches")
	(&Handler{}).CreateBatch(c)

	assert.Equal(t, http.StatusCreated, recorder.Code)
	parsed := map[string]string{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &parsed))
	assert.NotEmpty(t, parsed["batchTag"])
}

func TestUploadResponseWireShape(t *testing.T) {
	raw, err := json.Marshal(&UploadResponse{
		EntityId:     3,
		VersionId:    9,
		BlobHash:     "cafe",
		Deduplicated: true,
		IsNewEntity:  false,
	})
	require.NoError(t, err)
	parsed := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Contains(t, parsed, "id")
	assert.NotContains(t, parsed, "entityId")
	assert.Equal(t, float64(9), parsed["versionId"])
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, totalPages(0, 20))
	assert.Equal(t, 1, totalPages(1, 20))
	assert.Equal(t, 1, totalPages(20, 20))
	assert.Equal(t, 2, totalPages(21, 20))
	assert.Equal(t, 0, totalPages(5, 0))
}

func TestCvtToBatchUploadView(t *testing.T) {
	record := &dbclient.BatchUpload{
		Id:         11,
		UploadKind: dbclient.BlobKindModel,
		BlobHash:   "cafe",
		OwnerKind:  sql.NullString{String: "model", Valid: true},
		OwnerId:    sql.NullInt64{Int64: 3, Valid: true},
	}
	view := cvtToBatchUploadView(record)
	assert.Equal(t, int64(11), view.Id)
	assert.Equal(t, "model", view.OwnerKind)
	assert.Equal(t, int64(3), view.OwnerId)

	bare := cvtToBatchUploadView(&dbclient.BatchUpload{Id: 12, UploadKind: dbclient.BlobKindSound, BlobHash: "feed"})
	assert.Empty(t, bare.OwnerKind)
	assert.Zero(t, bare.OwnerId)
}

func TestInitAssetRoutersRegisters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	InitAssetRouters(engine, &Handler{})

	routes := map[string]bool{}
	for _, r := range engine.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /api/v1/files",
		"POST /api/v1/models",
		"GET /api/v1/models/:id/thumbnail/file",
		"PUT /api/v1/models/:id/active-version",
		"POST /api/v1/recycled/:kind/:id/restore",
		"POST /api/v1/maintenance/blob-gc",
		"GET /api/v1/jobs/:id/events",
	} {
		assert.True(t, routes[want], want)
	}
}
