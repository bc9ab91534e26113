/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package job_handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbclient "github.com/meshstash/meshstash/pkg/database/client"
	dbutils "github.com/meshstash/meshstash/pkg/database/utils"
	"github.com/meshstash/meshstash/pkg/queue"
)

func newTestContext(t *testing.T, method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	return c, recorder
}

// The validation paths reject before any collaborator is touched, so a bare
// handler is enough.

func TestLeaseJobRequiresWorkerId(t *testing.T) {
	h := &Handler{}
	c, recorder := newTestContext(t, http.MethodPost, "/worker/jobs/lease",
		`{"acceptedKinds":["MODEL_THUMBNAIL"]}`)
	h.LeaseJob(c)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestLeaseJobRequiresAcceptedKinds(t *testing.T) {
	h := &Handler{}
	c, recorder := newTestContext(t, http.MethodPost, "/worker/jobs/lease",
		`{"workerId":"w1"}`)
	h.LeaseJob(c)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestLeaseJobRejectsUnknownFields(t *testing.T) {
	h := &Handler{}
	c, recorder := newTestContext(t, http.MethodPost, "/worker/jobs/lease",
		`{"workerId":"w1","acceptedKinds":["MODEL_THUMBNAIL"],"bogus":true}`)
	h.LeaseJob(c)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

// fakeLeaseStore serves exactly one pre-seeded job and records the lease
// duration the handler asked for.
type fakeLeaseStore struct {
	job           *dbclient.Job
	leaseDuration time.Duration
}

func (f *fakeLeaseStore) LeaseJob(_ context.Context, workerId string, _ []string, d time.Duration) (*dbclient.Job, error) {
	f.leaseDuration = d
	if f.job != nil {
		f.job.Status = dbclient.JobLeased
		f.job.LeaseOwner = dbutils.NullString(workerId)
		f.job.Attempts++
	}
	return f.job, nil
}

func (f *fakeLeaseStore) InsertJob(_ context.Context, job *dbclient.Job) (*dbclient.Job, bool, error) {
	return job, false, nil
}
func (f *fakeLeaseStore) RenewLease(context.Context, int64, string, time.Duration) error { return nil }
func (f *fakeLeaseStore) CompleteJob(context.Context, int64, string, []byte) (*dbclient.Job, error) {
	return nil, nil
}
func (f *fakeLeaseStore) FailJob(context.Context, int64, string, string) (*dbclient.Job, error) {
	return nil, nil
}
func (f *fakeLeaseStore) ReclaimExpiredJobs(context.Context, time.Time) ([]*dbclient.Job, error) {
	return nil, nil
}
func (f *fakeLeaseStore) GetJob(context.Context, int64) (*dbclient.Job, error) { return nil, nil }
func (f *fakeLeaseStore) InsertJobEvent(context.Context, *dbclient.JobEvent) error {
	return nil
}
func (f *fakeLeaseStore) SelectJobEvents(context.Context, int64) ([]*dbclient.JobEvent, error) {
	return nil, nil
}
func (f *fakeLeaseStore) PurgeJobEvents(context.Context, time.Time) (int64, error) { return 0, nil }
func (f *fakeLeaseStore) CountActiveJobs(context.Context) (int, error)             { return 0, nil }

func TestLeaseJobAcceptsWireContractBody(t *testing.T) {
	store := &fakeLeaseStore{}
	h := NewHandler(nil, queue.NewService(store, nil, nil), nil)
	c, recorder := newTestContext(t, http.MethodPost, "/worker/jobs/lease",
		`{"workerId":"w1","acceptedKinds":["MODEL_THUMBNAIL"],"leaseSeconds":2}`)
	h.LeaseJob(c)
	// gin defers the status header until a body write or the engine's flush;
	// a bare handler call has neither, so flush it into the recorder here.
	c.Writer.WriteHeaderNow()

	// empty queue answers 204; the requested lease duration reached the store
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, 2*time.Second, store.leaseDuration)
}

func TestLeaseJobReturnsLeasedJob(t *testing.T) {
	store := &fakeLeaseStore{job: &dbclient.Job{
		Id:          7,
		Kind:        dbclient.KindMeshAnalysis,
		TargetId:    3,
		Status:      dbclient.JobPending,
		MaxAttempts: 3,
	}}
	h := NewHandler(nil, queue.NewService(store, nil, nil), nil)
	c, recorder := newTestContext(t, http.MethodPost, "/worker/jobs/lease",
		`{"workerId":"w1","acceptedKinds":["MESH_ANALYSIS"],"leaseSeconds":2}`)
	h.LeaseJob(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	view := &queue.JobView{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), view))
	assert.Equal(t, int64(7), view.Id)
	assert.Equal(t, "w1", view.LeaseOwner)
}

func TestRenewJobRequiresWorkerId(t *testing.T) {
	h := &Handler{}
	c, recorder := newTestContext(t, http.MethodPost, "/worker/jobs/5/renew", `{}`)
	c.Params = gin.Params{{Key: ParamId, Value: "5"}}
	h.RenewJob(c)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestFailJobRequiresValidId(t *testing.T) {
	h := &Handler{}
	c, recorder := newTestContext(t, http.MethodPost, "/worker/jobs/zero/fail",
		`{"workerId":"w1","error":"boom"}`)
	c.Params = gin.Params{{Key: ParamId, Value: "zero"}}
	h.FailJob(c)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	parsed := map[string]string{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &parsed))
	assert.NotEmpty(t, parsed["error"])
}

func TestFetchBlobRejectsBadHash(t *testing.T) {
	h := &Handler{}
	c, recorder := newTestContext(t, http.MethodGet, "/worker/blobs/nothex", "")
	c.Params = gin.Params{{Key: ParamHash, Value: "nothex"}}
	h.FetchBlob(c)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestStoreBlobRequiresFileName(t *testing.T) {
	h := &Handler{}
	c, recorder := newTestContext(t, http.MethodPost, "/worker/blobs", "payload")
	h.StoreBlob(c)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestInitWorkerRoutersRegisters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	InitWorkerRouters(engine, &Handler{})

	routes := map[string]bool{}
	for _, r := range engine.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /worker/jobs/lease",
		"POST /worker/jobs/:id/renew",
		"POST /worker/jobs/:id/complete",
		"POST /worker/jobs/:id/fail",
		"POST /worker/jobs/:id/progress",
		"GET /worker/blobs/:hash",
		"POST /worker/blobs",
	} {
		assert.True(t, routes[want], want)
	}
}
