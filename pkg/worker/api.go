/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	commonconfig "github.com/meshstash/meshstash/pkg/config"
	"github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	"github.com/meshstash/meshstash/pkg/queue"
	utilsbackoff "github.com/meshstash/meshstash/pkg/utils/backoff"
)

// JobQueue is the queue as a worker sees it: lease, renew, terminal calls,
// and blob transfer. Implemented by ApiClient over HTTP; tests supply fakes.
type JobQueue interface {
	Blobs
	LeaseJob(ctx context.Context, kinds []string) (*client.Job, error)
	RenewJob(ctx context.Context, jobId int64) error
	CompleteJob(ctx context.Context, jobId int64, result *Result) error
	FailJob(ctx context.Context, jobId int64, message string) error
	ReportProgress(ctx context.Context, jobId int64, subkind string, payload []byte) error
}

type leaseRequest struct {
	WorkerId      string   `json:"workerId"`
	AcceptedKinds []string `json:"acceptedKinds"`
	LeaseSeconds  int      `json:"leaseSeconds,omitempty"`
}

type renewRequest struct {
	WorkerId string `json:"workerId"`
}

type completeRequest struct {
	WorkerId string  `json:"workerId"`
	Result   *Result `json:"result,omitempty"`
}

type failRequest struct {
	WorkerId string `json:"workerId"`
	Error    string `json:"error"`
}

type progressRequest struct {
	WorkerId string          `json:"workerId"`
	Subkind  string          `json:"subkind"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type storeBlobResponse struct {
	Hash      string `json:"hash"`
	SizeBytes int64  `json:"sizeBytes"`
}

type errResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ApiClient implements JobQueue over the server's worker API.
type ApiClient struct {
	baseUrl       string
	workerId      string
	leaseDuration time.Duration
	client        *http.Client
}

func NewApiClient() *ApiClient {
	workerId := commonconfig.GetWorkerId()
	if workerId == "" {
		host, _ := os.Hostname()
		workerId = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	return &ApiClient{
		baseUrl:       strings.TrimRight(commonconfig.GetWorkerApiUrl(), "/"),
		workerId:      workerId,
		leaseDuration: commonconfig.GetQueueLeaseDuration(),
		client:        &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *ApiClient) WorkerId() string {
	return c.workerId
}

// LeaseJob claims the next eligible job of the accepted kinds. Nil means the
// queue had nothing. Transport errors are retried; the claim itself lives
// server-side, so a lost response at worst parks a lease until expiry.
func (c *ApiClient) LeaseJob(ctx context.Context, kinds []string) (*client.Job, error) {
	var view *queue.JobView
	operation := func() error {
		view = nil
		resp, err := c.postJSON(ctx, "/worker/jobs/lease", leaseRequest{
			WorkerId:      c.workerId,
			AcceptedKinds: kinds,
			LeaseSeconds:  int(c.leaseDuration / time.Second),
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(decodeError(resp))
		}
		view = &queue.JobView{}
		return json.NewDecoder(resp.Body).Decode(view)
	}
	if err := utilsbackoff.Retry(operation, 15*time.Second, 3*time.Second); err != nil {
		return nil, err
	}
	if view == nil {
		return nil, nil
	}
	return view.ToJob(), nil
}

func (c *ApiClient) RenewJob(ctx context.Context, jobId int64) error {
	return c.simplePost(ctx, fmt.Sprintf("/worker/jobs/%d/renew", jobId), renewRequest{WorkerId: c.workerId})
}

func (c *ApiClient) CompleteJob(ctx context.Context, jobId int64, result *Result) error {
	return c.simplePost(ctx, fmt.Sprintf("/worker/jobs/%d/complete", jobId),
		completeRequest{WorkerId: c.workerId, Result: result})
}

func (c *ApiClient) FailJob(ctx context.Context, jobId int64, message string) error {
	return c.simplePost(ctx, fmt.Sprintf("/worker/jobs/%d/fail", jobId),
		failRequest{WorkerId: c.workerId, Error: message})
}

func (c *ApiClient) ReportProgress(ctx context.Context, jobId int64, subkind string, payload []byte) error {
	return c.simplePost(ctx, fmt.Sprintf("/worker/jobs/%d/progress", jobId),
		progressRequest{WorkerId: c.workerId, Subkind: subkind, Payload: payload})
}

// FetchBlob streams the content of a blob. The caller owns the reader.
func (c *ApiClient) FetchBlob(ctx context.Context, hash string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseUrl+"/worker/blobs/"+url.PathEscape(hash), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, commonerrors.NewTransientDependency(err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp.Body, nil
}

// StoreBlob uploads derived bytes and returns their content hash.
func (c *ApiClient) StoreBlob(ctx context.Context, fileName string, r io.Reader) (string, int64, error) {
	endpoint := c.baseUrl + "/worker/blobs?fileName=" + url.QueryEscape(fileName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, r)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, commonerrors.NewTransientDependency(err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", 0, decodeError(resp)
	}
	stored := storeBlobResponse{}
	if err = json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return "", 0, err
	}
	return stored.Hash, stored.SizeBytes, nil
}

func (c *ApiClient) postJSON(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// simplePost is for the single-shot lifecycle calls. They are not retried:
// a 409 means the lease moved on and retrying cannot win it back.
func (c *ApiClient) simplePost(ctx context.Context, path string, body interface{}) error {
	resp, err := c.postJSON(ctx, path, body)
	if err != nil {
		return commonerrors.NewTransientDependency(err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	return nil
}

// decodeError rebuilds a typed error from the handler error envelope.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	parsed := errResponse{}
	_ = json.Unmarshal(body, &parsed)
	message := parsed.Message
	if message == "" {
		message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	switch resp.StatusCode {
	case http.StatusConflict:
		return commonerrors.NewLeaseLost(message)
	case http.StatusNotFound:
		return commonerrors.NewNotFoundWithMessage(message)
	case http.StatusBadRequest:
		return commonerrors.NewBadRequest(message)
	case http.StatusServiceUnavailable:
		return commonerrors.NewTransientDependency(message)
	default:
		return commonerrors.NewInternalError(message)
	}
}
