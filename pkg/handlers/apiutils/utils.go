/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package apiutils

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	jsonutils "github.com/meshstash/meshstash/pkg/utils/json"
)

const (
	DefaultMaxRequestBodyBytes = int64(2 * 1024 * 1024)
)

// ReadBody reads the request body under the default size cap.
func ReadBody(req *http.Request) ([]byte, error) {
	defer req.Body.Close()
	lr := &io.LimitedReader{
		R: req.Body,
		N: DefaultMaxRequestBodyBytes + 1,
	}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	if lr.N <= 0 {
		return nil, commonerrors.NewRequestEntityTooLargeError(
			fmt.Sprintf("the max length is %d bytes", DefaultMaxRequestBodyBytes))
	}
	return data, nil
}

// ParseRequestBody reads the body and unmarshals it strictly into bodyStruct.
// An empty body is not an error; the caller validates required fields.
func ParseRequestBody(req *http.Request, bodyStruct interface{}) ([]byte, error) {
	body, err := ReadBody(req)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	if err = jsonutils.UnmarshalWithCheck(body, bodyStruct); err != nil {
		return body, commonerrors.NewBadRequest(err.Error())
	}
	return body, nil
}

// ParseIdParam parses a positive integer path parameter.
func ParseIdParam(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, commonerrors.NewBadRequest(fmt.Sprintf("the %s %q is not a valid id", name, raw))
	}
	return id, nil
}

// ParseIntQuery parses an optional integer query parameter, returning the
// fallback when absent.
func ParseIntQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, commonerrors.NewBadRequest(fmt.Sprintf("the %s %q is not a valid integer", name, raw))
	}
	return v, nil
}

// Logger reports each request with its latency and any attached errors.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start).Round(time.Microsecond)
		status := c.Writer.Status()
		if len(c.Errors) > 0 {
			klog.Warningf("%s %s -> %d, latency: %s, errs: %s",
				c.Request.Method, c.Request.URL.Path, status, latency, c.Errors.String())
			return
		}
		klog.V(4).Infof("%s %s -> %d, latency: %s",
			c.Request.Method, c.Request.URL.Path, status, latency)
	}
}
