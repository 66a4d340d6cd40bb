/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultMaxTry  = 2
)

type Result struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Headers carries the tenancy identity propagated to downstream services.
type Headers struct {
	TenantId  string
	ProjectId string
	UserId    string
	RequestId string
}

type Interface interface {
	Post(ctx context.Context, url string, body []byte, timeout time.Duration, headers *Headers) (*Result, error)
	Get(ctx context.Context, url string, timeout time.Duration, headers *Headers) (*Result, error)
}

type client struct {
	*http.Client
}

var (
	once     sync.Once
	instance *client
)

func NewHttpClient() Interface {
	once.Do(func() {
		instance = &client{
			Client: &http.Client{
				Timeout: DefaultTimeout,
				Transport: &http.Transport{
					TLSHandshakeTimeout:   10 * time.Second,
					MaxIdleConns:          128,
					MaxConnsPerHost:       64,
					IdleConnTimeout:       1 * time.Minute,
					ExpectContinueTimeout: 10 * time.Second,
				},
			},
		}
	})
	return instance
}

func (c *client) Post(ctx context.Context, url string, body []byte, timeout time.Duration, headers *Headers) (*Result, error) {
	return c.do(ctx, http.MethodPost, url, body, timeout, headers)
}

func (c *client) Get(ctx context.Context, url string, timeout time.Duration, headers *Headers) (*Result, error) {
	return c.do(ctx, http.MethodGet, url, nil, timeout, headers)
}

// do executes the request with a bounded timeout and a small retry budget.
func (c *client) do(ctx context.Context, method, url string, body []byte, timeout time.Duration, headers *Headers) (*Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rsp *http.Response
	var err error
	for i := 0; i < DefaultMaxTry; i++ {
		var req *http.Request
		req, err = buildRequest(ctx, method, url, body, headers)
		if err != nil {
			return nil, err
		}
		if rsp, err = c.Client.Do(req); err == nil {
			break
		} else if i == DefaultMaxTry-1 {
			return nil, err
		}
	}
	if rsp == nil {
		return nil, fmt.Errorf("no result")
	}
	data, err := io.ReadAll(rsp.Body)
	defer rsp.Body.Close()
	if err != nil {
		return nil, err
	}
	return &Result{StatusCode: rsp.StatusCode, Body: data, Header: rsp.Header}, nil
}

func buildRequest(ctx context.Context, method, url string, body []byte, headers *Headers) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	if headers != nil {
		setIfPresent(request, "X-Tenant-Id", headers.TenantId)
		setIfPresent(request, "X-Project-Id", headers.ProjectId)
		setIfPresent(request, "X-User-Id", headers.UserId)
		setIfPresent(request, "X-Request-Id", headers.RequestId)
	}
	return request, nil
}

func setIfPresent(req *http.Request, name, value string) {
	if value != "" {
		req.Header.Set(name, value)
	}
}
