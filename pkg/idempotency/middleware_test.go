/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package idempotency

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gotest.tools/assert"

	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	commonerrors "github.com/MrEliotA/modelops-studio-saas/pkg/errors"
	"github.com/MrEliotA/modelops-studio-saas/pkg/tenancy"
)

const (
	testTenant  = "8d7a1f9c-4f7e-4f3a-9a64-1d6a3e6f0b11"
	testProject = "3f2b8c1d-9e5a-4c6b-8f70-2a9d4e5b6c22"
)

type fakeStore struct {
	records map[string]*dbclient.IdempotencyKey
	nextId  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*dbclient.IdempotencyKey{}}
}

func (s *fakeStore) recordKey(tenantId, projectId, method, path, key string) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", tenantId, projectId, method, path, key)
}

func (s *fakeStore) InsertIdempotencyPlaceholder(_ context.Context, record *dbclient.IdempotencyKey) error {
	k := s.recordKey(record.TenantId, record.ProjectId, record.Method, record.Path, record.IdemKey)
	if _, ok := s.records[k]; ok {
		return commonerrors.NewAlreadyExist("idempotency key already exists")
	}
	s.nextId++
	clone := *record
	clone.Id = s.nextId
	s.records[k] = &clone
	return nil
}

func (s *fakeStore) GetIdempotencyKey(_ context.Context, tenantId, projectId, method, path, key string) (*dbclient.IdempotencyKey, error) {
	record, ok := s.records[s.recordKey(tenantId, projectId, method, path, key)]
	if !ok {
		return nil, commonerrors.NewNotFoundWithMessage("idempotency key not found")
	}
	clone := *record
	return &clone, nil
}

func (s *fakeStore) CompleteIdempotencyKey(_ context.Context, id int64, statusCode int, headers string, body []byte) error {
	for _, record := range s.records {
		if record.Id == id {
			record.StatusCode.Int64 = int64(statusCode)
			record.StatusCode.Valid = true
			record.ResponseHeaders.String = headers
			record.ResponseHeaders.Valid = true
			record.ResponseBody = body
			return nil
		}
	}
	return commonerrors.NewNotFoundWithMessage("idempotency key not found")
}

func (s *fakeStore) DeleteIdempotencyKey(_ context.Context, id int64) error {
	for k, record := range s.records {
		if record.Id == id {
			delete(s.records, k)
			return nil
		}
	}
	return nil
}

func newIdemRouter(store Store, maxBody int) (*gin.Engine, *int) {
	gin.SetMode(gin.TestMode)
	calls := 0
	e := gin.New()
	e.Use(tenancy.Middleware(nil))
	e.Use(Middleware(store, Options{TTL: time.Hour, MaxBodyBytes: maxBody}))
	e.POST("/api/v1/gpu-jobs", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"job_id": fmt.Sprintf("job-%d", calls)})
	})
	return e, &calls
}

func post(e *gin.Engine, body, idemKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/gpu-jobs", bytes.NewBufferString(body))
	req.Header.Set(tenancy.HeaderTenantId, testTenant)
	req.Header.Set(tenancy.HeaderProjectId, testProject)
	req.Header.Set(tenancy.HeaderUserId, "user-1")
	if idemKey != "" {
		req.Header.Set(HeaderIdempotencyKey, idemKey)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestReplayReturnsIdenticalBytes(t *testing.T) {
	store := newFakeStore()
	e, calls := newIdemRouter(store, 1<<16)

	first := post(e, `{"target_url":"http://svc"}`, "key-1")
	assert.Equal(t, first.Code, http.StatusCreated)
	assert.Equal(t, *calls, 1)

	second := post(e, `{"target_url":"http://svc"}`, "key-1")
	assert.Equal(t, second.Code, http.StatusCreated)
	assert.Equal(t, *calls, 1)
	assert.Equal(t, second.Body.String(), first.Body.String())
	assert.Equal(t, second.Header().Get(HeaderReplayed), "true")
}

func TestDivergentBodyConflicts(t *testing.T) {
	store := newFakeStore()
	e, calls := newIdemRouter(store, 1<<16)

	first := post(e, `{"target_url":"http://svc"}`, "key-1")
	assert.Equal(t, first.Code, http.StatusCreated)

	second := post(e, `{"target_url":"http://other"}`, "key-1")
	assert.Equal(t, second.Code, http.StatusConflict)
	assert.Equal(t, *calls, 1)
}

func TestInProgressConflicts(t *testing.T) {
	store := newFakeStore()
	e, _ := newIdemRouter(store, 1<<16)

	body := `{"target_url":"http://svc"}`
	err := store.InsertIdempotencyPlaceholder(context.TODO(), &dbclient.IdempotencyKey{
		TenantId:    testTenant,
		ProjectId:   testProject,
		Method:      http.MethodPost,
		Path:        "/api/v1/gpu-jobs",
		IdemKey:     "key-1",
		RequestHash: RequestHash([]byte(body), http.MethodPost, "/api/v1/gpu-jobs"),
	})
	assert.NilError(t, err)

	w := post(e, body, "key-1")
	assert.Equal(t, w.Code, http.StatusConflict)
}

func TestMissingKeyBypasses(t *testing.T) {
	store := newFakeStore()
	e, calls := newIdemRouter(store, 1<<16)

	post(e, `{}`, "")
	post(e, `{}`, "")
	assert.Equal(t, *calls, 2)
	assert.Equal(t, len(store.records), 0)
}

func TestOversizedResponseNotSnapshotted(t *testing.T) {
	store := newFakeStore()
	e, calls := newIdemRouter(store, 4)

	first := post(e, `{}`, "key-big")
	assert.Equal(t, first.Code, http.StatusCreated)
	assert.Equal(t, len(store.records), 0)

	second := post(e, `{}`, "key-big")
	assert.Equal(t, second.Code, http.StatusCreated)
	assert.Equal(t, *calls, 2)
}

func TestRequestHashChangesWithPath(t *testing.T) {
	body := []byte(`{}`)
	h1 := RequestHash(body, "POST", "/a")
	h2 := RequestHash(body, "POST", "/b")
	assert.Assert(t, h1 != h2)
}
