/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package tenancy

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/gin-gonic/gin"
	"gotest.tools/assert"
)

const (
	testTenant  = "8d7a1f9c-4f7e-4f3a-9a64-1d6a3e6f0b11"
	testProject = "3f2b8c1d-9e5a-4c6b-8f70-2a9d4e5b6c22"
)

func newTestRouter() (*gin.Engine, *Identity) {
	gin.SetMode(gin.TestMode)
	captured := &Identity{}
	e := gin.New()
	e.Use(Middleware([]string{"/healthz", "/metrics"}))
	e.GET("/api/v1/gpu-jobs", func(c *gin.Context) {
		identity, err := FromContext(c)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		*captured = *identity
		c.Status(http.StatusOK)
	})
	e.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return e, captured
}

func doRequest(e *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for key, val := range headers {
		req.Header.Set(key, val)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestMiddlewareAcceptsValidHeaders(t *testing.T) {
	e, captured := newTestRouter()
	w := doRequest(e, "/api/v1/gpu-jobs", map[string]string{
		HeaderTenantId:  testTenant,
		HeaderProjectId: testProject,
		HeaderUserId:    "user-1",
		HeaderRoles:     "admin, viewer operator",
	})
	assert.Equal(t, w.Code, http.StatusOK)
	assert.Equal(t, captured.TenantId, testTenant)
	assert.Equal(t, captured.UserId, "user-1")
	assert.Equal(t, slices.Equal(captured.Roles, []string{"admin", "viewer", "operator"}), true)
	assert.Equal(t, captured.HasRole(RoleAdmin), true)
	assert.Equal(t, captured.HasRole("auditor"), false)
	assert.Assert(t, w.Header().Get(HeaderRequestId) != "")
}

func TestMiddlewareRejectsMissingTenant(t *testing.T) {
	e, _ := newTestRouter()
	w := doRequest(e, "/api/v1/gpu-jobs", map[string]string{
		HeaderProjectId: testProject,
		HeaderUserId:    "user-1",
	})
	assert.Equal(t, w.Code, http.StatusBadRequest)
}

func TestMiddlewareRejectsMalformedTenant(t *testing.T) {
	e, _ := newTestRouter()
	w := doRequest(e, "/api/v1/gpu-jobs", map[string]string{
		HeaderTenantId:  "not-a-uuid",
		HeaderProjectId: testProject,
		HeaderUserId:    "user-1",
	})
	assert.Equal(t, w.Code, http.StatusBadRequest)
}

func TestMiddlewareSkipsHealthz(t *testing.T) {
	e, _ := newTestRouter()
	w := doRequest(e, "/healthz", nil)
	assert.Equal(t, w.Code, http.StatusOK)
}

func TestMiddlewarePropagatesRequestId(t *testing.T) {
	e, _ := newTestRouter()
	w := doRequest(e, "/healthz", map[string]string{HeaderRequestId: "req-42"})
	assert.Equal(t, w.Header().Get(HeaderRequestId), "req-42")
}
