/*
 * Copyright © AMD. 2025-2026. All rights reserved.
 */

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func TestIsQuotaExceeded(t *testing.T) {
	err := NewQuotaExceeded("max_queued_jobs reached")
	assert.Equal(t, IsQuotaExceeded(err), true)
	err2 := fmt.Errorf("test")
	assert.Equal(t, IsQuotaExceeded(err2), false)
	err3 := NewInternalError("test")
	assert.Equal(t, IsQuotaExceeded(err3), false)
}

func TestIsNotFound(t *testing.T) {
	assert.Equal(t, IsNotFound(NewNotFound("GpuJob", "j-1")), true)
	assert.Equal(t, IsNotFound(NewNotFound("Endpoint", "e-1")), true)
	assert.Equal(t, IsNotFound(NewNotFoundWithMessage("gone")), true)
	assert.Equal(t, IsNotFound(NewBadRequest("test")), false)
	assert.Equal(t, IsNotFound(apierrors.NewNotFound(schema.GroupResource{}, "test")), false)
}

func TestIsTenancyDenied(t *testing.T) {
	err := NewTenancyDenied("missing X-Tenant-Id")
	assert.Equal(t, IsTenancyDenied(err), true)
	assert.Equal(t, IsTenancyDenied(NewIdempotencyConflict("hash mismatch")), false)
}

func TestIsIdempotencyConflict(t *testing.T) {
	err := NewIdempotencyConflict("hash mismatch")
	assert.Equal(t, IsIdempotencyConflict(err), true)
	assert.Equal(t, IsIdempotencyConflict(nil), false)
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, GetErrorCode(NewQuotaExceeded("test")), QuotaExceeded)
	assert.Equal(t, GetErrorCode(fmt.Errorf("test")), "")
	assert.Equal(t, GetErrorCode(nil), "")
}

func TestIgnoreFound(t *testing.T) {
	assert.Equal(t, IgnoreFound(nil), nil)
	assert.Equal(t, IgnoreFound(NewNotFound("GpuJob", "j-1")), nil)
	err := NewInternalError("test")
	assert.Equal(t, IgnoreFound(err), error(err))
}
