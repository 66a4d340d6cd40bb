/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gotest.tools/assert"
)

func TestGenInsertGpuJobCmd(t *testing.T) {
	job := GpuJob{}
	cmd := genInsertCommand(job, insertGpuJobFormat, "id")
	fmt.Println(cmd)
	assert.Assert(t, strings.Contains(cmd, "job_id"))
	assert.Assert(t, strings.Contains(cmd, ":dispatch_token"))
	assert.Assert(t, !strings.Contains(cmd, "(id,"))
}

func TestGetGpuJobFieldTags(t *testing.T) {
	tags := GetGpuJobFieldTags()
	assert.Equal(t, GetFieldTag(tags, "jobId"), "job_id")
	assert.Equal(t, GetFieldTag(tags, "gpuPoolRequested"), "gpu_pool_requested")
	assert.Equal(t, GetFieldTag(tags, "dispatchAttempts"), "dispatch_attempts")
	assert.Equal(t, GetFieldTag(tags, "requestedAt"), "requested_at")
}

func TestGetEndpointFieldTags(t *testing.T) {
	tags := GetEndpointFieldTags()
	assert.Equal(t, GetFieldTag(tags, "endpointId"), "endpoint_id")
	assert.Equal(t, GetFieldTag(tags, "modelVersionId"), "model_version_id")
	assert.Equal(t, GetFieldTag(tags, "isDeleted"), "is_deleted")
}

func TestDefaultTenantGpuPolicy(t *testing.T) {
	policy := DefaultTenantGpuPolicy("t-1")
	assert.Equal(t, policy.TenantId, "t-1")
	assert.Equal(t, policy.Plan, "free")
	assert.Equal(t, policy.T4MaxConcurrency, 1)
	assert.Equal(t, policy.MigMaxConcurrency, 0)
	assert.Equal(t, policy.MaxQueuedJobs, 50)
}

func TestUninitializedClient(t *testing.T) {
	c := &Client{}
	ctx := context.TODO()
	_, err := c.GetGpuJob(ctx, "j-1")
	assert.ErrorContains(t, err, "not been initialized")
	_, err = c.CountQueuedJobs(ctx, "t-1")
	assert.ErrorContains(t, err, "not been initialized")
	err = c.InsertUsageRecord(ctx, &UsageRecord{})
	assert.ErrorContains(t, err, "not been initialized")
}
