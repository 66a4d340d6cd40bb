/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"time"
)

type Interface interface {
	GpuJobInterface
	TenantGpuPolicyInterface
	IdempotencyInterface
	EndpointInterface
	UsageInterface
}

type GpuJobInterface interface {
	InsertGpuJob(ctx context.Context, job *GpuJob) error
	GetGpuJob(ctx context.Context, jobId string) (*GpuJob, error)
	ListGpuJobs(ctx context.Context, tenantId, projectId, status string, limit, offset int) ([]*GpuJob, error)
	CountQueuedJobs(ctx context.Context, tenantId string) (int, error)
	CountInFlight(ctx context.Context, pool, isolation string) (int, error)
	CountTenantInFlight(ctx context.Context, tenantId, pool string) (int, error)
	ListQueuedCandidates(ctx context.Context, limit int) ([]*QueuedCandidate, error)
	MarkDispatched(ctx context.Context, jobId, pool, token string) (bool, error)
	RevertDispatch(ctx context.Context, jobId, token string) (bool, error)
	MarkRunning(ctx context.Context, jobId, token string) (bool, error)
	MarkSucceeded(ctx context.Context, jobId, token string, responseJson []byte) (bool, error)
	MarkFailed(ctx context.Context, jobId, token, errMsg string) (bool, error)
	FailDispatched(ctx context.Context, jobId, token, errMsg string) (bool, error)
	TryAdvisoryLock(ctx context.Context, key int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, key int64) error
	ListOrphanedDispatches(ctx context.Context, before time.Time) ([]*GpuJob, error)
	ListStaleRunning(ctx context.Context, before time.Time) ([]*GpuJob, error)
}

type TenantGpuPolicyInterface interface {
	GetTenantGpuPolicy(ctx context.Context, tenantId string) (*TenantGpuPolicy, error)
	EnsureTenantGpuPolicy(ctx context.Context, tenantId string) error
	UpsertTenantGpuPolicy(ctx context.Context, policy *TenantGpuPolicy) error
	ListTenantGpuPolicies(ctx context.Context) ([]*TenantGpuPolicy, error)
}

type IdempotencyInterface interface {
	InsertIdempotencyPlaceholder(ctx context.Context, record *IdempotencyKey) error
	GetIdempotencyKey(ctx context.Context, tenantId, projectId, method, path, key string) (*IdempotencyKey, error)
	CompleteIdempotencyKey(ctx context.Context, id int64, statusCode int, headers string, body []byte) error
	DeleteIdempotencyKey(ctx context.Context, id int64) error
	DeleteExpiredIdempotencyKeys(ctx context.Context, now time.Time) (int64, error)
}

type EndpointInterface interface {
	InsertEndpoint(ctx context.Context, endpoint *Endpoint) error
	GetEndpoint(ctx context.Context, endpointId string) (*Endpoint, error)
	ListEndpoints(ctx context.Context, tenantId, projectId string, limit, offset int) ([]*Endpoint, error)
	UpdateEndpointIntent(ctx context.Context, endpoint *Endpoint) error
	SetEndpointStatus(ctx context.Context, endpointId, status, url, errMsg string) error
	SoftDeleteEndpoint(ctx context.Context, endpointId string) error
	GetModelVersion(ctx context.Context, modelVersionId string) (*ModelVersion, error)
}

type UsageInterface interface {
	InsertUsageRecord(ctx context.Context, record *UsageRecord) error
	ListUsageRecords(ctx context.Context, tenantId string, limit int) ([]*UsageRecord, error)
}
