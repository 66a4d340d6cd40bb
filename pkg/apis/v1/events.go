/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package v1

import (
	"fmt"
	"time"
)

// Stream and subject layout of the event bus. Subjects are partitioned per
// stream so each worker binds a durable consumer to its own stream.
const (
	StreamGpu      = "MODELOPS_GPU"
	StreamServing  = "MODELOPS_SERVING"
	StreamMetering = "MODELOPS_METERING"

	SubjectGpuAll      = "modelops.gpu.>"
	SubjectServingAll  = "modelops.serving.>"
	SubjectMeteringAll = "modelops.metering.>"

	SubjectJobEnqueued = "modelops.gpu.jobs.enqueued"
	SubjectJobFinished = "modelops.gpu.jobs.finished"

	subjectDispatchedPrefix = "modelops.gpu.jobs.dispatched"
	SubjectDispatchedAll    = subjectDispatchedPrefix + ".>"

	SubjectDeployRequested = "modelops.serving.deploy_requested"
	SubjectDeleteRequested = "modelops.serving.delete_requested"

	SubjectUsageRecorded = "modelops.metering.usage_recorded"
)

// DispatchSubject returns the per-pool dispatch subject. MIG is hard
// partitioned, so it carries no isolation segment.
func DispatchSubject(pool GpuPool, isolation IsolationLevel) string {
	if pool == PoolMig {
		return subjectDispatchedPrefix + ".mig"
	}
	return fmt.Sprintf("%s.%s.%s", subjectDispatchedPrefix, pool, isolation)
}

// DispatchSubjects lists every dispatch subject a dispatcher consumes.
func DispatchSubjects() []string {
	return []string{
		DispatchSubject(PoolT4, IsolationShared),
		DispatchSubject(PoolT4, IsolationExclusive),
		DispatchSubject(PoolMig, ""),
	}
}

type JobEnqueuedEvent struct {
	TenantId    string    `json:"tenant_id"`
	ProjectId   string    `json:"project_id"`
	JobId       string    `json:"job_id"`
	Pool        string    `json:"gpu_pool_requested"`
	Isolation   string    `json:"isolation_level"`
	Priority    int       `json:"priority"`
	PublishedAt time.Time `json:"published_at"`
}

type JobDispatchedEvent struct {
	TenantId      string    `json:"tenant_id"`
	ProjectId     string    `json:"project_id"`
	JobId         string    `json:"job_id"`
	DispatchToken string    `json:"dispatch_token"`
	Pool          string    `json:"gpu_pool_assigned"`
	Isolation     string    `json:"isolation_level"`
	PublishedAt   time.Time `json:"published_at"`
}

type JobFinishedEvent struct {
	TenantId    string    `json:"tenant_id"`
	ProjectId   string    `json:"project_id"`
	JobId       string    `json:"job_id"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

type EndpointEvent struct {
	TenantId    string    `json:"tenant_id"`
	ProjectId   string    `json:"project_id"`
	EndpointId  string    `json:"endpoint_id"`
	PublishedAt time.Time `json:"published_at"`
}

type UsageRecordedEvent struct {
	TenantId    string            `json:"tenant_id"`
	ProjectId   string            `json:"project_id"`
	SubjectType string            `json:"subject_type"`
	SubjectId   string            `json:"subject_id"`
	Meter       string            `json:"meter"`
	Quantity    float64           `json:"quantity"`
	Labels      map[string]string `json:"labels,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
}
