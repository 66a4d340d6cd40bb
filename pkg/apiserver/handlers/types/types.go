/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package types

import (
	"encoding/json"
)

type SubmitGpuJobRequest struct {
	GpuPoolRequested string          `json:"gpu_pool_requested"`
	IsolationLevel   string          `json:"isolation_level"`
	Priority         int             `json:"priority"`
	TargetUrl        string          `json:"target_url"`
	RequestJson      json.RawMessage `json:"request_json"`
}

type GpuJobResponse struct {
	JobId            string          `json:"job_id"`
	TenantId         string          `json:"tenant_id"`
	ProjectId        string          `json:"project_id"`
	GpuPoolRequested string          `json:"gpu_pool_requested"`
	GpuPoolAssigned  string          `json:"gpu_pool_assigned,omitempty"`
	IsolationLevel   string          `json:"isolation_level"`
	Priority         int             `json:"priority"`
	TargetUrl        string          `json:"target_url"`
	Status           string          `json:"status"`
	DispatchAttempts int             `json:"dispatch_attempts"`
	ResponseJson     json.RawMessage `json:"response_json,omitempty"`
	Error            string          `json:"error,omitempty"`
	RequestedAt      string          `json:"requested_at,omitempty"`
	DispatchedAt     string          `json:"dispatched_at,omitempty"`
	StartedAt        string          `json:"started_at,omitempty"`
	FinishedAt       string          `json:"finished_at,omitempty"`
}

type ListGpuJobsResponse struct {
	Items []GpuJobResponse `json:"items"`
}

type CreateDeploymentRequest struct {
	Name           string          `json:"name"`
	Runtime        string          `json:"runtime"`
	ModelVersionId string          `json:"model_version_id"`
	Traffic        json.RawMessage `json:"traffic"`
	Autoscaling    json.RawMessage `json:"autoscaling"`
	RuntimeConfig  json.RawMessage `json:"runtime_config"`
}

type PatchDeploymentRequest struct {
	Runtime        *string         `json:"runtime"`
	ModelVersionId *string         `json:"model_version_id"`
	Traffic        json.RawMessage `json:"traffic"`
	Autoscaling    json.RawMessage `json:"autoscaling"`
	RuntimeConfig  json.RawMessage `json:"runtime_config"`
}

type EndpointResponse struct {
	EndpointId     string          `json:"endpoint_id"`
	TenantId       string          `json:"tenant_id"`
	ProjectId      string          `json:"project_id"`
	Name           string          `json:"name"`
	Runtime        string          `json:"runtime"`
	ModelVersionId string          `json:"model_version_id,omitempty"`
	Traffic        json.RawMessage `json:"traffic,omitempty"`
	Autoscaling    json.RawMessage `json:"autoscaling,omitempty"`
	RuntimeConfig  json.RawMessage `json:"runtime_config,omitempty"`
	Status         string          `json:"status"`
	Url            string          `json:"url,omitempty"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      string          `json:"created_at,omitempty"`
	UpdatedAt      string          `json:"updated_at,omitempty"`
}

type ListEndpointsResponse struct {
	Items []EndpointResponse `json:"items"`
}

type TenantGpuPolicyRequest struct {
	Plan              string `json:"plan"`
	T4MaxConcurrency  int    `json:"t4_max_concurrency"`
	MigMaxConcurrency int    `json:"mig_max_concurrency"`
	MaxQueuedJobs     int    `json:"max_queued_jobs"`
	PriorityBoost     int    `json:"priority_boost"`
}

type TenantGpuPolicyResponse struct {
	TenantId          string `json:"tenant_id"`
	Plan              string `json:"plan"`
	T4MaxConcurrency  int    `json:"t4_max_concurrency"`
	MigMaxConcurrency int    `json:"mig_max_concurrency"`
	MaxQueuedJobs     int    `json:"max_queued_jobs"`
	PriorityBoost     int    `json:"priority_boost"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

type ListTenantGpuPoliciesResponse struct {
	Items []TenantGpuPolicyResponse `json:"items"`
}
