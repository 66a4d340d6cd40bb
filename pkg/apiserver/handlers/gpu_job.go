/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
	"github.com/MrEliotA/modelops-studio-saas/pkg/apiserver/handlers/types"
	"github.com/MrEliotA/modelops-studio-saas/pkg/apiserver/utils"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	dbutils "github.com/MrEliotA/modelops-studio-saas/pkg/database/utils"
	"github.com/MrEliotA/modelops-studio-saas/pkg/errors"
	"github.com/MrEliotA/modelops-studio-saas/pkg/tenancy"
)

const maxListLimit = 200

func (h *Handler) SubmitGpuJob(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		identity, err := tenancy.FromContext(c)
		if err != nil {
			return nil, err
		}
		req := types.SubmitGpuJobRequest{}
		if err = getBodyFromRequest(c, &req); err != nil {
			return nil, err
		}
		pool := v1.GpuPool(req.GpuPoolRequested)
		if pool == "" {
			pool = v1.PoolAuto
		}
		if !v1.IsValidPoolRequest(pool) {
			return nil, errors.NewBadRequest("invalid gpu_pool_requested: " + req.GpuPoolRequested)
		}
		isolation, ok := v1.NormalizeIsolation(req.IsolationLevel)
		if !ok {
			return nil, errors.NewBadRequest("invalid isolation_level: " + req.IsolationLevel)
		}
		if req.TargetUrl == "" {
			return nil, errors.NewBadRequest("target_url is required")
		}
		ctx := c.Request.Context()
		if err = h.dbClient.EnsureTenantGpuPolicy(ctx, identity.TenantId); err != nil {
			klog.ErrorS(err, "failed to ensure tenant gpu policy", "tenant", identity.TenantId)
		}
		policy, err := h.dbClient.GetTenantGpuPolicy(ctx, identity.TenantId)
		if err != nil {
			return nil, err
		}
		queued, err := h.dbClient.CountQueuedJobs(ctx, identity.TenantId)
		if err != nil {
			return nil, err
		}
		if queued >= policy.MaxQueuedJobs {
			return nil, errors.NewQuotaExceeded(fmt.Sprintf("tenant %s has %d queued jobs, max is %d",
				identity.TenantId, queued, policy.MaxQueuedJobs))
		}

		now := time.Now()
		requestJson := []byte(req.RequestJson)
		if len(requestJson) == 0 {
			requestJson = []byte("{}")
		}
		job := &dbclient.GpuJob{
			JobId:            uuid.NewString(),
			TenantId:         identity.TenantId,
			ProjectId:        identity.ProjectId,
			UserId:           dbutils.NullString(identity.UserId),
			GpuPoolRequested: string(pool),
			IsolationLevel:   string(isolation),
			Priority:         req.Priority,
			TargetUrl:        req.TargetUrl,
			RequestJson:      requestJson,
			Status:           string(v1.JobQueued),
			RequestedAt:      dbutils.NullTime(now),
			UpdatedAt:        dbutils.NullTime(now),
		}
		if err = h.dbClient.InsertGpuJob(ctx, job); err != nil {
			return nil, err
		}

		h.publishEvent(v1.SubjectJobEnqueued, &v1.JobEnqueuedEvent{
			TenantId:    identity.TenantId,
			ProjectId:   identity.ProjectId,
			JobId:       job.JobId,
			Pool:        string(pool),
			Isolation:   string(isolation),
			Priority:    req.Priority,
			PublishedAt: now.UTC(),
		})

		c.Status(http.StatusCreated)
		return cvtToGpuJobResponse(job), nil
	})
}

func (h *Handler) GetGpuJob(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		identity, err := tenancy.FromContext(c)
		if err != nil {
			return nil, err
		}
		jobId := c.Param("id")
		job, err := h.dbClient.GetGpuJob(c.Request.Context(), jobId)
		if err != nil {
			return nil, err
		}
		if job.TenantId != identity.TenantId || job.ProjectId != identity.ProjectId {
			return nil, errors.NewNotFound("GpuJob", jobId)
		}
		return cvtToGpuJobResponse(job), nil
	})
}

func (h *Handler) ListGpuJobs(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		identity, err := tenancy.FromContext(c)
		if err != nil {
			return nil, err
		}
		limit := utils.GetIntQuery(c, "limit", 50)
		offset := utils.GetIntQuery(c, "offset", 0)
		if limit <= 0 || limit > maxListLimit {
			limit = maxListLimit
		}
		if offset < 0 {
			offset = 0
		}
		status := c.Query("status")
		jobs, err := h.dbClient.ListGpuJobs(c.Request.Context(),
			identity.TenantId, identity.ProjectId, status, limit, offset)
		if err != nil {
			return nil, err
		}
		resp := types.ListGpuJobsResponse{Items: make([]types.GpuJobResponse, 0, len(jobs))}
		for _, job := range jobs {
			resp.Items = append(resp.Items, *cvtToGpuJobResponse(job))
		}
		return resp, nil
	})
}

func cvtToGpuJobResponse(job *dbclient.GpuJob) *types.GpuJobResponse {
	return &types.GpuJobResponse{
		JobId:            job.JobId,
		TenantId:         job.TenantId,
		ProjectId:        job.ProjectId,
		GpuPoolRequested: job.GpuPoolRequested,
		GpuPoolAssigned:  dbutils.ParseNullString(job.GpuPoolAssigned),
		IsolationLevel:   job.IsolationLevel,
		Priority:         job.Priority,
		TargetUrl:        job.TargetUrl,
		Status:           job.Status,
		DispatchAttempts: job.DispatchAttempts,
		ResponseJson:     job.ResponseJson,
		Error:            dbutils.ParseNullString(job.Error),
		RequestedAt:      dbutils.ParseNullTimeToString(job.RequestedAt),
		DispatchedAt:     dbutils.ParseNullTimeToString(job.DispatchedAt),
		StartedAt:        dbutils.ParseNullTimeToString(job.StartedAt),
		FinishedAt:       dbutils.ParseNullTimeToString(job.FinishedAt),
	}
}
