/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MrEliotA/modelops-studio-saas/pkg/apiserver/handlers/types"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	dbutils "github.com/MrEliotA/modelops-studio-saas/pkg/database/utils"
	"github.com/MrEliotA/modelops-studio-saas/pkg/errors"
	"github.com/MrEliotA/modelops-studio-saas/pkg/tenancy"
)

func (h *Handler) PutTenantGpuPolicy(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		identity, err := tenancy.FromContext(c)
		if err != nil {
			return nil, err
		}
		if !identity.HasRole(tenancy.RoleAdmin) {
			return nil, errors.NewForbidden("only admins may change tenant gpu policies")
		}
		tenantId := c.Param("tenant_id")
		if _, err = uuid.Parse(tenantId); err != nil {
			return nil, errors.NewBadRequest("tenant_id must be a UUID")
		}
		req := types.TenantGpuPolicyRequest{}
		if err = getBodyFromRequest(c, &req); err != nil {
			return nil, err
		}
		if req.T4MaxConcurrency < 0 || req.MigMaxConcurrency < 0 ||
			req.MaxQueuedJobs < 0 || req.PriorityBoost < 0 {
			return nil, errors.NewBadRequest("policy limits must not be negative")
		}
		if req.Plan == "" {
			req.Plan = dbclient.DefaultTenantGpuPolicy(tenantId).Plan
		}

		policy := &dbclient.TenantGpuPolicy{
			TenantId:          tenantId,
			Plan:              req.Plan,
			T4MaxConcurrency:  req.T4MaxConcurrency,
			MigMaxConcurrency: req.MigMaxConcurrency,
			MaxQueuedJobs:     req.MaxQueuedJobs,
			PriorityBoost:     req.PriorityBoost,
			UpdatedAt:         dbutils.NullTime(time.Now()),
		}
		if err = h.dbClient.UpsertTenantGpuPolicy(c.Request.Context(), policy); err != nil {
			return nil, err
		}
		return cvtToPolicyResponse(policy), nil
	})
}

func (h *Handler) GetTenantGpuPolicy(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		identity, err := tenancy.FromContext(c)
		if err != nil {
			return nil, err
		}
		tenantId := c.Param("tenant_id")
		if tenantId != identity.TenantId && !identity.HasRole(tenancy.RoleAdmin) {
			return nil, errors.NewForbidden("cannot read another tenant's gpu policy")
		}
		policy, err := h.dbClient.GetTenantGpuPolicy(c.Request.Context(), tenantId)
		if err != nil {
			return nil, err
		}
		return cvtToPolicyResponse(policy), nil
	})
}

func (h *Handler) ListTenantGpuPolicies(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		identity, err := tenancy.FromContext(c)
		if err != nil {
			return nil, err
		}
		if !identity.HasRole(tenancy.RoleAdmin) {
			return nil, errors.NewForbidden("only admins may list tenant gpu policies")
		}
		policies, err := h.dbClient.ListTenantGpuPolicies(c.Request.Context())
		if err != nil {
			return nil, err
		}
		resp := types.ListTenantGpuPoliciesResponse{Items: make([]types.TenantGpuPolicyResponse, 0, len(policies))}
		for _, policy := range policies {
			resp.Items = append(resp.Items, *cvtToPolicyResponse(policy))
		}
		return resp, nil
	})
}

func cvtToPolicyResponse(policy *dbclient.TenantGpuPolicy) *types.TenantGpuPolicyResponse {
	resp := &types.TenantGpuPolicyResponse{
		TenantId:          policy.TenantId,
		Plan:              policy.Plan,
		T4MaxConcurrency:  policy.T4MaxConcurrency,
		MigMaxConcurrency: policy.MigMaxConcurrency,
		MaxQueuedJobs:     policy.MaxQueuedJobs,
		PriorityBoost:     policy.PriorityBoost,
		UpdatedAt:         dbutils.ParseNullTimeToString(policy.UpdatedAt),
	}
	return resp
}
