/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package apiserver

import (
	"github.com/gin-gonic/gin"

	"github.com/MrEliotA/modelops-studio-saas/pkg/apiserver/handlers"
)

func initRouters(engine *gin.Engine, h *handlers.Handler) {
	group := engine.Group("/api/v1")
	{
		group.POST("gpu-jobs", h.SubmitGpuJob)
		group.GET("gpu-jobs", h.ListGpuJobs)
		group.GET("gpu-jobs/:id", h.GetGpuJob)

		group.POST("deployments", h.CreateDeployment)
		group.GET("deployments", h.ListDeployments)
		group.GET("deployments/:id", h.GetDeployment)
		group.PATCH("deployments/:id", h.PatchDeployment)
		group.DELETE("deployments/:id", h.DeleteDeployment)

		group.GET("tenant-gpu-policies", h.ListTenantGpuPolicies)
		group.GET("tenant-gpu-policies/:tenant_id", h.GetTenantGpuPolicy)
		group.PUT("tenant-gpu-policies/:tenant_id", h.PutTenantGpuPolicy)

		group.GET("usage-records", h.ListUsageRecords)
	}
}
