/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
	"github.com/MrEliotA/modelops-studio-saas/pkg/apiserver/handlers/types"
	"github.com/MrEliotA/modelops-studio-saas/pkg/apiserver/utils"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	dbutils "github.com/MrEliotA/modelops-studio-saas/pkg/database/utils"
	"github.com/MrEliotA/modelops-studio-saas/pkg/errors"
	"github.com/MrEliotA/modelops-studio-saas/pkg/tenancy"
)

const maxEndpointNameLength = 63

func (h *Handler) CreateDeployment(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		identity, err := tenancy.FromContext(c)
		if err != nil {
			return nil, err
		}
		req := types.CreateDeploymentRequest{}
		if err = getBodyFromRequest(c, &req); err != nil {
			return nil, err
		}
		if req.Name == "" || len(req.Name) > maxEndpointNameLength {
			return nil, errors.NewBadRequest("name must be a non-empty string of at most 63 characters")
		}
		if req.Runtime == "" {
			return nil, errors.NewBadRequest("runtime is required")
		}

		now := time.Now()
		endpoint := &dbclient.Endpoint{
			EndpointId:     uuid.NewString(),
			TenantId:       identity.TenantId,
			ProjectId:      identity.ProjectId,
			Name:           req.Name,
			Runtime:        req.Runtime,
			ModelVersionId: dbutils.NullString(req.ModelVersionId),
			Traffic:        req.Traffic,
			Autoscaling:    req.Autoscaling,
			RuntimeConfig:  req.RuntimeConfig,
			Status:         string(v1.EndpointCreating),
			CreatedAt:      dbutils.NullTime(now),
			UpdatedAt:      dbutils.NullTime(now),
		}
		ctx := c.Request.Context()
		if err = h.dbClient.InsertEndpoint(ctx, endpoint); err != nil {
			return nil, err
		}

		h.publishEvent(v1.SubjectDeployRequested, &v1.EndpointEvent{
			TenantId:    identity.TenantId,
			ProjectId:   identity.ProjectId,
			EndpointId:  endpoint.EndpointId,
			PublishedAt: now.UTC(),
		})

		c.Status(http.StatusCreated)
		return cvtToEndpointResponse(endpoint), nil
	})
}

func (h *Handler) GetDeployment(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		endpoint, err := h.getOwnedEndpoint(c)
		if err != nil {
			return nil, err
		}
		return cvtToEndpointResponse(endpoint), nil
	})
}

func (h *Handler) ListDeployments(c *gin.Context) {
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
		endpoints, err := h.dbClient.ListEndpoints(c.Request.Context(),
			identity.TenantId, identity.ProjectId, limit, offset)
		if err != nil {
			return nil, err
		}
		resp := types.ListEndpointsResponse{Items: make([]types.EndpointResponse, 0, len(endpoints))}
		for _, endpoint := range endpoints {
			resp.Items = append(resp.Items, *cvtToEndpointResponse(endpoint))
		}
		return resp, nil
	})
}

func (h *Handler) PatchDeployment(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		identity, err := tenancy.FromContext(c)
		if err != nil {
			return nil, err
		}
		endpoint, err := h.getOwnedEndpoint(c)
		if err != nil {
			return nil, err
		}
		req := types.PatchDeploymentRequest{}
		if err = getBodyFromRequest(c, &req); err != nil {
			return nil, err
		}

		servingChanged := false
		if req.Runtime != nil {
			if *req.Runtime == "" {
				return nil, errors.NewBadRequest("runtime must not be empty")
			}
			endpoint.Runtime = *req.Runtime
			servingChanged = true
		}
		if req.ModelVersionId != nil {
			endpoint.ModelVersionId = dbutils.NullString(*req.ModelVersionId)
			servingChanged = true
		}
		if len(req.Traffic) > 0 {
			endpoint.Traffic = req.Traffic
			servingChanged = true
		}
		if len(req.Autoscaling) > 0 {
			endpoint.Autoscaling = req.Autoscaling
			servingChanged = true
		}
		if len(req.RuntimeConfig) > 0 {
			endpoint.RuntimeConfig = req.RuntimeConfig
			servingChanged = true
		}
		if !servingChanged {
			return cvtToEndpointResponse(endpoint), nil
		}

		endpoint.Status = string(v1.EndpointCreating)
		endpoint.Error = dbutils.NullString("")
		endpoint.UpdatedAt = dbutils.NullTime(time.Now())
		ctx := c.Request.Context()
		if err = h.dbClient.UpdateEndpointIntent(ctx, endpoint); err != nil {
			return nil, err
		}

		h.publishEvent(v1.SubjectDeployRequested, &v1.EndpointEvent{
			TenantId:    identity.TenantId,
			ProjectId:   identity.ProjectId,
			EndpointId:  endpoint.EndpointId,
			PublishedAt: time.Now().UTC(),
		})
		return cvtToEndpointResponse(endpoint), nil
	})
}

func (h *Handler) DeleteDeployment(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		identity, err := tenancy.FromContext(c)
		if err != nil {
			return nil, err
		}
		endpoint, err := h.getOwnedEndpoint(c)
		if err != nil {
			return nil, err
		}
		ctx := c.Request.Context()
		err = h.dbClient.SetEndpointStatus(ctx, endpoint.EndpointId,
			string(v1.EndpointDeleting), dbutils.ParseNullString(endpoint.Url), "")
		if err != nil {
			return nil, err
		}

		h.publishEvent(v1.SubjectDeleteRequested, &v1.EndpointEvent{
			TenantId:    identity.TenantId,
			ProjectId:   identity.ProjectId,
			EndpointId:  endpoint.EndpointId,
			PublishedAt: time.Now().UTC(),
		})

		endpoint.Status = string(v1.EndpointDeleting)
		c.Status(http.StatusAccepted)
		return cvtToEndpointResponse(endpoint), nil
	})
}

func (h *Handler) getOwnedEndpoint(c *gin.Context) (*dbclient.Endpoint, error) {
	identity, err := tenancy.FromContext(c)
	if err != nil {
		return nil, err
	}
	endpointId := c.Param("id")
	endpoint, err := h.dbClient.GetEndpoint(c.Request.Context(), endpointId)
	if err != nil {
		return nil, err
	}
	if endpoint.TenantId != identity.TenantId || endpoint.ProjectId != identity.ProjectId {
		return nil, errors.NewNotFound("Endpoint", endpointId)
	}
	if endpoint.IsDeleted {
		return nil, errors.NewNotFound("Endpoint", endpointId)
	}
	return endpoint, nil
}

func cvtToEndpointResponse(endpoint *dbclient.Endpoint) *types.EndpointResponse {
	return &types.EndpointResponse{
		EndpointId:     endpoint.EndpointId,
		TenantId:       endpoint.TenantId,
		ProjectId:      endpoint.ProjectId,
		Name:           endpoint.Name,
		Runtime:        endpoint.Runtime,
		ModelVersionId: dbutils.ParseNullString(endpoint.ModelVersionId),
		Traffic:        endpoint.Traffic,
		Autoscaling:    endpoint.Autoscaling,
		RuntimeConfig:  endpoint.RuntimeConfig,
		Status:         endpoint.Status,
		Url:            dbutils.ParseNullString(endpoint.Url),
		Error:          dbutils.ParseNullString(endpoint.Error),
		CreatedAt:      dbutils.ParseNullTimeToString(endpoint.CreatedAt),
		UpdatedAt:      dbutils.ParseNullTimeToString(endpoint.UpdatedAt),
	}
}
