/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/MrEliotA/modelops-studio-saas/pkg/apiserver/utils"
	dbutils "github.com/MrEliotA/modelops-studio-saas/pkg/database/utils"
	"github.com/MrEliotA/modelops-studio-saas/pkg/tenancy"
)

type usageRecordResponse struct {
	TenantId    string            `json:"tenant_id"`
	ProjectId   string            `json:"project_id"`
	SubjectType string            `json:"subject_type"`
	SubjectId   string            `json:"subject_id"`
	Meter       string            `json:"meter"`
	Quantity    float64           `json:"quantity"`
	Labels      map[string]string `json:"labels,omitempty"`
	RecordedAt  string            `json:"recorded_at,omitempty"`
}

func (h *Handler) ListUsageRecords(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		identity, err := tenancy.FromContext(c)
		if err != nil {
			return nil, err
		}
		limit := utils.GetIntQuery(c, "limit", 100)
		if limit <= 0 || limit > maxListLimit {
			limit = maxListLimit
		}
		records, err := h.dbClient.ListUsageRecords(c.Request.Context(), identity.TenantId, limit)
		if err != nil {
			return nil, err
		}
		items := make([]usageRecordResponse, 0, len(records))
		for _, record := range records {
			item := usageRecordResponse{
				TenantId:    record.TenantId,
				ProjectId:   record.ProjectId,
				SubjectType: record.SubjectType,
				SubjectId:   record.SubjectId,
				Meter:       record.Meter,
				Quantity:    record.Quantity,
				RecordedAt:  dbutils.ParseNullTimeToString(record.RecordedAt),
			}
			if len(record.Labels) > 0 {
				_ = json.Unmarshal(record.Labels, &item.Labels)
			}
			items = append(items, item)
		}
		return gin.H{"items": items}, nil
	})
}
