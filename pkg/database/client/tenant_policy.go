/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"k8s.io/klog/v2"
)

// GetTenantGpuPolicy returns the tenant's policy row, or the implicit
// free-plan default when no row exists.
func (c *Client) GetTenantGpuPolicy(ctx context.Context, tenantId string) (*TenantGpuPolicy, error) {
	db, err := c.getGorm()
	if err != nil {
		return nil, err
	}
	var policy TenantGpuPolicy
	err = db.WithContext(ctx).Where("tenant_id = ?", tenantId).Take(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultTenantGpuPolicy(tenantId), nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

// EnsureTenantGpuPolicy inserts the default policy row for a tenant if it
// does not exist yet. Concurrent callers are serialized by the primary key.
func (c *Client) EnsureTenantGpuPolicy(ctx context.Context, tenantId string) error {
	db, err := c.getGorm()
	if err != nil {
		return err
	}
	policy := DefaultTenantGpuPolicy(tenantId)
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		DoNothing: true,
	}).Create(policy).Error
	if err != nil {
		klog.ErrorS(err, "failed to ensure tenant policy", "tenant", tenantId)
	}
	return err
}

func (c *Client) UpsertTenantGpuPolicy(ctx context.Context, policy *TenantGpuPolicy) error {
	db, err := c.getGorm()
	if err != nil {
		return err
	}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan", "t4_max_concurrency", "mig_max_concurrency",
			"max_queued_jobs", "priority_boost", "updated_at",
		}),
	}).Create(policy).Error
	if err != nil {
		klog.ErrorS(err, "failed to upsert tenant policy", "tenant", policy.TenantId)
	}
	return err
}

func (c *Client) ListTenantGpuPolicies(ctx context.Context) ([]*TenantGpuPolicy, error) {
	db, err := c.getGorm()
	if err != nil {
		return nil, err
	}
	var policies []*TenantGpuPolicy
	err = db.WithContext(ctx).Order("tenant_id asc").Find(&policies).Error
	return policies, err
}
