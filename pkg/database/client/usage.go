/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"

	"k8s.io/klog/v2"
)

// InsertUsageRecord appends one ledger row. The ledger is append-only;
// rows are never updated or deleted by the control plane.
func (c *Client) InsertUsageRecord(ctx context.Context, record *UsageRecord) error {
	db, err := c.getGorm()
	if err != nil {
		return err
	}
	if err = db.WithContext(ctx).Create(record).Error; err != nil {
		klog.ErrorS(err, "failed to insert usage record", "subject", record.SubjectId)
		return err
	}
	return nil
}

func (c *Client) ListUsageRecords(ctx context.Context, tenantId string, limit int) ([]*UsageRecord, error) {
	db, err := c.getGorm()
	if err != nil {
		return nil, err
	}
	var records []*UsageRecord
	err = db.WithContext(ctx).
		Where("tenant_id = ?", tenantId).
		Order("recorded_at desc").
		Limit(limit).
		Find(&records).Error
	return records, err
}
