/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package idempotency

import (
	"context"
	"time"

	"k8s.io/klog/v2"
)

// ExpiryStore deletes expired idempotency rows.
type ExpiryStore interface {
	DeleteExpiredIdempotencyKeys(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically removes idempotency records past their TTL.
type Sweeper struct {
	store    ExpiryStore
	interval time.Duration
}

func NewSweeper(store ExpiryStore, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, interval: interval}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.DeleteExpiredIdempotencyKeys(ctx, time.Now())
			if err != nil {
				klog.ErrorS(err, "failed to sweep idempotency keys")
				continue
			}
			if removed > 0 {
				klog.Infof("swept %d expired idempotency keys", removed)
			}
		}
	}
}
