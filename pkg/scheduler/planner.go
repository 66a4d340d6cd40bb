/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package scheduler

import (
	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
)

// Capacity is the configured slot count per pool.
type Capacity struct {
	T4SharedSlots    int
	T4ExclusiveSlots int
	MigSlots         int
}

// InFlight counts DISPATCHED plus RUNNING jobs per pool segment.
type InFlight struct {
	T4Shared    int
	T4Exclusive int
	Mig         int
}

func (f InFlight) t4() int {
	return f.T4Shared + f.T4Exclusive
}

// TenantLimits is the per-tenant concurrency slice of the gpu policy.
type TenantLimits struct {
	T4MaxConcurrency  int
	MigMaxConcurrency int
}

// Decision is one job the planner wants dispatched in this tick.
type Decision struct {
	JobId     string
	TenantId  string
	ProjectId string
	Pool      v1.GpuPool
	Isolation v1.IsolationLevel
}

// Plan walks the globally ordered candidates and picks the ones that fit the
// remaining capacity. A candidate that does not fit is skipped, not blocking;
// later candidates may still be picked.
//
// The T4 pool runs a soft exclusivity interlock: an exclusive job holds the
// whole pool, so exclusive dispatches wait for shared work to drain and shared
// dispatches wait for exclusive work to drain. Dispatches planned earlier in
// the same tick count as in flight.
func Plan(capacity Capacity, inflight InFlight, tenantInFlight map[string]InFlight,
	limits map[string]TenantLimits, candidates []*dbclient.QueuedCandidate) []Decision {
	decisions := make([]Decision, 0, len(candidates))
	used := inflight
	tenantUsed := make(map[string]InFlight, len(tenantInFlight))
	for tenantId, counts := range tenantInFlight {
		tenantUsed[tenantId] = counts
	}

	for _, candidate := range candidates {
		pool := v1.ResolvePool(v1.GpuPool(candidate.GpuPoolRequested), capacity.MigSlots)
		isolation, ok := v1.NormalizeIsolation(candidate.IsolationLevel)
		if !ok {
			continue
		}

		tenantLimits, found := limits[candidate.TenantId]
		if !found {
			def := dbclient.DefaultTenantGpuPolicy(candidate.TenantId)
			tenantLimits = TenantLimits{
				T4MaxConcurrency:  def.T4MaxConcurrency,
				MigMaxConcurrency: def.MigMaxConcurrency,
			}
		}
		tenant := tenantUsed[candidate.TenantId]

		switch pool {
		case v1.PoolMig:
			if used.Mig >= capacity.MigSlots {
				continue
			}
			if tenant.Mig >= tenantLimits.MigMaxConcurrency {
				continue
			}
			used.Mig++
			tenant.Mig++
		case v1.PoolT4:
			if tenant.t4() >= tenantLimits.T4MaxConcurrency {
				continue
			}
			if isolation == v1.IsolationExclusive {
				if used.T4Shared > 0 || used.T4Exclusive >= capacity.T4ExclusiveSlots {
					continue
				}
				used.T4Exclusive++
				tenant.T4Exclusive++
			} else {
				if used.T4Exclusive > 0 || used.T4Shared >= capacity.T4SharedSlots {
					continue
				}
				used.T4Shared++
				tenant.T4Shared++
			}
		default:
			continue
		}

		tenantUsed[candidate.TenantId] = tenant
		decisions = append(decisions, Decision{
			JobId:     candidate.JobId,
			TenantId:  candidate.TenantId,
			ProjectId: candidate.ProjectId,
			Pool:      pool,
			Isolation: isolation,
		})
	}
	return decisions
}
