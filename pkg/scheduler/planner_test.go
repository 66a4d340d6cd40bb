/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package scheduler

import (
	"fmt"
	"testing"

	"gotest.tools/assert"

	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
)

const (
	tenantA = "6f7a83c4-0000-4000-8000-000000000001"
	tenantB = "6f7a83c4-0000-4000-8000-000000000002"
)

func defaultCapacity() Capacity {
	return Capacity{T4SharedSlots: 8, T4ExclusiveSlots: 1, MigSlots: 0}
}

func candidate(jobId, tenantId, pool, isolation string) *dbclient.QueuedCandidate {
	return &dbclient.QueuedCandidate{
		JobId:            jobId,
		TenantId:         tenantId,
		ProjectId:        "7f7a83c4-0000-4000-8000-000000000001",
		GpuPoolRequested: pool,
		IsolationLevel:   isolation,
	}
}

func generousLimits(tenantIds ...string) map[string]TenantLimits {
	limits := make(map[string]TenantLimits)
	for _, tenantId := range tenantIds {
		limits[tenantId] = TenantLimits{T4MaxConcurrency: 100, MigMaxConcurrency: 100}
	}
	return limits
}

func jobIds(decisions []Decision) []string {
	ids := make([]string, 0, len(decisions))
	for _, d := range decisions {
		ids = append(ids, d.JobId)
	}
	return ids
}

func TestPlanFillsSharedSlots(t *testing.T) {
	var candidates []*dbclient.QueuedCandidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates, candidate(fmt.Sprintf("job-%02d", i), tenantA, "t4", "shared"))
	}
	decisions := Plan(defaultCapacity(), InFlight{}, nil, generousLimits(tenantA), candidates)
	assert.Equal(t, 8, len(decisions))
	assert.Equal(t, "job-00", decisions[0].JobId)
	assert.Equal(t, "job-07", decisions[7].JobId)
}

func TestPlanExclusiveBlockedBySharedInFlight(t *testing.T) {
	candidates := []*dbclient.QueuedCandidate{
		candidate("job-ex", tenantA, "t4", "exclusive"),
	}
	decisions := Plan(defaultCapacity(), InFlight{T4Shared: 1}, nil, generousLimits(tenantA), candidates)
	assert.Equal(t, 0, len(decisions))

	// Once shared work drains the exclusive job goes out.
	decisions = Plan(defaultCapacity(), InFlight{}, nil, generousLimits(tenantA), candidates)
	assert.Equal(t, 1, len(decisions))
	assert.Equal(t, v1.IsolationExclusive, decisions[0].Isolation)
}

func TestPlanSharedBlockedByExclusiveInFlight(t *testing.T) {
	candidates := []*dbclient.QueuedCandidate{
		candidate("job-sh", tenantA, "t4", "shared"),
	}
	decisions := Plan(defaultCapacity(), InFlight{T4Exclusive: 1}, nil, generousLimits(tenantA), candidates)
	assert.Equal(t, 0, len(decisions))
}

func TestPlanInterlockWithinOneTick(t *testing.T) {
	// An exclusive candidate planned first blocks shared candidates in the
	// same tick, and the other way round.
	candidates := []*dbclient.QueuedCandidate{
		candidate("job-ex", tenantA, "t4", "exclusive"),
		candidate("job-sh", tenantA, "t4", "shared"),
	}
	decisions := Plan(defaultCapacity(), InFlight{}, nil, generousLimits(tenantA), candidates)
	assert.DeepEqual(t, []string{"job-ex"}, jobIds(decisions))

	candidates = []*dbclient.QueuedCandidate{
		candidate("job-sh", tenantA, "t4", "shared"),
		candidate("job-ex", tenantA, "t4", "exclusive"),
	}
	decisions = Plan(defaultCapacity(), InFlight{}, nil, generousLimits(tenantA), candidates)
	assert.DeepEqual(t, []string{"job-sh"}, jobIds(decisions))
}

func TestPlanTenantCapSkipsNotBlocks(t *testing.T) {
	limits := map[string]TenantLimits{
		tenantA: {T4MaxConcurrency: 1, MigMaxConcurrency: 0},
		tenantB: {T4MaxConcurrency: 1, MigMaxConcurrency: 0},
	}
	candidates := []*dbclient.QueuedCandidate{
		candidate("job-a1", tenantA, "t4", "shared"),
		candidate("job-a2", tenantA, "t4", "shared"),
		candidate("job-b1", tenantB, "t4", "shared"),
	}
	decisions := Plan(defaultCapacity(), InFlight{}, nil, limits, candidates)
	assert.DeepEqual(t, []string{"job-a1", "job-b1"}, jobIds(decisions))
}

func TestPlanTenantCapCountsInFlight(t *testing.T) {
	limits := map[string]TenantLimits{
		tenantA: {T4MaxConcurrency: 2, MigMaxConcurrency: 0},
	}
	tenantInFlight := map[string]InFlight{
		tenantA: {T4Shared: 2},
	}
	candidates := []*dbclient.QueuedCandidate{
		candidate("job-a1", tenantA, "t4", "shared"),
	}
	decisions := Plan(defaultCapacity(), InFlight{T4Shared: 2}, tenantInFlight, limits, candidates)
	assert.Equal(t, 0, len(decisions))
}

func TestPlanAutoResolvesToT4WithoutMig(t *testing.T) {
	candidates := []*dbclient.QueuedCandidate{
		candidate("job-auto", tenantA, "auto", "shared"),
	}
	decisions := Plan(defaultCapacity(), InFlight{}, nil, generousLimits(tenantA), candidates)
	assert.Equal(t, 1, len(decisions))
	assert.Equal(t, v1.PoolT4, decisions[0].Pool)
}

func TestPlanAutoPrefersMigWhenConfigured(t *testing.T) {
	capacity := defaultCapacity()
	capacity.MigSlots = 2
	candidates := []*dbclient.QueuedCandidate{
		candidate("job-auto", tenantA, "auto", "shared"),
	}
	decisions := Plan(capacity, InFlight{}, nil, generousLimits(tenantA), candidates)
	assert.Equal(t, 1, len(decisions))
	assert.Equal(t, v1.PoolMig, decisions[0].Pool)
}

func TestPlanMigPoolDisabled(t *testing.T) {
	candidates := []*dbclient.QueuedCandidate{
		candidate("job-mig", tenantA, "mig", "shared"),
	}
	decisions := Plan(defaultCapacity(), InFlight{}, nil, generousLimits(tenantA), candidates)
	assert.Equal(t, 0, len(decisions))
}

func TestPlanUnknownTenantUsesDefaultLimits(t *testing.T) {
	candidates := []*dbclient.QueuedCandidate{
		candidate("job-a1", tenantA, "t4", "shared"),
		candidate("job-a2", tenantA, "t4", "shared"),
	}
	decisions := Plan(defaultCapacity(), InFlight{}, nil, nil, candidates)
	assert.Equal(t, dbclient.DefaultTenantGpuPolicy(tenantA).T4MaxConcurrency, len(decisions))
}
