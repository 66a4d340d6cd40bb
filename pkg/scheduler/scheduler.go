/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
	"github.com/MrEliotA/modelops-studio-saas/pkg/bus"
	"github.com/MrEliotA/modelops-studio-saas/pkg/config"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
)

// schedulerLockKey is the advisory lock key shared by scheduler replicas.
const schedulerLockKey = 0x6d6f5f736368 // "mo_sch"

// Store is the slice of the db client the scheduler needs.
type Store interface {
	TryAdvisoryLock(ctx context.Context, key int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, key int64) error
	ListOrphanedDispatches(ctx context.Context, before time.Time) ([]*dbclient.GpuJob, error)
	ListStaleRunning(ctx context.Context, before time.Time) ([]*dbclient.GpuJob, error)
	RevertDispatch(ctx context.Context, jobId, token string) (bool, error)
	FailDispatched(ctx context.Context, jobId, token, errMsg string) (bool, error)
	MarkFailed(ctx context.Context, jobId, token, errMsg string) (bool, error)
	MarkDispatched(ctx context.Context, jobId, pool, token string) (bool, error)
	CountInFlight(ctx context.Context, pool, isolation string) (int, error)
	CountTenantInFlight(ctx context.Context, tenantId, pool string) (int, error)
	ListQueuedCandidates(ctx context.Context, limit int) ([]*dbclient.QueuedCandidate, error)
	ListTenantGpuPolicies(ctx context.Context) ([]*dbclient.TenantGpuPolicy, error)
}

type Scheduler struct {
	store Store
	bus   bus.Publisher

	tick             time.Duration
	dispatchTimeout  time.Duration
	executionTimeout time.Duration
	maxAttempts      int
	batchSize        int
	capacity         Capacity
}

func New(store Store, publisher bus.Publisher) *Scheduler {
	return &Scheduler{
		store:            store,
		bus:              publisher,
		tick:             time.Duration(config.GetSchedulerTickSecond()) * time.Second,
		dispatchTimeout:  time.Duration(config.GetDispatchTimeoutSecond()) * time.Second,
		executionTimeout: time.Duration(config.GetExecutionTimeoutSecond()) * time.Second,
		maxAttempts:      config.GetMaxDispatchAttempts(),
		batchSize:        config.GetCandidateBatchSize(),
		capacity: Capacity{
			T4SharedSlots:    config.GetT4SharedSlots(),
			T4ExclusiveSlots: config.GetT4ExclusiveSlots(),
			MigSlots:         config.GetMigTotalSlots(),
		},
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	klog.Infof("scheduler started, tick=%s capacity=%+v", s.tick, s.capacity)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			klog.Infof("scheduler stopped")
			return
		case <-ticker.C:
			start := time.Now()
			s.runTick(ctx)
			tickDuration.Observe(time.Since(start).Seconds())
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context) {
	// Conditional updates keep concurrent replicas correct; the advisory lock
	// only stops a standby replica from scanning the same rows every tick.
	locked, err := s.store.TryAdvisoryLock(ctx, schedulerLockKey)
	if err != nil {
		klog.ErrorS(err, "failed to acquire scheduler lock")
		return
	}
	if !locked {
		klog.V(4).Infof("another scheduler replica holds the lock, skipping tick")
		return
	}
	defer func() {
		if err := s.store.ReleaseAdvisoryLock(ctx, schedulerLockKey); err != nil {
			klog.ErrorS(err, "failed to release scheduler lock")
		}
	}()

	s.requeueOrphans(ctx)
	s.failStaleRunning(ctx)
	s.dispatchQueued(ctx)
}

// requeueOrphans reverts DISPATCHED jobs whose executor never claimed them.
// A job out of dispatch attempts fails instead of going back to the queue.
func (s *Scheduler) requeueOrphans(ctx context.Context) {
	cutoff := time.Now().Add(-s.dispatchTimeout)
	orphans, err := s.store.ListOrphanedDispatches(ctx, cutoff)
	if err != nil {
		klog.ErrorS(err, "failed to list orphaned dispatches")
		return
	}
	for _, job := range orphans {
		token := job.DispatchToken.String
		if job.DispatchAttempts >= s.maxAttempts {
			ok, err := s.store.FailDispatched(ctx, job.JobId, token, v1.ErrDispatchTimeout)
			if err != nil {
				klog.ErrorS(err, "failed to fail orphaned job", "job", job.JobId)
				continue
			}
			if ok {
				jobsTimedOut.WithLabelValues(v1.ErrDispatchTimeout).Inc()
				klog.Infof("job %s failed after %d dispatch attempts", job.JobId, job.DispatchAttempts)
				s.publishFinished(job, v1.ErrDispatchTimeout)
			}
			continue
		}
		ok, err := s.store.RevertDispatch(ctx, job.JobId, token)
		if err != nil {
			klog.ErrorS(err, "failed to requeue orphaned job", "job", job.JobId)
			continue
		}
		if ok {
			jobsRequeued.Inc()
			klog.Infof("job %s requeued, dispatch attempt %d timed out", job.JobId, job.DispatchAttempts)
		}
	}
}

// failStaleRunning fails RUNNING jobs past the execution deadline. A stale
// run is never redispatched; the GPU may still be busy with it.
func (s *Scheduler) failStaleRunning(ctx context.Context) {
	cutoff := time.Now().Add(-s.executionTimeout)
	stale, err := s.store.ListStaleRunning(ctx, cutoff)
	if err != nil {
		klog.ErrorS(err, "failed to list stale running jobs")
		return
	}
	for _, job := range stale {
		ok, err := s.store.MarkFailed(ctx, job.JobId, job.DispatchToken.String, v1.ErrExecutorTimeout)
		if err != nil {
			klog.ErrorS(err, "failed to fail stale job", "job", job.JobId)
			continue
		}
		if ok {
			jobsTimedOut.WithLabelValues(v1.ErrExecutorTimeout).Inc()
			klog.Infof("job %s failed, running past %s", job.JobId, s.executionTimeout)
			s.publishFinished(job, v1.ErrExecutorTimeout)
		}
	}
}

func (s *Scheduler) dispatchQueued(ctx context.Context) {
	candidates, err := s.store.ListQueuedCandidates(ctx, s.batchSize)
	if err != nil {
		klog.ErrorS(err, "failed to list queued candidates")
		return
	}
	if len(candidates) == 0 {
		return
	}

	inflight, err := s.snapshotInFlight(ctx)
	if err != nil {
		klog.ErrorS(err, "failed to snapshot in-flight counts")
		return
	}
	tenantInFlight, err := s.snapshotTenantInFlight(ctx, candidates)
	if err != nil {
		klog.ErrorS(err, "failed to snapshot tenant in-flight counts")
		return
	}
	limits, err := s.loadTenantLimits(ctx)
	if err != nil {
		klog.ErrorS(err, "failed to load tenant gpu policies")
		return
	}

	for _, decision := range Plan(s.capacity, inflight, tenantInFlight, limits, candidates) {
		token := uuid.NewString()
		ok, err := s.store.MarkDispatched(ctx, decision.JobId, string(decision.Pool), token)
		if err != nil {
			klog.ErrorS(err, "failed to mark job dispatched", "job", decision.JobId)
			continue
		}
		if !ok {
			// Lost the race to a competing scheduler; the row moved on.
			continue
		}
		jobsDispatched.WithLabelValues(string(decision.Pool), string(decision.Isolation)).Inc()
		event := &v1.JobDispatchedEvent{
			TenantId:      decision.TenantId,
			ProjectId:     decision.ProjectId,
			JobId:         decision.JobId,
			DispatchToken: token,
			Pool:          string(decision.Pool),
			Isolation:     string(decision.Isolation),
			PublishedAt:   time.Now().UTC(),
		}
		subject := v1.DispatchSubject(decision.Pool, decision.Isolation)
		if err = s.bus.Publish(subject, event); err != nil {
			// Orphan requeue picks the job back up after the dispatch timeout.
			klog.ErrorS(err, "failed to publish dispatch event", "job", decision.JobId, "subject", subject)
		}
	}
}

func (s *Scheduler) snapshotInFlight(ctx context.Context) (InFlight, error) {
	var inflight InFlight
	var err error
	if inflight.T4Shared, err = s.store.CountInFlight(ctx, string(v1.PoolT4), string(v1.IsolationShared)); err != nil {
		return inflight, err
	}
	if inflight.T4Exclusive, err = s.store.CountInFlight(ctx, string(v1.PoolT4), string(v1.IsolationExclusive)); err != nil {
		return inflight, err
	}
	inflight.Mig, err = s.store.CountInFlight(ctx, string(v1.PoolMig), "")
	return inflight, err
}

func (s *Scheduler) snapshotTenantInFlight(ctx context.Context, candidates []*dbclient.QueuedCandidate) (map[string]InFlight, error) {
	counts := make(map[string]InFlight)
	for _, candidate := range candidates {
		if _, seen := counts[candidate.TenantId]; seen {
			continue
		}
		t4, err := s.store.CountTenantInFlight(ctx, candidate.TenantId, string(v1.PoolT4))
		if err != nil {
			return nil, err
		}
		mig, err := s.store.CountTenantInFlight(ctx, candidate.TenantId, string(v1.PoolMig))
		if err != nil {
			return nil, err
		}
		counts[candidate.TenantId] = InFlight{T4Shared: t4, Mig: mig}
	}
	return counts, nil
}

func (s *Scheduler) loadTenantLimits(ctx context.Context) (map[string]TenantLimits, error) {
	policies, err := s.store.ListTenantGpuPolicies(ctx)
	if err != nil {
		return nil, err
	}
	limits := make(map[string]TenantLimits, len(policies))
	for _, policy := range policies {
		limits[policy.TenantId] = TenantLimits{
			T4MaxConcurrency:  policy.T4MaxConcurrency,
			MigMaxConcurrency: policy.MigMaxConcurrency,
		}
	}
	return limits, nil
}

func (s *Scheduler) publishFinished(job *dbclient.GpuJob, errMsg string) {
	event := &v1.JobFinishedEvent{
		TenantId:    job.TenantId,
		ProjectId:   job.ProjectId,
		JobId:       job.JobId,
		Status:      string(v1.JobFailed),
		Error:       errMsg,
		PublishedAt: time.Now().UTC(),
	}
	if err := s.bus.Publish(v1.SubjectJobFinished, event); err != nil {
		klog.ErrorS(err, "failed to publish finished event", "job", job.JobId)
	}
}
