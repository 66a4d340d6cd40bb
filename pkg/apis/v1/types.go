/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package v1

// JobStatus is the lifecycle phase of a GPU job.
type JobStatus string

const (
	JobQueued     JobStatus = "QUEUED"
	JobDispatched JobStatus = "DISPATCHED"
	JobRunning    JobStatus = "RUNNING"
	JobSucceeded  JobStatus = "SUCCEEDED"
	JobFailed     JobStatus = "FAILED"
)

// transitions holds the allowed forward edges of the job state machine.
// There are no back-edges; a terminal status has no outgoing edges.
var transitions = map[JobStatus][]JobStatus{
	JobQueued:     {JobDispatched},
	JobDispatched: {JobRunning, JobQueued, JobFailed},
	JobRunning:    {JobSucceeded, JobFailed},
}

// CanTransition reports whether moving from s to next is a legal edge.
// DISPATCHED may revert to QUEUED only through the orphan-requeue path.
func (s JobStatus) CanTransition(next JobStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s JobStatus) IsTerminal() bool {
	return s == JobSucceeded || s == JobFailed
}

func (s JobStatus) IsInFlight() bool {
	return s == JobDispatched || s == JobRunning
}

// GpuPool is a logical GPU capacity group.
type GpuPool string

const (
	PoolT4   GpuPool = "t4"
	PoolMig  GpuPool = "mig"
	PoolAuto GpuPool = "auto"
)

func IsValidPoolRequest(p GpuPool) bool {
	return p == PoolT4 || p == PoolMig || p == PoolAuto
}

// ResolvePool maps a requested pool to an assignable pool. The auto pool
// prefers MIG when MIG slots are configured, otherwise T4.
func ResolvePool(requested GpuPool, migSlots int) GpuPool {
	if requested != PoolAuto {
		return requested
	}
	if migSlots > 0 {
		return PoolMig
	}
	return PoolT4
}

// IsolationLevel controls whether a job shares a time-sliced T4 with others.
type IsolationLevel string

const (
	IsolationShared    IsolationLevel = "shared"
	IsolationExclusive IsolationLevel = "exclusive"

	// isolationAlias is accepted on submission and normalized to exclusive.
	isolationAlias = "isolated"
)

// NormalizeIsolation resolves the accepted aliases for an isolation level.
// The empty string defaults to shared.
func NormalizeIsolation(s string) (IsolationLevel, bool) {
	switch s {
	case "", string(IsolationShared):
		return IsolationShared, true
	case string(IsolationExclusive), isolationAlias:
		return IsolationExclusive, true
	}
	return "", false
}

// Well-known error strings written into the gpu_jobs row on internal failures.
const (
	ErrDispatchTimeout      = "dispatch_timeout"
	ErrExecutorTimeout      = "executor_timeout"
	ErrDispatchLaunchFailed = "dispatch_launch_failed"
)

// EndpointStatus is the lifecycle phase of a serving endpoint intent.
type EndpointStatus string

const (
	EndpointCreating EndpointStatus = "CREATING"
	EndpointReady    EndpointStatus = "READY"
	EndpointFailed   EndpointStatus = "FAILED"
	EndpointDeleting EndpointStatus = "DELETING"
)

// Execution modes of the dispatcher and executor.
const (
	ExecutionModeDirect    = "direct"
	ExecutionModeEphemeral = "ephemeral"

	ExecutorSimulate = "simulate"
	ExecutorHttp     = "http"

	DeployModeSimulate  = "simulate"
	DeployModeReconcile = "reconcile"
)
