/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modelops",
		Subsystem: "scheduler",
		Name:      "jobs_dispatched_total",
		Help:      "Jobs moved from QUEUED to DISPATCHED.",
	}, []string{"pool", "isolation"})

	jobsRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "modelops",
		Subsystem: "scheduler",
		Name:      "jobs_requeued_total",
		Help:      "Orphaned dispatches reverted to QUEUED.",
	})

	jobsTimedOut = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modelops",
		Subsystem: "scheduler",
		Name:      "jobs_timed_out_total",
		Help:      "Jobs failed by the reaper, by failure reason.",
	}, []string{"reason"})

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "modelops",
		Subsystem: "scheduler",
		Name:      "tick_duration_seconds",
		Help:      "Wall time of one scheduling tick.",
		Buckets:   prometheus.DefBuckets,
	})
)
