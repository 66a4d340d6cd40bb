/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"testing"

	"gotest.tools/assert"
	corev1 "k8s.io/api/core/v1"

	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
)

func TestBuildJobForT4(t *testing.T) {
	l := &KubeLauncher{namespace: "modelops", image: "modelops/executor:latest", ttl: 600}
	event := &v1.JobDispatchedEvent{
		TenantId:      "tenant-1",
		JobId:         "0b1f9c2a-59cc-4c5c-9a3e-2f62c1b1d001",
		DispatchToken: "4d1a2b3c-0000-4000-8000-000000000001",
		Pool:          string(v1.PoolT4),
		Isolation:     string(v1.IsolationShared),
	}

	job := l.buildJob(event)
	assert.Equal(t, "gpu-job-0b1f9c2a-4d1a2b3c", job.Name)
	assert.Equal(t, "modelops", job.Namespace)
	assert.Equal(t, int32(0), *job.Spec.BackoffLimit)
	assert.Equal(t, int32(600), *job.Spec.TTLSecondsAfterFinished)

	pod := job.Spec.Template.Spec
	assert.Equal(t, corev1.RestartPolicyNever, pod.RestartPolicy)
	assert.Equal(t, 1, len(pod.Containers))

	container := pod.Containers[0]
	assert.DeepEqual(t, []corev1.EnvVar{
		{Name: "JOB_ID", Value: event.JobId},
		{Name: "DISPATCH_TOKEN", Value: event.DispatchToken},
	}, container.Env)
	quantity, ok := container.Resources.Limits[corev1.ResourceName("nvidia.com/gpu")]
	assert.Assert(t, ok)
	assert.Equal(t, "1", quantity.String())
}

func TestBuildJobForMigUsesMigResource(t *testing.T) {
	l := &KubeLauncher{namespace: "modelops", image: "modelops/executor:latest", ttl: 600}
	event := &v1.JobDispatchedEvent{
		JobId:         "0b1f9c2a-59cc-4c5c-9a3e-2f62c1b1d001",
		DispatchToken: "4d1a2b3c-0000-4000-8000-000000000001",
		Pool:          string(v1.PoolMig),
	}

	job := l.buildJob(event)
	container := job.Spec.Template.Spec.Containers[0]
	_, ok := container.Resources.Limits[corev1.ResourceName("nvidia.com/mig-1g.5gb")]
	assert.Assert(t, ok)
}

func TestBuildJobNamePerAttempt(t *testing.T) {
	l := &KubeLauncher{namespace: "modelops"}
	first := l.buildJob(&v1.JobDispatchedEvent{JobId: "aaaabbbb-1", DispatchToken: "11112222-1"})
	second := l.buildJob(&v1.JobDispatchedEvent{JobId: "aaaabbbb-1", DispatchToken: "33334444-1"})
	assert.Assert(t, first.Name != second.Name)
}
