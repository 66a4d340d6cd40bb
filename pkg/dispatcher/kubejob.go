/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
	"github.com/MrEliotA/modelops-studio-saas/pkg/config"
)

// KubeLauncher runs each dispatch attempt as a one-shot batch Job. The pod
// claims the GPU resource matching the assigned pool and runs the executor
// image against a single job id and token.
type KubeLauncher struct {
	client    kubernetes.Interface
	namespace string
	image     string
	ttl       int32
}

func NewKubeLauncher(client kubernetes.Interface) *KubeLauncher {
	return &KubeLauncher{
		client:    client,
		namespace: config.GetJobNamespace(),
		image:     config.GetExecutorImage(),
		ttl:       int32(config.GetJobTTLSecond()),
	}
}

func (l *KubeLauncher) Launch(ctx context.Context, event *v1.JobDispatchedEvent) error {
	job := l.buildJob(event)
	_, err := l.client.BatchV1().Jobs(l.namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		if k8serrors.IsAlreadyExists(err) {
			klog.Infof("job %s already launched for this attempt", job.Name)
			return nil
		}
		return fmt.Errorf("failed to launch job %s, err: %v", job.Name, err)
	}
	klog.Infof("launched k8s job %s for gpu job %s", job.Name, event.JobId)
	return nil
}

func (l *KubeLauncher) buildJob(event *v1.JobDispatchedEvent) *batchv1.Job {
	gpuResource := config.GetGpuResourceName()
	if event.Pool == string(v1.PoolMig) {
		gpuResource = config.GetMigResourceName()
	}
	// One name per attempt: a redispatched job gets a fresh token and so a
	// fresh k8s job, while retried deliveries of one attempt collapse.
	name := fmt.Sprintf("gpu-job-%s-%s", shortId(event.JobId), shortId(event.DispatchToken))

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: l.namespace,
			Labels: map[string]string{
				"app.kubernetes.io/managed-by": "modelops-dispatcher",
				"modelops.ai/job-id":           event.JobId,
				"modelops.ai/tenant-id":        event.TenantId,
				"modelops.ai/gpu-pool":         event.Pool,
			},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit:            ptr.To(int32(0)),
			TTLSecondsAfterFinished: ptr.To(l.ttl),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{
						"modelops.ai/job-id": event.JobId,
					},
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers: []corev1.Container{
						{
							Name:  "executor",
							Image: l.image,
							Env: []corev1.EnvVar{
								{Name: "JOB_ID", Value: event.JobId},
								{Name: "DISPATCH_TOKEN", Value: event.DispatchToken},
							},
							Resources: corev1.ResourceRequirements{
								Limits: corev1.ResourceList{
									corev1.ResourceName(gpuResource): resource.MustParse("1"),
								},
							},
						},
					},
				},
			},
		},
	}
}

func shortId(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
