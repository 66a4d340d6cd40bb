/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package deployworker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
	"k8s.io/klog/v2"

	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
	"github.com/MrEliotA/modelops-studio-saas/pkg/bus"
	"github.com/MrEliotA/modelops-studio-saas/pkg/config"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	"github.com/MrEliotA/modelops-studio-saas/pkg/errors"
)

const (
	durableName = "modelops-deploy-worker"

	errDeployTimeout = "deploy_timeout"
)

// Store is the slice of the db client the deploy worker needs.
type Store interface {
	GetEndpoint(ctx context.Context, endpointId string) (*dbclient.Endpoint, error)
	SetEndpointStatus(ctx context.Context, endpointId, status, url, errMsg string) error
	SoftDeleteEndpoint(ctx context.Context, endpointId string) error
	GetModelVersion(ctx context.Context, modelVersionId string) (*dbclient.ModelVersion, error)
}

type Worker struct {
	store   Store
	bus     *bus.Client
	dynamic dynamic.Interface

	mode            string
	namespace       string
	timeout         time.Duration
	poll            time.Duration
	maxRedeliveries int
}

func New(store Store, busClient *bus.Client, dynamicClient dynamic.Interface) *Worker {
	return &Worker{
		store:           store,
		bus:             busClient,
		dynamic:         dynamicClient,
		mode:            config.GetDeployMode(),
		namespace:       config.GetServingNamespace(),
		timeout:         time.Duration(config.GetDeployTimeoutSecond()) * time.Second,
		poll:            time.Duration(config.GetDeployPollSecond()) * time.Second,
		maxRedeliveries: config.GetMaxRedeliveries(),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	subjects := []string{v1.SubjectDeployRequested, v1.SubjectDeleteRequested}
	if err := w.bus.EnsureConsumer(v1.StreamServing, durableName, subjects, w.maxRedeliveries); err != nil {
		return err
	}
	klog.Infof("deploy worker started, mode=%s namespace=%s", w.mode, w.namespace)
	return w.bus.PullLoop(ctx, v1.StreamServing, durableName, w.handle)
}

func (w *Worker) handle(ctx context.Context, msg *nats.Msg) error {
	event := &v1.EndpointEvent{}
	if err := json.Unmarshal(msg.Data, event); err != nil {
		klog.ErrorS(err, "failed to decode endpoint event", "subject", msg.Subject)
		return nil
	}
	switch msg.Subject {
	case v1.SubjectDeployRequested:
		return w.reconcile(ctx, event)
	case v1.SubjectDeleteRequested:
		return w.delete(ctx, event)
	default:
		klog.Infof("ignoring event on unexpected subject %s", msg.Subject)
		return nil
	}
}

func (w *Worker) reconcile(ctx context.Context, event *v1.EndpointEvent) error {
	endpoint, err := w.store.GetEndpoint(ctx, event.EndpointId)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return err
	}
	// Only CREATING endpoints are reconciled; a later PATCH or DELETE already
	// superseded this event otherwise.
	if endpoint.IsDeleted || endpoint.Status != string(v1.EndpointCreating) {
		klog.Infof("endpoint %s is %s, dropping deploy event", endpoint.EndpointId, endpoint.Status)
		return nil
	}

	if w.mode == v1.DeployModeSimulate {
		url := fmt.Sprintf("http://%s.%s.example.local", endpoint.Name, w.namespace)
		return w.store.SetEndpointStatus(ctx, endpoint.EndpointId, string(v1.EndpointReady), url, "")
	}

	var modelVersion *dbclient.ModelVersion
	if id, pinned := modelVersionFor(endpoint); pinned {
		modelVersion, err = w.store.GetModelVersion(ctx, id)
		if err != nil {
			if errors.IsNotFound(err) {
				return w.fail(ctx, endpoint, fmt.Sprintf("model version %s not found", id))
			}
			return err
		}
	}

	spec, err := ParseServingSpec(endpoint, modelVersion)
	if err == nil {
		err = ValidateServingSpec(spec)
	}
	if err != nil {
		return w.fail(ctx, endpoint, err.Error())
	}

	isvc := BuildInferenceService(endpoint, modelVersion, spec, w.namespace)
	if err = w.upsert(ctx, isvc); err != nil {
		return err
	}
	return w.waitReady(ctx, endpoint)
}

func (w *Worker) upsert(ctx context.Context, isvc *unstructured.Unstructured) error {
	client := w.dynamic.Resource(inferenceServiceGVR).Namespace(w.namespace)
	existing, err := client.Get(ctx, isvc.GetName(), metav1.GetOptions{})
	if err != nil {
		if !k8serrors.IsNotFound(err) {
			return err
		}
		_, err = client.Create(ctx, isvc, metav1.CreateOptions{})
		return err
	}
	existing.Object["spec"] = isvc.Object["spec"]
	existing.SetLabels(isvc.GetLabels())
	existing.SetAnnotations(isvc.GetAnnotations())
	_, err = client.Update(ctx, existing, metav1.UpdateOptions{})
	return err
}

// waitReady polls the InferenceService until Ready or the deploy deadline.
func (w *Worker) waitReady(ctx context.Context, endpoint *dbclient.Endpoint) error {
	client := w.dynamic.Resource(inferenceServiceGVR).Namespace(w.namespace)
	deadline := time.Now().Add(w.timeout)
	for {
		isvc, err := client.Get(ctx, endpoint.Name, metav1.GetOptions{})
		if err == nil {
			if url := readyURL(isvc); url != "" {
				return w.store.SetEndpointStatus(ctx, endpoint.EndpointId, string(v1.EndpointReady), url, "")
			}
		} else if !k8serrors.IsNotFound(err) {
			klog.ErrorS(err, "failed to read inference service", "endpoint", endpoint.EndpointId)
		}
		if time.Now().After(deadline) {
			return w.fail(ctx, endpoint, errDeployTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.poll):
		}
	}
}

func (w *Worker) delete(ctx context.Context, event *v1.EndpointEvent) error {
	endpoint, err := w.store.GetEndpoint(ctx, event.EndpointId)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if endpoint.IsDeleted {
		return nil
	}
	if w.mode == v1.DeployModeReconcile {
		client := w.dynamic.Resource(inferenceServiceGVR).Namespace(w.namespace)
		if err = client.Delete(ctx, endpoint.Name, metav1.DeleteOptions{}); err != nil && !k8serrors.IsNotFound(err) {
			return err
		}
	}
	if err = w.store.SoftDeleteEndpoint(ctx, endpoint.EndpointId); err != nil {
		return err
	}
	klog.Infof("endpoint %s deleted", endpoint.EndpointId)
	return nil
}

func (w *Worker) fail(ctx context.Context, endpoint *dbclient.Endpoint, reason string) error {
	klog.Infof("endpoint %s failed: %s", endpoint.EndpointId, reason)
	return w.store.SetEndpointStatus(ctx, endpoint.EndpointId, string(v1.EndpointFailed), "", reason)
}
