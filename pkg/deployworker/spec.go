/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package deployworker

import (
	"encoding/json"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/MrEliotA/modelops-studio-saas/pkg/config"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	dbutils "github.com/MrEliotA/modelops-studio-saas/pkg/database/utils"
)

const (
	deploymentModeServerless = "serverless"
	deploymentModeRaw        = "raw"

	autoscalerClassHpa  = "hpa"
	autoscalerClassKeda = "keda"

	modelFormatTriton = "triton"
	protocolVersionV2 = "v2"
)

var inferenceServiceGVR = schema.GroupVersionResource{
	Group:    "serving.kserve.io",
	Version:  "v1beta1",
	Resource: "inferenceservices",
}

// ServingSpec is the flattened serving intent of an endpoint, combining the
// traffic and runtime_config documents with the resolved model format.
type ServingSpec struct {
	CanaryTrafficPercent int          `json:"canaryTrafficPercent"`
	DeploymentMode       string       `json:"deploymentMode"`
	ProtocolVersion      string       `json:"protocolVersion"`
	TimeoutSeconds       int          `json:"timeoutSeconds"`
	MinReplicas          int          `json:"minReplicas"`
	MaxReplicas          int          `json:"maxReplicas"`
	AutoscalerClass      string       `json:"autoscalerClass"`
	Batcher              *BatcherSpec `json:"batcher"`
	GpuCount             int          `json:"gpuCount"`
	GpuResource          string       `json:"gpuResource"`
	ModelFormat          string       `json:"-"`
}

// BatcherSpec enables KServe request batching on the predictor.
type BatcherSpec struct {
	MaxBatchSize int `json:"maxBatchSize"`
	MaxLatencyMs int `json:"maxLatencyMs"`
}

type trafficDoc struct {
	CanaryTrafficPercent *int `json:"canaryTrafficPercent"`
}

type resourcesDoc struct {
	GpuCount    int    `json:"gpuCount"`
	GpuResource string `json:"gpuResource"`
}

type runtimeConfigDoc struct {
	DeploymentMode  string        `json:"deploymentMode"`
	ProtocolVersion string        `json:"protocolVersion"`
	TimeoutSeconds  int           `json:"timeoutSeconds"`
	Batcher         *BatcherSpec  `json:"batcher"`
	Resources       *resourcesDoc `json:"resources"`
}

type autoscalingDoc struct {
	MinReplicas     int    `json:"minReplicas"`
	MaxReplicas     int    `json:"maxReplicas"`
	AutoscalerClass string `json:"autoscalerClass"`
}

// ParseServingSpec decodes the endpoint's serving documents. The model format
// comes from the model version, not from the endpoint.
func ParseServingSpec(endpoint *dbclient.Endpoint, modelVersion *dbclient.ModelVersion) (*ServingSpec, error) {
	spec := &ServingSpec{DeploymentMode: deploymentModeServerless}
	modeExplicit := false
	if modelVersion != nil {
		spec.ModelFormat = modelVersion.ModelFormat
	}
	if len(endpoint.Traffic) > 0 {
		doc := trafficDoc{}
		if err := json.Unmarshal(endpoint.Traffic, &doc); err != nil {
			return nil, fmt.Errorf("invalid traffic document: %v", err)
		}
		if doc.CanaryTrafficPercent != nil {
			spec.CanaryTrafficPercent = *doc.CanaryTrafficPercent
		}
	}
	if len(endpoint.RuntimeConfig) > 0 {
		doc := runtimeConfigDoc{}
		if err := json.Unmarshal(endpoint.RuntimeConfig, &doc); err != nil {
			return nil, fmt.Errorf("invalid runtime_config document: %v", err)
		}
		if doc.DeploymentMode != "" {
			spec.DeploymentMode = doc.DeploymentMode
			modeExplicit = true
		}
		spec.ProtocolVersion = doc.ProtocolVersion
		spec.TimeoutSeconds = doc.TimeoutSeconds
		spec.Batcher = doc.Batcher
		if doc.Resources != nil {
			spec.GpuCount = doc.Resources.GpuCount
			spec.GpuResource = doc.Resources.GpuResource
		}
	}
	if len(endpoint.Autoscaling) > 0 {
		doc := autoscalingDoc{}
		if err := json.Unmarshal(endpoint.Autoscaling, &doc); err != nil {
			return nil, fmt.Errorf("invalid autoscaling document: %v", err)
		}
		spec.MinReplicas = doc.MinReplicas
		spec.MaxReplicas = doc.MaxReplicas
		spec.AutoscalerClass = doc.AutoscalerClass
	}
	// KEDA only scales raw deployments, so it pins the mode unless the
	// endpoint chose one itself.
	if spec.AutoscalerClass == autoscalerClassKeda && !modeExplicit {
		spec.DeploymentMode = deploymentModeRaw
	}
	if spec.GpuCount > 0 && spec.GpuResource == "" {
		spec.GpuResource = config.GetGpuResourceName()
	}
	return spec, nil
}

// ValidateServingSpec enforces the serving constraints before anything is
// pushed to the cluster.
func ValidateServingSpec(spec *ServingSpec) error {
	if spec.CanaryTrafficPercent < 0 || spec.CanaryTrafficPercent > 100 {
		return fmt.Errorf("canaryTrafficPercent must be between 0 and 100, got %d", spec.CanaryTrafficPercent)
	}
	if spec.DeploymentMode != deploymentModeServerless && spec.DeploymentMode != deploymentModeRaw {
		return fmt.Errorf("deploymentMode must be %q or %q, got %q",
			deploymentModeServerless, deploymentModeRaw, spec.DeploymentMode)
	}
	if spec.CanaryTrafficPercent > 0 && spec.DeploymentMode != deploymentModeServerless {
		return fmt.Errorf("canary traffic requires the %s deployment mode", deploymentModeServerless)
	}
	if spec.ModelFormat == modelFormatTriton && spec.ProtocolVersion != protocolVersionV2 {
		return fmt.Errorf("the %s model format requires protocolVersion %s", modelFormatTriton, protocolVersionV2)
	}
	if spec.MinReplicas < 0 || spec.MaxReplicas < 0 {
		return fmt.Errorf("replica counts must not be negative")
	}
	if spec.MaxReplicas > 0 && spec.MinReplicas > spec.MaxReplicas {
		return fmt.Errorf("minReplicas %d exceeds maxReplicas %d", spec.MinReplicas, spec.MaxReplicas)
	}
	switch spec.AutoscalerClass {
	case "", autoscalerClassHpa:
	case autoscalerClassKeda:
		if spec.DeploymentMode != deploymentModeRaw {
			return fmt.Errorf("the %s autoscaler requires the %s deployment mode",
				autoscalerClassKeda, deploymentModeRaw)
		}
	default:
		return fmt.Errorf("autoscalerClass must be %q or %q, got %q",
			autoscalerClassHpa, autoscalerClassKeda, spec.AutoscalerClass)
	}
	if spec.TimeoutSeconds < 0 {
		return fmt.Errorf("timeoutSeconds must not be negative")
	}
	if spec.Batcher != nil {
		if spec.Batcher.MaxBatchSize <= 0 {
			return fmt.Errorf("batcher maxBatchSize must be positive, got %d", spec.Batcher.MaxBatchSize)
		}
		if spec.Batcher.MaxLatencyMs < 0 {
			return fmt.Errorf("batcher maxLatencyMs must not be negative")
		}
	}
	if spec.GpuCount < 0 {
		return fmt.Errorf("gpuCount must not be negative")
	}
	return nil
}

// BuildInferenceService renders the endpoint intent as a KServe
// InferenceService object.
func BuildInferenceService(endpoint *dbclient.Endpoint, modelVersion *dbclient.ModelVersion,
	spec *ServingSpec, namespace string) *unstructured.Unstructured {
	model := map[string]interface{}{
		"runtime": endpoint.Runtime,
	}
	if modelVersion != nil {
		model["storageUri"] = modelVersion.ArtifactUri
		model["modelFormat"] = map[string]interface{}{
			"name": modelVersion.ModelFormat,
		}
	}
	if spec.ProtocolVersion != "" {
		model["protocolVersion"] = spec.ProtocolVersion
	}
	if spec.GpuCount > 0 {
		model["resources"] = map[string]interface{}{
			"limits": map[string]interface{}{
				spec.GpuResource: fmt.Sprintf("%d", spec.GpuCount),
			},
		}
	}

	predictor := map[string]interface{}{
		"model": model,
	}
	if spec.MinReplicas > 0 {
		predictor["minReplicas"] = int64(spec.MinReplicas)
	}
	if spec.MaxReplicas > 0 {
		predictor["maxReplicas"] = int64(spec.MaxReplicas)
	}
	if spec.CanaryTrafficPercent > 0 {
		predictor["canaryTrafficPercent"] = int64(spec.CanaryTrafficPercent)
	}
	if spec.TimeoutSeconds > 0 {
		predictor["timeout"] = int64(spec.TimeoutSeconds)
	}
	if spec.Batcher != nil {
		batcher := map[string]interface{}{
			"maxBatchSize": int64(spec.Batcher.MaxBatchSize),
		}
		if spec.Batcher.MaxLatencyMs > 0 {
			batcher["maxLatency"] = int64(spec.Batcher.MaxLatencyMs)
		}
		predictor["batcher"] = batcher
	}

	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": inferenceServiceGVR.Group + "/" + inferenceServiceGVR.Version,
		"kind":       "InferenceService",
		"metadata": map[string]interface{}{
			"name":      endpoint.Name,
			"namespace": namespace,
			"labels": map[string]interface{}{
				"modelops.ai/endpoint-id": endpoint.EndpointId,
				"modelops.ai/tenant-id":   endpoint.TenantId,
			},
			"annotations": buildAnnotations(spec),
		},
		"spec": map[string]interface{}{
			"predictor": predictor,
		},
	}}
}

func buildAnnotations(spec *ServingSpec) map[string]interface{} {
	annotations := map[string]interface{}{
		"serving.kserve.io/deploymentMode": spec.DeploymentMode,
	}
	if spec.AutoscalerClass != "" {
		annotations["serving.kserve.io/autoscalerClass"] = spec.AutoscalerClass
	}
	return annotations
}

// readyURL extracts the serving url from an InferenceService once its Ready
// condition turns true. Returns empty until then.
func readyURL(isvc *unstructured.Unstructured) string {
	conditions, found, err := unstructured.NestedSlice(isvc.Object, "status", "conditions")
	if err != nil || !found {
		return ""
	}
	ready := false
	for _, item := range conditions {
		condition, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if condition["type"] == "Ready" && condition["status"] == "True" {
			ready = true
			break
		}
	}
	if !ready {
		return ""
	}
	url, _, _ := unstructured.NestedString(isvc.Object, "status", "url")
	return url
}

// modelVersionFor resolves the endpoint's model version when one is pinned.
func modelVersionFor(endpoint *dbclient.Endpoint) (string, bool) {
	id := dbutils.ParseNullString(endpoint.ModelVersionId)
	return id, id != ""
}
