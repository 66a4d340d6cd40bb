/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package deployworker

import (
	"testing"

	"gotest.tools/assert"

	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
)

func testEndpoint(traffic, autoscaling, runtimeConfig string) *dbclient.Endpoint {
	return &dbclient.Endpoint{
		EndpointId:    "7d9f1b2c-0000-4000-8000-000000000001",
		TenantId:      "6f7a83c4-0000-4000-8000-000000000001",
		Name:          "sentiment-v2",
		Runtime:       "kserve-sklearnserver",
		Traffic:       []byte(traffic),
		Autoscaling:   []byte(autoscaling),
		RuntimeConfig: []byte(runtimeConfig),
	}
}

func TestParseServingSpecDefaults(t *testing.T) {
	spec, err := ParseServingSpec(testEndpoint("", "", ""), nil)
	assert.NilError(t, err)
	assert.Equal(t, deploymentModeServerless, spec.DeploymentMode)
	assert.Equal(t, 0, spec.CanaryTrafficPercent)
	assert.NilError(t, ValidateServingSpec(spec))
}

func TestParseServingSpecReadsDocuments(t *testing.T) {
	endpoint := testEndpoint(
		`{"canaryTrafficPercent": 10}`,
		`{"minReplicas": 1, "maxReplicas": 4}`,
		`{"deploymentMode": "serverless", "protocolVersion": "v2"}`)
	spec, err := ParseServingSpec(endpoint, &dbclient.ModelVersion{ModelFormat: "sklearn"})
	assert.NilError(t, err)
	assert.Equal(t, 10, spec.CanaryTrafficPercent)
	assert.Equal(t, 1, spec.MinReplicas)
	assert.Equal(t, 4, spec.MaxReplicas)
	assert.Equal(t, "v2", spec.ProtocolVersion)
	assert.Equal(t, "sklearn", spec.ModelFormat)
	assert.NilError(t, ValidateServingSpec(spec))
}

func TestParseServingSpecRejectsMalformedTraffic(t *testing.T) {
	_, err := ParseServingSpec(testEndpoint(`{"canaryTrafficPercent": `, "", ""), nil)
	assert.ErrorContains(t, err, "invalid traffic document")
}

func TestValidateCanaryRange(t *testing.T) {
	spec := &ServingSpec{CanaryTrafficPercent: 150, DeploymentMode: deploymentModeServerless}
	assert.ErrorContains(t, ValidateServingSpec(spec), "between 0 and 100")

	spec.CanaryTrafficPercent = -1
	assert.ErrorContains(t, ValidateServingSpec(spec), "between 0 and 100")

	spec.CanaryTrafficPercent = 100
	assert.NilError(t, ValidateServingSpec(spec))
}

func TestValidateCanaryRequiresServerless(t *testing.T) {
	spec := &ServingSpec{CanaryTrafficPercent: 10, DeploymentMode: deploymentModeRaw}
	assert.ErrorContains(t, ValidateServingSpec(spec), "requires the serverless deployment mode")

	spec.CanaryTrafficPercent = 0
	assert.NilError(t, ValidateServingSpec(spec))
}

func TestValidateTritonRequiresV2(t *testing.T) {
	spec := &ServingSpec{DeploymentMode: deploymentModeServerless, ModelFormat: modelFormatTriton}
	assert.ErrorContains(t, ValidateServingSpec(spec), "requires protocolVersion v2")

	spec.ProtocolVersion = protocolVersionV2
	assert.NilError(t, ValidateServingSpec(spec))
}

func TestParseServingSpecKedaPinsRawMode(t *testing.T) {
	endpoint := testEndpoint("", `{"minReplicas": 1, "maxReplicas": 4, "autoscalerClass": "keda"}`, "")
	spec, err := ParseServingSpec(endpoint, nil)
	assert.NilError(t, err)
	assert.Equal(t, deploymentModeRaw, spec.DeploymentMode)
	assert.Equal(t, autoscalerClassKeda, spec.AutoscalerClass)
	assert.NilError(t, ValidateServingSpec(spec))
}

func TestValidateKedaRequiresRawMode(t *testing.T) {
	endpoint := testEndpoint("",
		`{"autoscalerClass": "keda"}`,
		`{"deploymentMode": "serverless"}`)
	spec, err := ParseServingSpec(endpoint, nil)
	assert.NilError(t, err)
	assert.ErrorContains(t, ValidateServingSpec(spec), "requires the raw deployment mode")
}

func TestValidateAutoscalerClass(t *testing.T) {
	spec := &ServingSpec{DeploymentMode: deploymentModeServerless, AutoscalerClass: "vpa"}
	assert.ErrorContains(t, ValidateServingSpec(spec), "autoscalerClass must be")

	spec.AutoscalerClass = autoscalerClassHpa
	assert.NilError(t, ValidateServingSpec(spec))
}

func TestValidateBatcher(t *testing.T) {
	spec := &ServingSpec{DeploymentMode: deploymentModeServerless, Batcher: &BatcherSpec{}}
	assert.ErrorContains(t, ValidateServingSpec(spec), "maxBatchSize must be positive")

	spec.Batcher.MaxBatchSize = 32
	spec.Batcher.MaxLatencyMs = -1
	assert.ErrorContains(t, ValidateServingSpec(spec), "maxLatencyMs must not be negative")

	spec.Batcher.MaxLatencyMs = 500
	assert.NilError(t, ValidateServingSpec(spec))
}

func TestValidateReplicaBounds(t *testing.T) {
	spec := &ServingSpec{DeploymentMode: deploymentModeServerless, MinReplicas: 5, MaxReplicas: 2}
	assert.ErrorContains(t, ValidateServingSpec(spec), "exceeds maxReplicas")
}

func TestBuildInferenceService(t *testing.T) {
	endpoint := testEndpoint(`{"canaryTrafficPercent": 20}`, `{"minReplicas": 1, "maxReplicas": 3}`,
		`{"deploymentMode": "serverless", "protocolVersion": "v2"}`)
	modelVersion := &dbclient.ModelVersion{
		ModelVersionId: "9a1b2c3d-0000-4000-8000-000000000001",
		ArtifactUri:    "s3://models/sentiment/v2",
		ModelFormat:    "triton",
	}
	spec, err := ParseServingSpec(endpoint, modelVersion)
	assert.NilError(t, err)
	assert.NilError(t, ValidateServingSpec(spec))

	isvc := BuildInferenceService(endpoint, modelVersion, spec, "modelops-serving")
	assert.Equal(t, "serving.kserve.io/v1beta1", isvc.GetAPIVersion())
	assert.Equal(t, "InferenceService", isvc.GetKind())
	assert.Equal(t, "sentiment-v2", isvc.GetName())
	assert.Equal(t, "modelops-serving", isvc.GetNamespace())
	assert.Equal(t, endpoint.EndpointId, isvc.GetLabels()["modelops.ai/endpoint-id"])
	assert.Equal(t, "serverless", isvc.GetAnnotations()["serving.kserve.io/deploymentMode"])

	predictor := isvc.Object["spec"].(map[string]interface{})["predictor"].(map[string]interface{})
	assert.Equal(t, int64(20), predictor["canaryTrafficPercent"])
	assert.Equal(t, int64(1), predictor["minReplicas"])
	assert.Equal(t, int64(3), predictor["maxReplicas"])

	model := predictor["model"].(map[string]interface{})
	assert.Equal(t, "s3://models/sentiment/v2", model["storageUri"])
	assert.Equal(t, "v2", model["protocolVersion"])
	assert.Equal(t, "kserve-sklearnserver", model["runtime"])
}

func TestBuildInferenceServiceRawWithKedaAndBatcher(t *testing.T) {
	endpoint := testEndpoint("",
		`{"minReplicas": 2, "maxReplicas": 6, "autoscalerClass": "keda"}`,
		`{"timeoutSeconds": 30, "batcher": {"maxBatchSize": 32, "maxLatencyMs": 500}, "resources": {"gpuCount": 1}}`)
	spec, err := ParseServingSpec(endpoint, nil)
	assert.NilError(t, err)
	assert.NilError(t, ValidateServingSpec(spec))

	isvc := BuildInferenceService(endpoint, nil, spec, "modelops-serving")
	assert.Equal(t, "raw", isvc.GetAnnotations()["serving.kserve.io/deploymentMode"])
	assert.Equal(t, "keda", isvc.GetAnnotations()["serving.kserve.io/autoscalerClass"])

	predictor := isvc.Object["spec"].(map[string]interface{})["predictor"].(map[string]interface{})
	assert.Equal(t, int64(30), predictor["timeout"])

	batcher := predictor["batcher"].(map[string]interface{})
	assert.Equal(t, int64(32), batcher["maxBatchSize"])
	assert.Equal(t, int64(500), batcher["maxLatency"])

	model := predictor["model"].(map[string]interface{})
	limits := model["resources"].(map[string]interface{})["limits"].(map[string]interface{})
	assert.Equal(t, "1", limits["nvidia.com/gpu"])
}

func TestReadyURL(t *testing.T) {
	isvc := BuildInferenceService(testEndpoint("", "", ""), nil,
		&ServingSpec{DeploymentMode: deploymentModeServerless}, "modelops-serving")
	assert.Equal(t, "", readyURL(isvc))

	isvc.Object["status"] = map[string]interface{}{
		"url": "http://sentiment-v2.modelops-serving.svc",
		"conditions": []interface{}{
			map[string]interface{}{"type": "PredictorReady", "status": "True"},
			map[string]interface{}{"type": "Ready", "status": "False"},
		},
	}
	assert.Equal(t, "", readyURL(isvc))

	isvc.Object["status"].(map[string]interface{})["conditions"] = []interface{}{
		map[string]interface{}{"type": "Ready", "status": "True"},
	}
	assert.Equal(t, "http://sentiment-v2.modelops-serving.svc", readyURL(isvc))
}
