/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	// server
	serverPrefix = "server."
	serverPort   = serverPrefix + "port"
	skipPaths    = serverPrefix + "tenancy_skip_paths"

	// capacity
	gpuPrefix        = "gpu."
	t4SharedSlots    = gpuPrefix + "t4_shared_slots"
	t4ExclusiveSlots = gpuPrefix + "t4_exclusive_slots"
	migTotalSlots    = gpuPrefix + "mig_total_slots"
	gpuResourceName  = gpuPrefix + "resource_name"
	migResourceName  = gpuPrefix + "mig_resource_name"

	// scheduler
	schedulerPrefix        = "scheduler."
	schedulerTickSecond    = schedulerPrefix + "tick_seconds"
	dispatchTimeoutSecond  = schedulerPrefix + "dispatch_timeout_seconds"
	executionTimeoutSecond = schedulerPrefix + "execution_timeout_seconds"
	maxDispatchAttempts    = schedulerPrefix + "max_dispatch_attempts"
	candidateBatchSize     = schedulerPrefix + "candidate_batch_size"

	// dispatcher
	dispatcherPrefix = "dispatcher."
	executionMode    = dispatcherPrefix + "execution_mode"
	executorImage    = dispatcherPrefix + "executor_image"
	jobNamespace     = dispatcherPrefix + "job_namespace"
	jobTTLSecond     = dispatcherPrefix + "job_ttl_seconds"
	maxRedeliveries  = dispatcherPrefix + "max_redeliveries"

	// executor
	executorPrefix      = "executor."
	gpuExecutor         = executorPrefix + "mode"
	simulateSleepSecond = executorPrefix + "simulate_sleep_seconds"
	httpTimeoutSecond   = executorPrefix + "http_timeout_seconds"

	// deploy worker
	deployPrefix        = "deploy."
	deployMode          = deployPrefix + "mode"
	deployTimeoutSecond = deployPrefix + "timeout_seconds"
	deployPollSecond    = deployPrefix + "poll_seconds"
	servingNamespace    = deployPrefix + "serving_namespace"

	// idempotency
	idempotencyPrefix       = "idempotency."
	idempotencyTTLSecond    = idempotencyPrefix + "ttl_seconds"
	idempotencySweepSecond  = idempotencyPrefix + "sweep_seconds"
	idempotencyMaxBodyBytes = idempotencyPrefix + "max_body_bytes"

	// bus
	busPrefix = "bus."
	busURL    = busPrefix + "url"

	// db
	dbPrefix               = "db."
	dbHost                 = dbPrefix + "host"
	dbPort                 = dbPrefix + "port"
	dbName                 = dbPrefix + "dbname"
	dbUser                 = dbPrefix + "user"
	dbPassword             = dbPrefix + "password"
	dbSslMode              = dbPrefix + "ssl_mode"
	dbMaxOpenConns         = dbPrefix + "max_open_conns"
	dbMaxIdleConns         = dbPrefix + "max_idle_conns"
	dbMaxLifetime          = dbPrefix + "max_lifetime_seconds"
	dbMaxIdleTimeSecond    = dbPrefix + "max_idle_time_seconds"
	dbConnectTimeoutSecond = dbPrefix + "connect_timeout_seconds"
	dbRequestTimeoutSecond = dbPrefix + "request_timeout_seconds"
)

// envBindings maps config keys to the environment variables that override
// them. Env values win over the yaml file.
var envBindings = map[string]string{
	serverPort: "SERVER_PORT",

	t4SharedSlots:    "T4_SHARED_SLOTS",
	t4ExclusiveSlots: "T4_EXCLUSIVE_SLOTS",
	migTotalSlots:    "MIG_TOTAL_SLOTS",
	gpuResourceName:  "GPU_RESOURCE_NAME",
	migResourceName:  "GPU_MIG_RESOURCE_NAME",

	schedulerTickSecond:    "SCHEDULER_TICK_SECONDS",
	dispatchTimeoutSecond:  "DISPATCH_TIMEOUT",
	executionTimeoutSecond: "EXECUTION_TIMEOUT",
	maxDispatchAttempts:    "MAX_ATTEMPTS",

	executionMode:   "GPU_EXECUTION_MODE",
	executorImage:   "GPU_EXECUTOR_IMAGE",
	jobNamespace:    "GPU_JOB_NAMESPACE",
	jobTTLSecond:    "GPU_JOB_TTL_SECONDS",
	maxRedeliveries: "BUS_MAX_REDELIVERIES",

	gpuExecutor:         "GPU_EXECUTOR",
	simulateSleepSecond: "GPU_SIMULATE_SECONDS",
	httpTimeoutSecond:   "HTTP_TIMEOUT_SECONDS",

	deployMode:          "DEPLOY_MODE",
	deployTimeoutSecond: "DEPLOY_TIMEOUT_SECONDS",
	deployPollSecond:    "DEPLOY_POLL_SECONDS",
	servingNamespace:    "SERVING_NAMESPACE",

	idempotencyTTLSecond:    "IDEMPOTENCY_TTL_SECONDS",
	idempotencySweepSecond:  "IDEMPOTENCY_SWEEP_SECONDS",
	idempotencyMaxBodyBytes: "IDEMPOTENCY_MAX_BODY_BYTES",

	busURL: "EVENT_BUS_URL",

	dbHost:     "DB_HOST",
	dbPort:     "DB_PORT",
	dbName:     "DB_NAME",
	dbUser:     "DB_USER",
	dbPassword: "DB_PASSWORD",
	dbSslMode:  "DB_SSLMODE",
}
