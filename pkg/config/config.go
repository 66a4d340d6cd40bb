/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"strings"

	"github.com/spf13/viper"

	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
)

func init() {
	for key, env := range envBindings {
		_ = viper.BindEnv(key, env)
	}
}

func SetValue(key, value string) {
	viper.Set(key, value)
}

// LoadConfig reads the optional yaml config file. An empty path means the
// process is configured through environment variables only.
func LoadConfig(path string) error {
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

func getStrings(key string, defaultValue []string) []string {
	val := getString(key, "")
	if val == "" {
		return defaultValue
	}
	return removeBlank(strings.Split(val, ","))
}

func removeBlank(slice []string) []string {
	var result []string
	for _, val := range slice {
		if trim := strings.TrimSpace(val); trim != "" {
			result = append(result, trim)
		}
	}
	return result
}

func GetServerPort() int {
	return getInt(serverPort, 8080)
}

func GetTenancySkipPaths() []string {
	return getStrings(skipPaths, []string{"/healthz", "/metrics"})
}

func GetT4SharedSlots() int {
	return getInt(t4SharedSlots, 8)
}

func GetT4ExclusiveSlots() int {
	return getInt(t4ExclusiveSlots, 1)
}

func GetMigTotalSlots() int {
	return getInt(migTotalSlots, 0)
}

func GetGpuResourceName() string {
	return getString(gpuResourceName, "nvidia.com/gpu")
}

func GetMigResourceName() string {
	return getString(migResourceName, "nvidia.com/mig-1g.5gb")
}

func GetSchedulerTickSecond() int {
	return getInt(schedulerTickSecond, 2)
}

func GetDispatchTimeoutSecond() int {
	return getInt(dispatchTimeoutSecond, 120)
}

func GetExecutionTimeoutSecond() int {
	return getInt(executionTimeoutSecond, 600)
}

func GetMaxDispatchAttempts() int {
	return getInt(maxDispatchAttempts, 3)
}

func GetCandidateBatchSize() int {
	return getInt(candidateBatchSize, 100)
}

func GetExecutionMode() string {
	return getString(executionMode, v1.ExecutionModeDirect)
}

func GetExecutorImage() string {
	return getString(executorImage, "")
}

func GetJobNamespace() string {
	return getString(jobNamespace, "modelops")
}

func GetJobTTLSecond() int {
	return getInt(jobTTLSecond, 600)
}

func GetMaxRedeliveries() int {
	return getInt(maxRedeliveries, 3)
}

func GetGpuExecutor() string {
	return getString(gpuExecutor, v1.ExecutorSimulate)
}

func GetSimulateSleepSecond() int {
	return getInt(simulateSleepSecond, 2)
}

func GetHttpTimeoutSecond() int {
	return getInt(httpTimeoutSecond, 30)
}

func GetDeployMode() string {
	return getString(deployMode, v1.DeployModeSimulate)
}

func GetDeployTimeoutSecond() int {
	return getInt(deployTimeoutSecond, 300)
}

func GetDeployPollSecond() int {
	return getInt(deployPollSecond, 5)
}

func GetServingNamespace() string {
	return getString(servingNamespace, "modelops-serving")
}

func GetIdempotencyTTLSecond() int {
	return getInt(idempotencyTTLSecond, 86400)
}

func GetIdempotencySweepSecond() int {
	return getInt(idempotencySweepSecond, 300)
}

func GetIdempotencyMaxBodyBytes() int {
	return getInt(idempotencyMaxBodyBytes, 65536)
}

func GetBusURL() string {
	return getString(busURL, "nats://127.0.0.1:4222")
}

func GetDBHost() string {
	return getString(dbHost, "")
}

func GetDBPort() int {
	return getInt(dbPort, 5432)
}

func GetDBName() string {
	return getString(dbName, "")
}

func GetDBUser() string {
	return getString(dbUser, "")
}

func GetDBPassword() string {
	return getString(dbPassword, "")
}

func GetDBSslMode() string {
	return getString(dbSslMode, "disable")
}

func GetDBMaxOpenConns() int {
	return getInt(dbMaxOpenConns, 100)
}

func GetDBMaxIdleConns() int {
	return getInt(dbMaxIdleConns, 10)
}

func GetDBMaxLifetimeSecond() int {
	return getInt(dbMaxLifetime, 600)
}

func GetDBMaxIdleTimeSecond() int {
	return getInt(dbMaxIdleTimeSecond, 60)
}

func GetDBConnectTimeoutSecond() int {
	return getInt(dbConnectTimeoutSecond, 10)
}

func GetDBRequestTimeoutSecond() int {
	return getInt(dbRequestTimeoutSecond, 20)
}
