/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/lib/pq"
)

const (
	DESC = "desc"
	ASC  = "asc"
)

type GpuJob struct {
	Id               int64          `db:"id"`
	JobId            string         `db:"job_id"`
	TenantId         string         `db:"tenant_id"`
	ProjectId        string         `db:"project_id"`
	UserId           sql.NullString `db:"user_id"`
	GpuPoolRequested string         `db:"gpu_pool_requested"`
	IsolationLevel   string         `db:"isolation_level"`
	Priority         int            `db:"priority"`
	TargetUrl        string         `db:"target_url"`
	RequestJson      []byte         `db:"request_json"`
	GpuPoolAssigned  sql.NullString `db:"gpu_pool_assigned"`
	DispatchToken    sql.NullString `db:"dispatch_token"`
	DispatchAttempts int            `db:"dispatch_attempts"`
	DispatchedAt     pq.NullTime    `db:"dispatched_at"`
	Status           string         `db:"status"`
	ResponseJson     []byte         `db:"response_json"`
	Error            sql.NullString `db:"error"`
	StartedAt        pq.NullTime    `db:"started_at"`
	FinishedAt       pq.NullTime    `db:"finished_at"`
	RequestedAt      pq.NullTime    `db:"requested_at"`
	UpdatedAt        pq.NullTime    `db:"updated_at"`
}

// GetGpuJobFieldTags returns the GpuJobFieldTags value.
func GetGpuJobFieldTags() map[string]string {
	j := GpuJob{}
	return getFieldTags(j)
}

// QueuedCandidate is the scheduler's view of a QUEUED job, with the tenant
// priority boost already folded into effective_priority by the store query.
type QueuedCandidate struct {
	JobId             string      `db:"job_id"`
	TenantId          string      `db:"tenant_id"`
	ProjectId         string      `db:"project_id"`
	GpuPoolRequested  string      `db:"gpu_pool_requested"`
	IsolationLevel    string      `db:"isolation_level"`
	EffectivePriority int         `db:"effective_priority"`
	RequestedAt       pq.NullTime `db:"requested_at"`
}

type TenantGpuPolicy struct {
	TenantId          string      `db:"tenant_id" gorm:"column:tenant_id;primaryKey"`
	Plan              string      `db:"plan" gorm:"column:plan"`
	T4MaxConcurrency  int         `db:"t4_max_concurrency" gorm:"column:t4_max_concurrency"`
	MigMaxConcurrency int         `db:"mig_max_concurrency" gorm:"column:mig_max_concurrency"`
	MaxQueuedJobs     int         `db:"max_queued_jobs" gorm:"column:max_queued_jobs"`
	PriorityBoost     int         `db:"priority_boost" gorm:"column:priority_boost"`
	CreatedAt         pq.NullTime `db:"created_at" gorm:"column:created_at"`
	UpdatedAt         pq.NullTime `db:"updated_at" gorm:"column:updated_at"`
}

func (TenantGpuPolicy) TableName() string {
	return TPolicy
}

// GetTenantGpuPolicyFieldTags returns the TenantGpuPolicyFieldTags value.
func GetTenantGpuPolicyFieldTags() map[string]string {
	p := TenantGpuPolicy{}
	return getFieldTags(p)
}

// DefaultTenantGpuPolicy is the implicit free-plan policy used when a tenant
// has no row yet.
func DefaultTenantGpuPolicy(tenantId string) *TenantGpuPolicy {
	return &TenantGpuPolicy{
		TenantId:          tenantId,
		Plan:              "free",
		T4MaxConcurrency:  1,
		MigMaxConcurrency: 0,
		MaxQueuedJobs:     50,
		PriorityBoost:     0,
	}
}

type IdempotencyKey struct {
	Id              int64          `db:"id"`
	TenantId        string         `db:"tenant_id"`
	ProjectId       string         `db:"project_id"`
	Method          string         `db:"method"`
	Path            string         `db:"path"`
	IdemKey         string         `db:"idem_key"`
	RequestHash     string         `db:"request_hash"`
	StatusCode      sql.NullInt64  `db:"status_code"`
	ResponseHeaders sql.NullString `db:"response_headers"`
	ResponseBody    []byte         `db:"response_body"`
	CreatedAt       pq.NullTime    `db:"created_at"`
	ExpiresAt       pq.NullTime    `db:"expires_at"`
}

// GetIdempotencyKeyFieldTags returns the IdempotencyKeyFieldTags value.
func GetIdempotencyKeyFieldTags() map[string]string {
	k := IdempotencyKey{}
	return getFieldTags(k)
}

type Endpoint struct {
	Id             int64          `db:"id"`
	EndpointId     string         `db:"endpoint_id"`
	TenantId       string         `db:"tenant_id"`
	ProjectId      string         `db:"project_id"`
	Name           string         `db:"name"`
	Runtime        string         `db:"runtime"`
	ModelVersionId sql.NullString `db:"model_version_id"`
	Traffic        []byte         `db:"traffic"`
	Autoscaling    []byte         `db:"autoscaling"`
	RuntimeConfig  []byte         `db:"runtime_config"`
	Status         string         `db:"status"`
	Url            sql.NullString `db:"url"`
	Error          sql.NullString `db:"error"`
	IsDeleted      bool           `db:"is_deleted"`
	CreatedAt      pq.NullTime    `db:"created_at"`
	UpdatedAt      pq.NullTime    `db:"updated_at"`
}

// GetEndpointFieldTags returns the EndpointFieldTags value.
func GetEndpointFieldTags() map[string]string {
	e := Endpoint{}
	return getFieldTags(e)
}

type ModelVersion struct {
	Id             int64       `db:"id"`
	ModelVersionId string      `db:"model_version_id"`
	TenantId       string      `db:"tenant_id"`
	ProjectId      string      `db:"project_id"`
	ModelName      string      `db:"model_name"`
	Version        string      `db:"version"`
	ArtifactUri    string      `db:"artifact_uri"`
	ModelFormat    string      `db:"model_format"`
	CreatedAt      pq.NullTime `db:"created_at"`
}

type UsageRecord struct {
	Id          int64       `db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	TenantId    string      `db:"tenant_id" gorm:"column:tenant_id"`
	ProjectId   string      `db:"project_id" gorm:"column:project_id"`
	SubjectType string      `db:"subject_type" gorm:"column:subject_type"`
	SubjectId   string      `db:"subject_id" gorm:"column:subject_id"`
	Meter       string      `db:"meter" gorm:"column:meter"`
	Quantity    float64     `db:"quantity" gorm:"column:quantity"`
	Labels      []byte      `db:"labels" gorm:"column:labels"`
	RecordedAt  pq.NullTime `db:"recorded_at" gorm:"column:recorded_at"`
}

func (UsageRecord) TableName() string {
	return TUsage
}

// GetUsageRecordFieldTags returns the UsageRecordFieldTags value.
func GetUsageRecordFieldTags() map[string]string {
	r := UsageRecord{}
	return getFieldTags(r)
}

// getFieldTags retrieves FieldTags for internal use.
func getFieldTags(obj interface{}) map[string]string {
	result := make(map[string]string)
	t := reflect.TypeOf(obj)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		result[strings.ToLower(field.Name)] = field.Tag.Get("db")
	}
	return result
}

// genInsertCommand generates a named-parameter SQL command using reflection.
// Iterates through struct fields and builds column and value lists.
// Skips fields with the specified ignoreTag.
func genInsertCommand(obj interface{}, format, ignoreTag string) string {
	t := reflect.TypeOf(obj)
	columns := make([]string, 0, t.NumField())
	values := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("db")
		if tag == ignoreTag {
			continue
		}
		columns = append(columns, tag)
		values = append(values, fmt.Sprintf(":%s", tag))
	}
	cmd := fmt.Sprintf(format, strings.Join(columns, ", "), strings.Join(values, ", "))
	return cmd
}

// GetFieldTag returns the FieldTag value.
func GetFieldTag(tags map[string]string, name string) string {
	name = strings.ToLower(name)
	return tags[name]
}
