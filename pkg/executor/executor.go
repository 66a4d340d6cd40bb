/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
	"github.com/MrEliotA/modelops-studio-saas/pkg/bus"
	"github.com/MrEliotA/modelops-studio-saas/pkg/config"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	dbutils "github.com/MrEliotA/modelops-studio-saas/pkg/database/utils"
	"github.com/MrEliotA/modelops-studio-saas/pkg/httpclient"
)

const (
	meterGpuSeconds = "gpu_seconds"
	subjectTypeJob  = "gpu_job"
)

// Store is the slice of the db client the executor needs.
type Store interface {
	GetGpuJob(ctx context.Context, jobId string) (*dbclient.GpuJob, error)
	MarkRunning(ctx context.Context, jobId, token string) (bool, error)
	MarkSucceeded(ctx context.Context, jobId, token string, responseJson []byte) (bool, error)
	MarkFailed(ctx context.Context, jobId, token, errMsg string) (bool, error)
	InsertUsageRecord(ctx context.Context, record *dbclient.UsageRecord) error
}

type Executor struct {
	store Store
	bus   bus.Publisher
	http  httpclient.Interface

	mode          string
	simulateSleep time.Duration
	httpTimeout   time.Duration
}

func New(store Store, publisher bus.Publisher, httpClient httpclient.Interface) *Executor {
	return &Executor{
		store:         store,
		bus:           publisher,
		http:          httpClient,
		mode:          config.GetGpuExecutor(),
		simulateSleep: time.Duration(config.GetSimulateSleepSecond()) * time.Second,
		httpTimeout:   time.Duration(config.GetHttpTimeoutSecond()) * time.Second,
	}
}

// Execute claims the job with the dispatch token and runs it to a terminal
// status. A stale token means another attempt owns the job; that is not an
// error, the work is simply dropped.
func (e *Executor) Execute(ctx context.Context, jobId, token string) error {
	job, err := e.store.GetGpuJob(ctx, jobId)
	if err != nil {
		return err
	}
	if !job.DispatchToken.Valid || job.DispatchToken.String != token {
		klog.Infof("job %s carries a different dispatch token, dropping attempt", jobId)
		return nil
	}

	claimed, err := e.store.MarkRunning(ctx, jobId, token)
	if err != nil {
		return err
	}
	if !claimed {
		klog.Infof("job %s already left DISPATCHED, dropping attempt", jobId)
		return nil
	}
	startedAt := time.Now()

	responseJson, execErr := e.run(ctx, job)
	finishedAt := time.Now()

	if execErr != nil {
		ok, err := e.store.MarkFailed(ctx, jobId, token, execErr.Error())
		if err != nil {
			return err
		}
		// GPU time was spent either way, but a lost terminal race means
		// somebody else already announced the outcome.
		e.record(ctx, job, startedAt, finishedAt)
		if ok {
			e.publishFinished(job, string(v1.JobFailed), execErr.Error())
		} else {
			klog.Infof("job %s already terminal, skipping finished event", jobId)
		}
		return nil
	}
	ok, err := e.store.MarkSucceeded(ctx, jobId, token, responseJson)
	if err != nil {
		return err
	}
	e.record(ctx, job, startedAt, finishedAt)
	if ok {
		e.publishFinished(job, string(v1.JobSucceeded), "")
	} else {
		klog.Infof("job %s already terminal, skipping finished event", jobId)
	}
	return nil
}

// run performs the actual GPU work. The simulate executor sleeps in place of
// real work; the http executor forwards the request payload to the target.
func (e *Executor) run(ctx context.Context, job *dbclient.GpuJob) ([]byte, error) {
	if e.mode == v1.ExecutorSimulate {
		select {
		case <-time.After(e.simulateSleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []byte(fmt.Sprintf(`{"simulated": true, "slept_seconds": %d}`,
			int(e.simulateSleep.Seconds()))), nil
	}

	headers := &httpclient.Headers{
		TenantId:  job.TenantId,
		ProjectId: job.ProjectId,
		UserId:    dbutils.ParseNullString(job.UserId),
	}
	result, err := e.http.Post(ctx, job.TargetUrl, job.RequestJson, e.httpTimeout, headers)
	if err != nil {
		return nil, err
	}
	if result.StatusCode >= 400 {
		return nil, fmt.Errorf("target returned status %d", result.StatusCode)
	}
	return result.Body, nil
}

// record writes a gpu_seconds ledger row and emits the metering event. Usage
// accounting never fails the job.
func (e *Executor) record(ctx context.Context, job *dbclient.GpuJob, startedAt, finishedAt time.Time) {
	seconds := finishedAt.Sub(startedAt).Seconds()
	if seconds < 0 {
		seconds = 0
	}
	labels := map[string]string{
		"gpu_pool":  dbutils.ParseNullString(job.GpuPoolAssigned),
		"isolation": job.IsolationLevel,
	}
	record := &dbclient.UsageRecord{
		TenantId:    job.TenantId,
		ProjectId:   job.ProjectId,
		SubjectType: subjectTypeJob,
		SubjectId:   job.JobId,
		Meter:       meterGpuSeconds,
		Quantity:    seconds,
		Labels:      mustMarshalLabels(labels),
		RecordedAt:  dbutils.NullTime(finishedAt),
	}
	if err := e.store.InsertUsageRecord(ctx, record); err != nil {
		klog.ErrorS(err, "failed to insert usage record", "job", job.JobId)
		return
	}
	if e.bus == nil {
		return
	}
	event := &v1.UsageRecordedEvent{
		TenantId:    job.TenantId,
		ProjectId:   job.ProjectId,
		SubjectType: subjectTypeJob,
		SubjectId:   job.JobId,
		Meter:       meterGpuSeconds,
		Quantity:    seconds,
		Labels:      labels,
		PublishedAt: finishedAt.UTC(),
	}
	if err := e.bus.Publish(v1.SubjectUsageRecorded, event); err != nil {
		klog.ErrorS(err, "failed to publish usage event", "job", job.JobId)
	}
}

func (e *Executor) publishFinished(job *dbclient.GpuJob, status, errMsg string) {
	if e.bus == nil {
		return
	}
	event := &v1.JobFinishedEvent{
		TenantId:    job.TenantId,
		ProjectId:   job.ProjectId,
		JobId:       job.JobId,
		Status:      status,
		Error:       errMsg,
		PublishedAt: time.Now().UTC(),
	}
	if err := e.bus.Publish(v1.SubjectJobFinished, event); err != nil {
		klog.ErrorS(err, "failed to publish finished event", "job", job.JobId)
	}
}

func mustMarshalLabels(labels map[string]string) []byte {
	data, err := json.Marshal(labels)
	if err != nil {
		return []byte("{}")
	}
	return data
}
