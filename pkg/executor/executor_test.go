/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package executor

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"
	"time"

	"gotest.tools/assert"

	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	dbutils "github.com/MrEliotA/modelops-studio-saas/pkg/database/utils"
	"github.com/MrEliotA/modelops-studio-saas/pkg/httpclient"
)

type fakeStore struct {
	job *dbclient.GpuJob

	markedRunning bool
	succeededWith []byte
	failedWith    string
	usage         []*dbclient.UsageRecord
}

func (f *fakeStore) GetGpuJob(_ context.Context, jobId string) (*dbclient.GpuJob, error) {
	if f.job == nil || f.job.JobId != jobId {
		return nil, fmt.Errorf("job %s not found", jobId)
	}
	return f.job, nil
}

func (f *fakeStore) MarkRunning(_ context.Context, _, token string) (bool, error) {
	if f.job.Status != string(v1.JobDispatched) || f.job.DispatchToken.String != token {
		return false, nil
	}
	f.job.Status = string(v1.JobRunning)
	f.markedRunning = true
	return true, nil
}

func (f *fakeStore) MarkSucceeded(_ context.Context, _, token string, responseJson []byte) (bool, error) {
	if f.job.Status != string(v1.JobRunning) || f.job.DispatchToken.String != token {
		return false, nil
	}
	f.job.Status = string(v1.JobSucceeded)
	f.succeededWith = responseJson
	return true, nil
}

func (f *fakeStore) MarkFailed(_ context.Context, _, token, errMsg string) (bool, error) {
	if f.job.Status != string(v1.JobRunning) || f.job.DispatchToken.String != token {
		return false, nil
	}
	f.job.Status = string(v1.JobFailed)
	f.failedWith = errMsg
	return true, nil
}

func (f *fakeStore) InsertUsageRecord(_ context.Context, record *dbclient.UsageRecord) error {
	f.usage = append(f.usage, record)
	return nil
}

type fakePublisher struct {
	subjects []string
}

func (f *fakePublisher) Publish(subject string, _ interface{}) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

type fakeHttp struct {
	result *httpclient.Result
	err    error
}

func (f *fakeHttp) Post(_ context.Context, _ string, _ []byte, _ time.Duration, _ *httpclient.Headers) (*httpclient.Result, error) {
	return f.result, f.err
}

func (f *fakeHttp) Get(_ context.Context, _ string, _ time.Duration, _ *httpclient.Headers) (*httpclient.Result, error) {
	return f.result, f.err
}

func dispatchedJob(token string) *dbclient.GpuJob {
	return &dbclient.GpuJob{
		JobId:            "job-1",
		TenantId:         "tenant-1",
		ProjectId:        "project-1",
		GpuPoolRequested: "t4",
		GpuPoolAssigned:  dbutils.NullString("t4"),
		IsolationLevel:   "shared",
		TargetUrl:        "http://inference.local/run",
		RequestJson:      []byte(`{"prompt": "hi"}`),
		Status:           string(v1.JobDispatched),
		DispatchToken:    sql.NullString{String: token, Valid: true},
	}
}

func simulateExecutor(store Store, publisher *fakePublisher) *Executor {
	return &Executor{
		store:         store,
		bus:           publisher,
		mode:          v1.ExecutorSimulate,
		simulateSleep: time.Millisecond,
	}
}

func TestExecuteSimulateSucceeds(t *testing.T) {
	store := &fakeStore{job: dispatchedJob("token-1")}
	publisher := &fakePublisher{}
	e := simulateExecutor(store, publisher)

	err := e.Execute(context.Background(), "job-1", "token-1")
	assert.NilError(t, err)
	assert.Equal(t, string(v1.JobSucceeded), store.job.Status)
	assert.Assert(t, len(store.succeededWith) > 0)
	assert.Equal(t, 1, len(store.usage))
	assert.Equal(t, "gpu_seconds", store.usage[0].Meter)
	assert.DeepEqual(t, []string{v1.SubjectUsageRecorded, v1.SubjectJobFinished}, publisher.subjects)
}

func TestExecuteDropsStaleToken(t *testing.T) {
	store := &fakeStore{job: dispatchedJob("token-2")}
	e := simulateExecutor(store, &fakePublisher{})

	err := e.Execute(context.Background(), "job-1", "token-1")
	assert.NilError(t, err)
	assert.Assert(t, !store.markedRunning)
	assert.Equal(t, string(v1.JobDispatched), store.job.Status)
	assert.Equal(t, 0, len(store.usage))
}

// timedOutStore fails the job out from under the executor the moment it
// claims it, the way a stale-running sweep would.
type timedOutStore struct {
	*fakeStore
}

func (s *timedOutStore) MarkRunning(ctx context.Context, jobId, token string) (bool, error) {
	ok, err := s.fakeStore.MarkRunning(ctx, jobId, token)
	s.job.Status = string(v1.JobFailed)
	return ok, err
}

func TestExecuteSkipsFinishedEventWhenAlreadyTerminal(t *testing.T) {
	store := &timedOutStore{&fakeStore{job: dispatchedJob("token-1")}}
	publisher := &fakePublisher{}

	err := simulateExecutor(store, publisher).Execute(context.Background(), "job-1", "token-1")
	assert.NilError(t, err)
	assert.Equal(t, string(v1.JobFailed), store.job.Status)
	// GPU time was spent, so the usage row still lands; the finished event
	// belongs to whoever won the terminal transition.
	assert.Equal(t, 1, len(store.usage))
	assert.DeepEqual(t, []string{v1.SubjectUsageRecorded}, publisher.subjects)
}

func TestExecuteHttpFailureMarksFailed(t *testing.T) {
	store := &fakeStore{job: dispatchedJob("token-1")}
	publisher := &fakePublisher{}
	e := &Executor{
		store: store,
		bus:   publisher,
		http:  &fakeHttp{result: &httpclient.Result{StatusCode: http.StatusBadGateway}},
		mode:  v1.ExecutorHttp,
	}

	err := e.Execute(context.Background(), "job-1", "token-1")
	assert.NilError(t, err)
	assert.Equal(t, string(v1.JobFailed), store.job.Status)
	assert.Equal(t, "target returned status 502", store.failedWith)
	// Usage is still recorded for failed runs; the GPU time was spent.
	assert.Equal(t, 1, len(store.usage))
}

func TestExecuteHttpSucceedsWithResponseBody(t *testing.T) {
	store := &fakeStore{job: dispatchedJob("token-1")}
	e := &Executor{
		store: store,
		http: &fakeHttp{result: &httpclient.Result{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"output": "done"}`),
		}},
		mode: v1.ExecutorHttp,
	}

	err := e.Execute(context.Background(), "job-1", "token-1")
	assert.NilError(t, err)
	assert.Equal(t, string(v1.JobSucceeded), store.job.Status)
	assert.Equal(t, `{"output": "done"}`, string(store.succeededWith))
}
