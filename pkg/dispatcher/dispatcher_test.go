/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"
	"gotest.tools/assert"

	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	"github.com/MrEliotA/modelops-studio-saas/pkg/errors"
)

type fakeStore struct {
	job        *dbclient.GpuJob
	failedWith string
}

func (f *fakeStore) GetGpuJob(_ context.Context, jobId string) (*dbclient.GpuJob, error) {
	if f.job == nil || f.job.JobId != jobId {
		return nil, errors.NewNotFound("GpuJob", jobId)
	}
	return f.job, nil
}

func (f *fakeStore) FailDispatched(_ context.Context, _, token, errMsg string) (bool, error) {
	if f.job.Status != string(v1.JobDispatched) || f.job.DispatchToken.String != token {
		return false, nil
	}
	f.job.Status = string(v1.JobFailed)
	f.failedWith = errMsg
	return true, nil
}

type fakeRunner struct {
	executed []string
	err      error
}

func (f *fakeRunner) Execute(_ context.Context, jobId, _ string) error {
	f.executed = append(f.executed, jobId)
	return f.err
}

type fakePublisher struct {
	subjects []string
}

func (f *fakePublisher) Publish(subject string, _ interface{}) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

func dispatchedJob(token string) *dbclient.GpuJob {
	return &dbclient.GpuJob{
		JobId:         "job-1",
		TenantId:      "tenant-1",
		ProjectId:     "project-1",
		Status:        string(v1.JobDispatched),
		DispatchToken: sql.NullString{String: token, Valid: true},
	}
}

func dispatchMsg(t *testing.T, jobId, token string) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(&v1.JobDispatchedEvent{
		JobId:         jobId,
		DispatchToken: token,
		Pool:          "t4",
		Isolation:     "shared",
	})
	assert.NilError(t, err)
	return &nats.Msg{Subject: v1.DispatchSubject(v1.PoolT4, v1.IsolationShared), Data: data}
}

func newDirectDispatcher(store Store, runner Runner, publisher *fakePublisher, maxRedeliveries int) *Dispatcher {
	return &Dispatcher{
		store:           store,
		publisher:       publisher,
		runner:          runner,
		mode:            v1.ExecutionModeDirect,
		maxRedeliveries: maxRedeliveries,
	}
}

func TestHandleExecutesDirect(t *testing.T) {
	store := &fakeStore{job: dispatchedJob("token-1")}
	runner := &fakeRunner{}
	d := newDirectDispatcher(store, runner, &fakePublisher{}, 3)

	err := d.handle(context.Background(), dispatchMsg(t, "job-1", "token-1"))
	assert.NilError(t, err)
	assert.DeepEqual(t, []string{"job-1"}, runner.executed)
}

func TestHandleDropsStaleToken(t *testing.T) {
	store := &fakeStore{job: dispatchedJob("token-2")}
	runner := &fakeRunner{}
	d := newDirectDispatcher(store, runner, &fakePublisher{}, 3)

	err := d.handle(context.Background(), dispatchMsg(t, "job-1", "token-1"))
	assert.NilError(t, err)
	assert.Equal(t, 0, len(runner.executed))
}

func TestHandleDropsMissingJob(t *testing.T) {
	d := newDirectDispatcher(&fakeStore{}, &fakeRunner{}, &fakePublisher{}, 3)

	err := d.handle(context.Background(), dispatchMsg(t, "job-1", "token-1"))
	assert.NilError(t, err)
}

func TestHandleNaksRetryableFailure(t *testing.T) {
	store := &fakeStore{job: dispatchedJob("token-1")}
	runner := &fakeRunner{err: fmt.Errorf("transient launch failure")}
	d := newDirectDispatcher(store, runner, &fakePublisher{}, 3)

	// First delivery of three allowed; the error propagates so the bus naks.
	err := d.handle(context.Background(), dispatchMsg(t, "job-1", "token-1"))
	assert.ErrorContains(t, err, "transient launch failure")
	assert.Equal(t, string(v1.JobDispatched), store.job.Status)
}

func TestHandleFailsJobOnLastDelivery(t *testing.T) {
	store := &fakeStore{job: dispatchedJob("token-1")}
	runner := &fakeRunner{err: fmt.Errorf("persistent launch failure")}
	publisher := &fakePublisher{}
	d := newDirectDispatcher(store, runner, publisher, 1)

	err := d.handle(context.Background(), dispatchMsg(t, "job-1", "token-1"))
	assert.NilError(t, err)
	assert.Equal(t, string(v1.JobFailed), store.job.Status)
	assert.Equal(t, v1.ErrDispatchLaunchFailed, store.failedWith)
	assert.DeepEqual(t, []string{v1.SubjectJobFinished}, publisher.subjects)
}
