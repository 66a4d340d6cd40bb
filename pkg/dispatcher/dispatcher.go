/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"k8s.io/klog/v2"

	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
	"github.com/MrEliotA/modelops-studio-saas/pkg/bus"
	"github.com/MrEliotA/modelops-studio-saas/pkg/config"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	"github.com/MrEliotA/modelops-studio-saas/pkg/errors"
)

const durableName = "modelops-dispatcher"

// Store is the slice of the db client the dispatcher needs.
type Store interface {
	GetGpuJob(ctx context.Context, jobId string) (*dbclient.GpuJob, error)
	FailDispatched(ctx context.Context, jobId, token, errMsg string) (bool, error)
}

// Runner executes a job in-process. Used in direct mode.
type Runner interface {
	Execute(ctx context.Context, jobId, token string) error
}

// Launcher starts the job on external compute. Used in ephemeral mode.
type Launcher interface {
	Launch(ctx context.Context, event *v1.JobDispatchedEvent) error
}

type Dispatcher struct {
	store     Store
	bus       *bus.Client
	publisher bus.Publisher
	runner    Runner
	launcher  Launcher

	mode            string
	maxRedeliveries int
}

func New(store Store, busClient *bus.Client, runner Runner, launcher Launcher) *Dispatcher {
	return &Dispatcher{
		store:           store,
		bus:             busClient,
		publisher:       busClient,
		runner:          runner,
		launcher:        launcher,
		mode:            config.GetExecutionMode(),
		maxRedeliveries: config.GetMaxRedeliveries(),
	}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	err := d.bus.EnsureConsumer(v1.StreamGpu, durableName, v1.DispatchSubjects(), d.maxRedeliveries)
	if err != nil {
		return err
	}
	klog.Infof("dispatcher started, mode=%s", d.mode)
	return d.bus.PullLoop(ctx, v1.StreamGpu, durableName, d.handle)
}

// handle processes one dispatch event. Returning nil acks the message; any
// event that cannot lead to work anymore is dropped, not redelivered.
func (d *Dispatcher) handle(ctx context.Context, msg *nats.Msg) error {
	event := &v1.JobDispatchedEvent{}
	if err := json.Unmarshal(msg.Data, event); err != nil {
		klog.ErrorS(err, "failed to decode dispatch event", "subject", msg.Subject)
		return nil
	}

	job, err := d.store.GetGpuJob(ctx, event.JobId)
	if err != nil {
		if errors.IsNotFound(err) {
			klog.Infof("job %s no longer exists, dropping dispatch event", event.JobId)
			return nil
		}
		return err
	}
	if job.Status != string(v1.JobDispatched) ||
		!job.DispatchToken.Valid || job.DispatchToken.String != event.DispatchToken {
		klog.Infof("job %s moved past this dispatch attempt, dropping event", event.JobId)
		return nil
	}

	if d.mode == v1.ExecutionModeEphemeral {
		err = d.launcher.Launch(ctx, event)
	} else {
		err = d.runner.Execute(ctx, event.JobId, event.DispatchToken)
	}
	if err == nil {
		return nil
	}

	if bus.NumDelivered(msg) >= d.maxRedeliveries {
		klog.ErrorS(err, "failing job after exhausting redeliveries", "job", event.JobId)
		ok, failErr := d.store.FailDispatched(ctx, event.JobId, event.DispatchToken, v1.ErrDispatchLaunchFailed)
		if failErr != nil {
			return failErr
		}
		if ok {
			d.publishFinished(event)
		}
		return nil
	}
	return err
}

func (d *Dispatcher) publishFinished(event *v1.JobDispatchedEvent) {
	finished := &v1.JobFinishedEvent{
		TenantId:    event.TenantId,
		ProjectId:   event.ProjectId,
		JobId:       event.JobId,
		Status:      string(v1.JobFailed),
		Error:       v1.ErrDispatchLaunchFailed,
		PublishedAt: time.Now().UTC(),
	}
	if err := d.publisher.Publish(v1.SubjectJobFinished, finished); err != nil {
		klog.ErrorS(err, "failed to publish finished event", "job", event.JobId)
	}
}
