/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// The executor binary runs one gpu job attempt to completion and exits. In
// ephemeral mode the dispatcher launches it as a k8s Job with the job id and
// dispatch token in the environment.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/MrEliotA/modelops-studio-saas/pkg/bus"
	"github.com/MrEliotA/modelops-studio-saas/pkg/config"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	"github.com/MrEliotA/modelops-studio-saas/pkg/executor"
	"github.com/MrEliotA/modelops-studio-saas/pkg/httpclient"
	"github.com/MrEliotA/modelops-studio-saas/pkg/options"
)

func main() {
	opt := &options.Options{}
	if err := opt.InitFlags(); err != nil {
		klog.Fatalf("failed to init flags: %v", err)
	}
	if err := config.LoadConfig(opt.Config); err != nil {
		klog.Fatalf("failed to load config: %v", err)
	}

	jobId := os.Getenv("JOB_ID")
	token := os.Getenv("DISPATCH_TOKEN")
	if jobId == "" || token == "" {
		klog.Fatalf("JOB_ID and DISPATCH_TOKEN are required")
	}

	db := dbclient.NewClient()
	if db == nil {
		klog.Fatalf("failed to initialize db client")
	}
	defer db.Close()

	// The run still counts without the bus; events are informational.
	var publisher bus.Publisher
	busClient, err := bus.Connect(config.GetBusURL())
	if err != nil {
		klog.ErrorS(err, "event bus unavailable, continuing without events")
	} else {
		publisher = busClient
		defer busClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := executor.New(db, publisher, httpclient.NewHttpClient())
	if err = e.Execute(ctx, jobId, token); err != nil {
		klog.Fatalf("failed to execute job %s: %v", jobId, err)
	}
}
