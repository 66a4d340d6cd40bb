/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"context"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/MrEliotA/modelops-studio-saas/pkg/bus"
	"github.com/MrEliotA/modelops-studio-saas/pkg/config"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	"github.com/MrEliotA/modelops-studio-saas/pkg/options"
	"github.com/MrEliotA/modelops-studio-saas/pkg/scheduler"
)

func main() {
	opt := &options.Options{}
	if err := opt.InitFlags(); err != nil {
		klog.Fatalf("failed to init flags: %v", err)
	}
	if err := config.LoadConfig(opt.Config); err != nil {
		klog.Fatalf("failed to load config: %v", err)
	}

	db := dbclient.NewClient()
	if db == nil {
		klog.Fatalf("failed to initialize db client")
	}
	defer db.Close()

	busClient, err := bus.Connect(config.GetBusURL())
	if err != nil {
		klog.Fatalf("failed to connect event bus: %v", err)
	}
	defer busClient.Close()
	if err = busClient.EnsureStreams(); err != nil {
		klog.Fatalf("failed to ensure streams: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.New(db, busClient).Run(ctx)
}
