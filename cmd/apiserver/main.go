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

	"github.com/MrEliotA/modelops-studio-saas/pkg/apiserver"
	"github.com/MrEliotA/modelops-studio-saas/pkg/config"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := apiserver.NewServer()
	if err != nil {
		klog.Fatalf("failed to create api server: %v", err)
	}
	if err = server.Run(ctx); err != nil {
		klog.Fatalf("api server exited: %v", err)
	}
}
