/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/MrEliotA/modelops-studio-saas/pkg/config"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
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

	db := dbclient.NewClient()
	if db == nil {
		klog.Fatalf("failed to initialize db client")
	}
	defer db.Close()

	if err := db.RunMigrations(context.Background(), opt.MigrationsDir); err != nil {
		klog.Fatalf("failed to run migrations: %v", err)
	}
	klog.Infof("migrations applied")
}
