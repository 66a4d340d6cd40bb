/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package options

import (
	"flag"
	"fmt"
)

type Options struct {
	Config        string
	KubeConfig    string
	MigrationsDir string
}

func (opt *Options) InitFlags() error {
	if opt == nil {
		return fmt.Errorf("the options is not initialized")
	}
	flag.StringVar(&opt.Config, "config", "", "Path to the modelops config.yaml, optional when env vars are set")
	flag.StringVar(&opt.KubeConfig, "kube_config", "", "Path to the kubectl config, in-cluster config is used when empty")
	flag.StringVar(&opt.MigrationsDir, "migrations_dir", "migrations", "Path to the sql migration files")
	flag.Parse()
	return nil
}
