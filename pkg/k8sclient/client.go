/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package k8sclient

import (
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	defaultQPS   = 50
	defaultBurst = 100
)

// GetRestConfig builds the REST configuration. An empty kubeconfig path
// selects the in-cluster config.
func GetRestConfig(kubeconfig string) (*rest.Config, error) {
	var cfg *rest.Config
	var err error
	if kubeconfig != "" {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	} else {
		cfg, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, err
	}
	cfg.QPS = defaultQPS
	cfg.Burst = defaultBurst
	return cfg, nil
}

// NewClientSet creates a Kubernetes clientset for the given kubeconfig path.
func NewClientSet(kubeconfig string) (kubernetes.Interface, error) {
	cfg, err := GetRestConfig(kubeconfig)
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(cfg)
}

// NewDynamicClient creates a dynamic client for unstructured resources.
func NewDynamicClient(kubeconfig string) (dynamic.Interface, error) {
	cfg, err := GetRestConfig(kubeconfig)
	if err != nil {
		return nil, err
	}
	return dynamic.NewForConfig(cfg)
}
