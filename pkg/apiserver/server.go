/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/MrEliotA/modelops-studio-saas/pkg/apiserver/handlers"
	"github.com/MrEliotA/modelops-studio-saas/pkg/bus"
	"github.com/MrEliotA/modelops-studio-saas/pkg/config"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	"github.com/MrEliotA/modelops-studio-saas/pkg/idempotency"
	"github.com/MrEliotA/modelops-studio-saas/pkg/tenancy"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	busClient  *bus.Client
	dbClient   *dbclient.Client
	sweeper    *idempotency.Sweeper
}

func NewServer() (*Server, error) {
	dbClient := dbclient.NewClient()
	if dbClient == nil {
		return nil, fmt.Errorf("failed to initialize db client")
	}

	busClient, err := bus.Connect(config.GetBusURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect event bus: %v", err)
	}
	if err = busClient.EnsureStreams(); err != nil {
		return nil, fmt.Errorf("failed to ensure streams: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.Use(tenancy.Middleware(config.GetTenancySkipPaths()))
	engine.Use(idempotency.Middleware(dbClient, idempotency.Options{
		TTL:          time.Duration(config.GetIdempotencyTTLSecond()) * time.Second,
		MaxBodyBytes: config.GetIdempotencyMaxBodyBytes(),
	}))

	handler := handlers.NewHandler(dbClient, busClient)
	initRouters(engine, handler)

	return &Server{
		engine:    engine,
		busClient: busClient,
		dbClient:  dbClient,
		sweeper: idempotency.NewSweeper(dbClient,
			time.Duration(config.GetIdempotencySweepSecond())*time.Second),
	}, nil
}

func (s *Server) Run(ctx context.Context) error {
	go s.sweeper.Run(ctx)

	addr := fmt.Sprintf(":%d", config.GetServerPort())
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}
	errCh := make(chan error, 1)
	go func() {
		klog.Infof("api server listening on %s", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	klog.Infof("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		klog.ErrorS(err, "failed to shut down http server")
	}
	s.busClient.Close()
	s.dbClient.Close()
	return nil
}
