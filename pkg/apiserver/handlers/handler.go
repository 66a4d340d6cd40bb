/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/MrEliotA/modelops-studio-saas/pkg/apiserver/utils"
	"github.com/MrEliotA/modelops-studio-saas/pkg/bus"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	"github.com/MrEliotA/modelops-studio-saas/pkg/errors"
	jsonutils "github.com/MrEliotA/modelops-studio-saas/pkg/utils/json"
)

type Handler struct {
	dbClient dbclient.Interface
	bus      bus.Publisher
}

func NewHandler(dbClient dbclient.Interface, publisher bus.Publisher) *Handler {
	return &Handler{
		dbClient: dbClient,
		bus:      publisher,
	}
}

type handlerFunc func(c *gin.Context) (interface{}, error)

func handle(c *gin.Context, fn handlerFunc) {
	result, err := fn(c)
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	status := c.Writer.Status()
	if status < http.StatusOK {
		status = http.StatusOK
	}
	if result == nil {
		c.Status(status)
		return
	}
	c.JSON(status, result)
}

func getBodyFromRequest(c *gin.Context, obj interface{}) error {
	body, err := utils.ReadBody(c.Request)
	if err != nil {
		return errors.NewInternalError(err.Error())
	}
	if len(body) == 0 {
		return errors.NewBadRequest("request body is required")
	}
	if err = jsonutils.UnmarshalWithCheck(body, obj); err != nil {
		return errors.NewBadRequest(err.Error())
	}
	return nil
}

// publishEvent hands an event to the bus without failing the request.
// Consumers that care about the row will see it on the next scheduler tick anyway.
func (h *Handler) publishEvent(subject string, event interface{}) {
	if h.bus == nil {
		return
	}
	if err := h.bus.Publish(subject, event); err != nil {
		klog.ErrorS(err, "failed to publish event", "subject", subject)
	}
}
