/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	apiutils "github.com/MrEliotA/modelops-studio-saas/pkg/apiserver/utils"
	dbclient "github.com/MrEliotA/modelops-studio-saas/pkg/database/client"
	dbutils "github.com/MrEliotA/modelops-studio-saas/pkg/database/utils"
	commonerrors "github.com/MrEliotA/modelops-studio-saas/pkg/errors"
	"github.com/MrEliotA/modelops-studio-saas/pkg/tenancy"
	jsonutils "github.com/MrEliotA/modelops-studio-saas/pkg/utils/json"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "X-Idempotent-Replayed"
)

// Store is the subset of the db client the middleware needs.
type Store interface {
	InsertIdempotencyPlaceholder(ctx context.Context, record *dbclient.IdempotencyKey) error
	GetIdempotencyKey(ctx context.Context, tenantId, projectId, method, path, key string) (*dbclient.IdempotencyKey, error)
	CompleteIdempotencyKey(ctx context.Context, id int64, statusCode int, headers string, body []byte) error
	DeleteIdempotencyKey(ctx context.Context, id int64) error
}

type Options struct {
	TTL          time.Duration
	MaxBodyBytes int
}

// RequestHash fingerprints the request so a reused key with a different
// body is detected.
func RequestHash(body []byte, method, path string) string {
	h := sha256.New()
	h.Write(body)
	h.Write([]byte("|" + method + "|" + path))
	return hex.EncodeToString(h.Sum(nil))
}

// Middleware implements snapshot/replay idempotency for write requests that
// carry an Idempotency-Key header. The placeholder insert under the unique
// index decides which of two concurrent identical requests executes.
func Middleware(store Store, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || !isWriteMethod(c.Request.Method) {
			c.Next()
			return
		}
		identity, err := tenancy.FromContext(c)
		if err != nil {
			apiutils.AbortWithApiError(c, err)
			return
		}
		body, err := apiutils.ReadBody(c.Request)
		if err != nil {
			apiutils.AbortWithApiError(c, commonerrors.NewBadRequest(err.Error()))
			return
		}
		method := c.Request.Method
		path := c.Request.URL.Path
		hash := RequestHash(body, method, path)
		ctx := c.Request.Context()

		record := &dbclient.IdempotencyKey{
			TenantId:    identity.TenantId,
			ProjectId:   identity.ProjectId,
			Method:      method,
			Path:        path,
			IdemKey:     key,
			RequestHash: hash,
			CreatedAt:   dbutils.NullTime(time.Now()),
			ExpiresAt:   dbutils.NullTime(time.Now().Add(opts.TTL)),
		}
		err = store.InsertIdempotencyPlaceholder(ctx, record)
		if err == nil {
			execute(c, store, opts, identity, method, path, key)
			return
		}
		if !commonerrors.IsAlreadyExist(err) {
			apiutils.AbortWithApiError(c, err)
			return
		}

		prior, err := store.GetIdempotencyKey(ctx, identity.TenantId, identity.ProjectId, method, path, key)
		if err != nil {
			apiutils.AbortWithApiError(c, err)
			return
		}
		if prior.RequestHash != hash {
			apiutils.AbortWithApiError(c, commonerrors.NewIdempotencyConflict(
				fmt.Sprintf("idempotency key %s was used with a different request", key)))
			return
		}
		if !prior.StatusCode.Valid {
			apiutils.AbortWithApiError(c, commonerrors.NewIdempotencyInProgress(
				fmt.Sprintf("request with idempotency key %s is still in progress", key)))
			return
		}
		replay(c, prior)
	}
}

// execute runs the handler chain and snapshots its response on the
// placeholder row.
func execute(c *gin.Context, store Store, opts Options, identity *tenancy.Identity, method, path, key string) {
	writer := &captureWriter{ResponseWriter: c.Writer}
	c.Writer = writer
	c.Next()

	ctx := context.WithoutCancel(c.Request.Context())
	prior, err := store.GetIdempotencyKey(ctx, identity.TenantId, identity.ProjectId, method, path, key)
	if err != nil {
		klog.ErrorS(err, "failed to load idempotency placeholder", "key", key)
		return
	}
	if writer.body.Len() > opts.MaxBodyBytes {
		// Too large to snapshot; drop the placeholder so a retry re-executes.
		if err = store.DeleteIdempotencyKey(ctx, prior.Id); err != nil {
			klog.ErrorS(err, "failed to drop oversized idempotency snapshot", "key", key)
		}
		return
	}
	headers := map[string]string{"Content-Type": writer.Header().Get("Content-Type")}
	err = store.CompleteIdempotencyKey(ctx, prior.Id, writer.Status(),
		string(jsonutils.MarshalSilently(headers)), writer.body.Bytes())
	if err != nil {
		klog.ErrorS(err, "failed to complete idempotency record", "key", key)
	}
}

// replay writes the stored response bytes unchanged.
func replay(c *gin.Context, record *dbclient.IdempotencyKey) {
	headers := map[string]string{}
	if record.ResponseHeaders.Valid {
		_ = jsonutils.UnmarshalWithCheck([]byte(record.ResponseHeaders.String), &headers)
	}
	contentType := headers["Content-Type"]
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	c.Header(HeaderReplayed, "true")
	c.Data(int(record.StatusCode.Int64), contentType, record.ResponseBody)
	c.Abort()
}

func isWriteMethod(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
