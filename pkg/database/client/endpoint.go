/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"errors"
	"fmt"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"k8s.io/klog/v2"

	commonerrors "github.com/MrEliotA/modelops-studio-saas/pkg/errors"
)

var (
	getEndpointCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE endpoint_id = $1 LIMIT 1`, TEp)
	insertEndpointFormat = `INSERT INTO ` + TEp + ` (%s) VALUES (%s)`

	updateEndpointCmd = fmt.Sprintf(`UPDATE %s
		SET runtime = :runtime,
		    model_version_id = :model_version_id,
		    traffic = :traffic,
		    autoscaling = :autoscaling,
		    runtime_config = :runtime_config,
		    status = :status,
		    error = :error,
		    updated_at = now()
		WHERE endpoint_id = :endpoint_id`, TEp)

	setEndpointStatusCmd = fmt.Sprintf(`UPDATE %s
		SET status = $1,
		    url = $2,
		    error = $3,
		    updated_at = now()
		WHERE endpoint_id = $4`, TEp)

	// Renaming releases the (tenant_id, project_id, name) uniqueness so the
	// name can be reused after a soft delete.
	renameDeletedCmd = fmt.Sprintf(`UPDATE %s
		SET name = name || '.deleted.' || substr(endpoint_id, 1, 8),
		    is_deleted = true,
		    updated_at = now()
		WHERE endpoint_id = $1 AND is_deleted = false`, TEp)

	getModelVersionCmd = fmt.Sprintf(`SELECT * FROM %s WHERE model_version_id = $1 LIMIT 1`, TModel)
)

func (c *Client) InsertEndpoint(ctx context.Context, endpoint *Endpoint) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, genInsertCommand(*endpoint, insertEndpointFormat, "id"), endpoint)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return commonerrors.NewAlreadyExist(fmt.Sprintf("endpoint %s already exists", endpoint.Name))
		}
		klog.ErrorS(err, "failed to insert endpoint", "id", endpoint.EndpointId)
		return err
	}
	return nil
}

func (c *Client) GetEndpoint(ctx context.Context, endpointId string) (*Endpoint, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	endpoints := []*Endpoint{}
	if err = db.SelectContext(ctx, &endpoints, getEndpointCmd, endpointId); err != nil {
		return nil, err
	}
	if len(endpoints) == 0 || endpoints[0] == nil {
		return nil, commonerrors.NewNotFound("Endpoint", endpointId)
	}
	return endpoints[0], nil
}

func (c *Client) ListEndpoints(ctx context.Context, tenantId, projectId string, limit, offset int) ([]*Endpoint, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TEp).
		Where(sqrl.Eq{"tenant_id": tenantId, "project_id": projectId, "is_deleted": false}).
		OrderBy("created_at desc").
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}
	var endpoints []*Endpoint
	err = db.SelectContext(ctx, &endpoints, sql, args...)
	return endpoints, err
}

// UpdateEndpointIntent rewrites the serving fields of an endpoint row.
func (c *Client) UpdateEndpointIntent(ctx context.Context, endpoint *Endpoint) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	if _, err = db.NamedExecContext(ctx, updateEndpointCmd, endpoint); err != nil {
		klog.ErrorS(err, "failed to update endpoint", "id", endpoint.EndpointId)
		return err
	}
	return nil
}

func (c *Client) SetEndpointStatus(ctx context.Context, endpointId, status, url, errMsg string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, setEndpointStatusCmd, status, nullableStr(url), nullableStr(errMsg), endpointId)
	if err != nil {
		klog.ErrorS(err, "failed to set endpoint status", "id", endpointId, "status", status)
	}
	return err
}

// SoftDeleteEndpoint renames the endpoint and flags it deleted.
func (c *Client) SoftDeleteEndpoint(ctx context.Context, endpointId string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, renameDeletedCmd, endpointId)
	if err != nil {
		klog.ErrorS(err, "failed to soft delete endpoint", "id", endpointId)
	}
	return err
}

func (c *Client) GetModelVersion(ctx context.Context, modelVersionId string) (*ModelVersion, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	versions := []*ModelVersion{}
	if err = db.SelectContext(ctx, &versions, getModelVersionCmd, modelVersionId); err != nil {
		return nil, err
	}
	if len(versions) == 0 || versions[0] == nil {
		return nil, commonerrors.NewNotFound("ModelVersion", modelVersionId)
	}
	return versions[0], nil
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
