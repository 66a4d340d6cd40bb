/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"k8s.io/klog/v2"

	commonerrors "github.com/MrEliotA/modelops-studio-saas/pkg/errors"
)

const pqUniqueViolation = "23505"

var (
	insertIdemFormat = `INSERT INTO ` + TIdem + ` (%s) VALUES (%s)`
	getIdemCmd       = fmt.Sprintf(`SELECT * FROM %s
		WHERE tenant_id = $1 AND project_id = $2 AND method = $3 AND path = $4 AND idem_key = $5
		LIMIT 1`, TIdem)
	completeIdemCmd = fmt.Sprintf(`UPDATE %s
		SET status_code = $1,
		    response_headers = $2,
		    response_body = $3
		WHERE id = $4`, TIdem)
	deleteIdemCmd        = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TIdem)
	deleteExpiredIdemCmd = fmt.Sprintf(`DELETE FROM %s WHERE expires_at < $1`, TIdem)
)

// InsertIdempotencyPlaceholder inserts the key row with a null status_code.
// A unique violation means another request holds or completed the key.
func (c *Client) InsertIdempotencyPlaceholder(ctx context.Context, record *IdempotencyKey) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, genInsertCommand(*record, insertIdemFormat, "id"), record)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return commonerrors.NewAlreadyExist("idempotency key already exists")
		}
		klog.ErrorS(err, "failed to insert idempotency placeholder", "key", record.IdemKey)
		return err
	}
	return nil
}

func (c *Client) GetIdempotencyKey(ctx context.Context, tenantId, projectId, method, path, key string) (*IdempotencyKey, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	records := []*IdempotencyKey{}
	if err = db.SelectContext(ctx, &records, getIdemCmd, tenantId, projectId, method, path, key); err != nil {
		return nil, err
	}
	if len(records) == 0 || records[0] == nil {
		return nil, commonerrors.NewNotFoundWithMessage("idempotency key not found")
	}
	return records[0], nil
}

// CompleteIdempotencyKey stores the response snapshot on the placeholder row.
func (c *Client) CompleteIdempotencyKey(ctx context.Context, id int64, statusCode int, headers string, body []byte) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, completeIdemCmd, statusCode, headers, body, id)
	return err
}

// DeleteIdempotencyKey removes a placeholder whose response could not be
// snapshotted, so a later retry re-executes the request.
func (c *Client) DeleteIdempotencyKey(ctx context.Context, id int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, deleteIdemCmd, id)
	return err
}

func (c *Client) DeleteExpiredIdempotencyKeys(ctx context.Context, now time.Time) (int64, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	result, err := db.ExecContext(ctx, deleteExpiredIdemCmd, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
