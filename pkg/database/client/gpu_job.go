/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"k8s.io/klog/v2"

	v1 "github.com/MrEliotA/modelops-studio-saas/pkg/apis/v1"
	commonerrors "github.com/MrEliotA/modelops-studio-saas/pkg/errors"
)

var (
	getGpuJobCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE job_id = $1 LIMIT 1`, TGpuJob)
	insertGpuJobFormat = `INSERT INTO ` + TGpuJob + ` (%s) VALUES (%s)`

	// Conditional single-row updates. RowsAffected decides who won the race;
	// every transition out of DISPATCHED or RUNNING presents the dispatch token.
	markDispatchedCmd = fmt.Sprintf(`UPDATE %s
		SET status = '%s',
		    gpu_pool_assigned = $1,
		    dispatch_token = $2,
		    dispatched_at = now(),
		    dispatch_attempts = dispatch_attempts + 1,
		    updated_at = now()
		WHERE job_id = $3 AND status = '%s'`, TGpuJob, v1.JobDispatched, v1.JobQueued)

	revertDispatchCmd = fmt.Sprintf(`UPDATE %s
		SET status = '%s',
		    gpu_pool_assigned = NULL,
		    dispatch_token = NULL,
		    dispatched_at = NULL,
		    updated_at = now()
		WHERE job_id = $1 AND status = '%s' AND dispatch_token = $2`, TGpuJob, v1.JobQueued, v1.JobDispatched)

	markRunningCmd = fmt.Sprintf(`UPDATE %s
		SET status = '%s',
		    started_at = now(),
		    updated_at = now()
		WHERE job_id = $1 AND status = '%s' AND dispatch_token = $2`, TGpuJob, v1.JobRunning, v1.JobDispatched)

	markSucceededCmd = fmt.Sprintf(`UPDATE %s
		SET status = '%s',
		    response_json = $1,
		    finished_at = now(),
		    updated_at = now()
		WHERE job_id = $2 AND status = '%s' AND dispatch_token = $3`, TGpuJob, v1.JobSucceeded, v1.JobRunning)

	markFailedFormat = fmt.Sprintf(`UPDATE %s
		SET status = '%s',
		    error = $1,
		    finished_at = now(),
		    updated_at = now()
		WHERE job_id = $2 AND status = '%%s' AND dispatch_token = $3`, TGpuJob, v1.JobFailed)

	listQueuedCandidatesCmd = fmt.Sprintf(`SELECT j.job_id, j.tenant_id, j.project_id, j.gpu_pool_requested,
		    j.isolation_level, j.requested_at,
		    j.priority + COALESCE(p.priority_boost, 0) AS effective_priority
		FROM %s j LEFT JOIN %s p ON p.tenant_id = j.tenant_id
		WHERE j.status = '%s'
		ORDER BY effective_priority DESC, j.requested_at ASC, j.job_id ASC
		LIMIT $1`, TGpuJob, TPolicy, v1.JobQueued)

	tryAdvisoryLockCmd     = `SELECT pg_try_advisory_lock($1)`
	releaseAdvisoryLockCmd = `SELECT pg_advisory_unlock($1)`

	listOrphanedCmd = fmt.Sprintf(`SELECT * FROM %s WHERE status = '%s' AND dispatched_at < $1`,
		TGpuJob, v1.JobDispatched)
	listStaleRunningCmd = fmt.Sprintf(`SELECT * FROM %s WHERE status = '%s' AND started_at < $1`,
		TGpuJob, v1.JobRunning)
)

func (c *Client) InsertGpuJob(ctx context.Context, job *GpuJob) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	if _, err = db.NamedExecContext(ctx, genInsertCommand(*job, insertGpuJobFormat, "id"), job); err != nil {
		klog.ErrorS(err, "failed to insert gpu job", "id", job.JobId)
		return err
	}
	return nil
}

func (c *Client) GetGpuJob(ctx context.Context, jobId string) (*GpuJob, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	jobs := []*GpuJob{}
	if err = db.SelectContext(ctx, &jobs, getGpuJobCmd, jobId); err != nil {
		return nil, err
	}
	if len(jobs) == 0 || jobs[0] == nil {
		return nil, commonerrors.NewNotFound("GpuJob", jobId)
	}
	return jobs[0], nil
}

func (c *Client) ListGpuJobs(ctx context.Context, tenantId, projectId, status string, limit, offset int) ([]*GpuJob, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	conds := sqrl.Eq{"tenant_id": tenantId, "project_id": projectId}
	if status != "" {
		conds["status"] = status
	}
	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TGpuJob).
		Where(conds).
		OrderBy("requested_at desc").
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}
	var jobs []*GpuJob
	ctx2, cancel := context.WithTimeout(ctx, c.RequestTimeout)
	defer cancel()
	err = db.SelectContext(ctx2, &jobs, sql, args...)
	return jobs, err
}

func (c *Client) CountQueuedJobs(ctx context.Context, tenantId string) (int, error) {
	return c.countJobs(ctx, sqrl.Eq{"tenant_id": tenantId, "status": string(v1.JobQueued)})
}

// CountInFlight counts DISPATCHED and RUNNING jobs assigned to the given
// pool. An empty isolation matches any level (MIG has no isolation split).
func (c *Client) CountInFlight(ctx context.Context, pool, isolation string) (int, error) {
	query := sqrl.And{
		sqrl.Eq{"gpu_pool_assigned": pool},
		sqrl.Eq{"status": []string{string(v1.JobDispatched), string(v1.JobRunning)}},
	}
	if isolation != "" {
		query = append(query, sqrl.Eq{"isolation_level": isolation})
	}
	return c.countJobs(ctx, query)
}

func (c *Client) CountTenantInFlight(ctx context.Context, tenantId, pool string) (int, error) {
	return c.countJobs(ctx, sqrl.Eq{
		"tenant_id":         tenantId,
		"gpu_pool_assigned": pool,
		"status":            []string{string(v1.JobDispatched), string(v1.JobRunning)},
	})
}

func (c *Client) countJobs(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TGpuJob).Where(query).ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}

// ListQueuedCandidates returns QUEUED jobs in global dispatch order:
// effective priority desc, then requested_at asc, then job_id asc.
func (c *Client) ListQueuedCandidates(ctx context.Context, limit int) ([]*QueuedCandidate, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var candidates []*QueuedCandidate
	ctx2, cancel := context.WithTimeout(ctx, c.RequestTimeout)
	defer cancel()
	err = db.SelectContext(ctx2, &candidates, listQueuedCandidatesCmd, limit)
	return candidates, err
}

func (c *Client) MarkDispatched(ctx context.Context, jobId, pool, token string) (bool, error) {
	return c.execConditional(ctx, markDispatchedCmd, pool, token, jobId)
}

func (c *Client) RevertDispatch(ctx context.Context, jobId, token string) (bool, error) {
	return c.execConditional(ctx, revertDispatchCmd, jobId, token)
}

func (c *Client) MarkRunning(ctx context.Context, jobId, token string) (bool, error) {
	return c.execConditional(ctx, markRunningCmd, jobId, token)
}

func (c *Client) MarkSucceeded(ctx context.Context, jobId, token string, responseJson []byte) (bool, error) {
	return c.execConditional(ctx, markSucceededCmd, responseJson, jobId, token)
}

// MarkFailed moves a RUNNING job to FAILED with the given error string.
func (c *Client) MarkFailed(ctx context.Context, jobId, token, errMsg string) (bool, error) {
	cmd := fmt.Sprintf(markFailedFormat, v1.JobRunning)
	return c.execConditional(ctx, cmd, errMsg, jobId, token)
}

// FailDispatched moves a DISPATCHED job straight to FAILED. Used when the
// dispatch attempt budget or the redelivery cap is exhausted.
func (c *Client) FailDispatched(ctx context.Context, jobId, token, errMsg string) (bool, error) {
	cmd := fmt.Sprintf(markFailedFormat, v1.JobDispatched)
	return c.execConditional(ctx, cmd, errMsg, jobId, token)
}

func (c *Client) execConditional(ctx context.Context, cmd string, args ...interface{}) (bool, error) {
	db, err := c.getDB()
	if err != nil {
		return false, err
	}
	result, err := db.ExecContext(ctx, cmd, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// TryAdvisoryLock grabs a session advisory lock without blocking. Conditional
// updates already make concurrent schedulers safe; the lock just keeps
// replicas from burning ticks on the same rows.
func (c *Client) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	db, err := c.getDB()
	if err != nil {
		return false, err
	}
	var locked bool
	err = db.GetContext(ctx, &locked, tryAdvisoryLockCmd, key)
	return locked, err
}

func (c *Client) ReleaseAdvisoryLock(ctx context.Context, key int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	var released bool
	return db.GetContext(ctx, &released, releaseAdvisoryLockCmd, key)
}

func (c *Client) ListOrphanedDispatches(ctx context.Context, before time.Time) ([]*GpuJob, error) {
	return c.selectJobs(ctx, listOrphanedCmd, before)
}

func (c *Client) ListStaleRunning(ctx context.Context, before time.Time) ([]*GpuJob, error) {
	return c.selectJobs(ctx, listStaleRunningCmd, before)
}

func (c *Client) selectJobs(ctx context.Context, cmd string, args ...interface{}) ([]*GpuJob, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var jobs []*GpuJob
	err = db.SelectContext(ctx, &jobs, cmd, args...)
	return jobs, err
}
