package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"manuscript-pipeline/internal/domain"
	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *jobRepo {
	return &jobRepo{pool: pool, tm: tm}
}

const jobColumns = `id, target_id, job_type, status, payload, attempts, max_attempts,
  scheduled_at, started_at, completed_at, last_error, generation, created_at, updated_at`

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		j       model.Job
		jobType string
		status  string
		payload []byte
	)
	err := row.Scan(
		&j.ID, &j.TargetID, &jobType, &status, &payload, &j.Attempts, &j.MaxAttempts,
		&j.ScheduledAt, &j.StartedAt, &j.CompletedAt, &j.LastError, &j.Generation, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, scanErr(err)
	}
	j.Type = model.JobType(jobType)
	j.Status = model.JobStatus(status)
	p, err := model.DecodePayload(j.Type, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	j.Payload = p
	return &j, nil
}

func ensureTarget(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, targetID string) error {
	_, err := execSQL(ctx, pool, tx, `INSERT INTO targets (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, targetID)
	return err
}

func (r *jobRepo) Upsert(ctx context.Context, tx repository.Tx, job *model.Job) error {
	raw, err := model.EncodePayload(job.Payload)
	if err != nil {
		return err
	}
	if err := ensureTarget(ctx, r.pool, tx, job.TargetID); err != nil {
		return err
	}

	const q = `
INSERT INTO processing_jobs (id, target_id, job_type, status, payload, attempts, max_attempts,
  scheduled_at, started_at, completed_at, last_error, generation, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5::jsonb, 0, $6, $7, NULL, NULL, NULL, $8, $9, $9)
ON CONFLICT (target_id) DO UPDATE SET
  job_type = EXCLUDED.job_type,
  status = EXCLUDED.status,
  payload = EXCLUDED.payload,
  attempts = 0,
  max_attempts = EXCLUDED.max_attempts,
  scheduled_at = EXCLUDED.scheduled_at,
  started_at = NULL,
  completed_at = NULL,
  last_error = NULL,
  generation = EXCLUDED.generation,
  updated_at = EXCLUDED.updated_at
RETURNING id, created_at;`

	row, err := pickRow(ctx, r.pool, tx, q,
		job.ID, job.TargetID, string(job.Type), string(model.JobStatusPending), string(raw),
		job.MaxAttempts, job.ScheduledAt, job.Generation, job.UpdatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&job.ID, &job.CreatedAt); err != nil {
		return scanErr(err)
	}
	job.Status = model.JobStatusPending
	job.Attempts = 0
	job.StartedAt, job.CompletedAt, job.LastError = nil, nil, nil
	return nil
}

func (r *jobRepo) ClaimNext(ctx context.Context) (*model.Job, error) {
	var job *model.Job

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const pick = `
SELECT id
FROM processing_jobs
WHERE status = 'PENDING'
  AND attempts < max_attempts
  AND scheduled_at <= now()
ORDER BY scheduled_at, created_at
LIMIT 1
FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, r.pool, tx, pick)
		if err != nil {
			return err
		}
		var id string
		if err := row.Scan(&id); err != nil {
			return scanErr(err)
		}

		const mark = `
UPDATE processing_jobs
SET status = 'RUNNING', started_at = now(), attempts = attempts + 1, updated_at = now()
WHERE id = $1
RETURNING ` + jobColumns + `;`

		row, err = pickRow(ctx, r.pool, tx, mark, id)
		if err != nil {
			return err
		}
		job, err = scanJob(row)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRepo) Complete(ctx context.Context, tx repository.Tx, job *model.Job) error {
	const q = `
UPDATE processing_jobs
SET status = 'DONE', completed_at = now(), last_error = NULL, updated_at = now()
WHERE id = $1 AND generation = $2 AND status = 'RUNNING';`

	tag, err := execSQL(ctx, r.pool, tx, q, job.ID, job.Generation)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleJob
	}
	now := time.Now()
	job.Status = model.JobStatusDone
	job.CompletedAt = &now
	job.LastError = nil
	return nil
}

func (r *jobRepo) Fail(ctx context.Context, tx repository.Tx, job *model.Job, outcome model.FailureOutcome, errMsg string) error {
	const q = `
UPDATE processing_jobs
SET status = $3::text,
    scheduled_at = $4,
    last_error = $5,
    completed_at = CASE WHEN $3::text = 'EXHAUSTED' THEN now() ELSE NULL END,
    updated_at = now()
WHERE id = $1 AND generation = $2 AND status = 'RUNNING';`

	tag, err := execSQL(ctx, r.pool, tx, q, job.ID, job.Generation, string(outcome.Status), outcome.ScheduledAt, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleJob
	}
	job.Status = outcome.Status
	job.ScheduledAt = outcome.ScheduledAt
	job.LastError = &errMsg
	return nil
}

func (r *jobRepo) FindByTarget(ctx context.Context, tx repository.Tx, targetID string) (*model.Job, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM processing_jobs WHERE target_id = $1`, targetID)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *jobRepo) ListStuck(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + jobColumns + `
FROM processing_jobs
WHERE status = 'RUNNING' AND started_at < $1
ORDER BY started_at
LIMIT $2`

	rows, err := queryRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, MapError(rows.Err())
}
