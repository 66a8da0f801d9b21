package repository

import (
	"context"
	"time"

	"manuscript-pipeline/internal/domain/model"
)

type JobRepository interface {
	// Upsert inserts or resets the single job row for job.TargetID. On
	// conflict the existing id is kept and written back into job.
	Upsert(ctx context.Context, tx Tx, job *model.Job) error

	// ClaimNext atomically moves the oldest eligible pending job to RUNNING
	// and returns it. Returns domain.ErrNotFound when nothing is eligible.
	ClaimNext(ctx context.Context) (*model.Job, error)

	// Complete and Fail only touch a RUNNING row with the same generation;
	// otherwise they return domain.ErrStaleJob.
	Complete(ctx context.Context, tx Tx, job *model.Job) error
	Fail(ctx context.Context, tx Tx, job *model.Job, outcome model.FailureOutcome, errMsg string) error

	FindByTarget(ctx context.Context, tx Tx, targetID string) (*model.Job, error)

	// ListStuck returns RUNNING jobs started before cutoff.
	ListStuck(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Job, error)
}
