// File: internal/usecase/queue_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"manuscript-pipeline/internal/domain"
	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/repository"
	"manuscript-pipeline/internal/infra/metrics"
)

// Compile-time check
var _ QueueUseCase = (*queueUC)(nil)

type QueueUseCase interface {
	// Enqueue (re)starts processing of targetID. Any previous job and record
	// state is reset, and in-flight work for the old generation is orphaned.
	Enqueue(ctx context.Context, targetID string, p model.JobPayload) (*model.Job, error)
	ReapStuck(ctx context.Context, olderThan time.Duration) (int, error)
}

// reapedError is stored on jobs whose worker vanished mid-run.
const reapedError = "Job did not finish in time and was reclaimed"

type queueUC struct {
	jobs        repository.JobRepository
	records     repository.ProcessingRecordRepository
	tm          repository.TransactionManager
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
	log         *zerolog.Logger
}

func NewQueueUseCase(
	jobs repository.JobRepository,
	records repository.ProcessingRecordRepository,
	tm repository.TransactionManager,
	maxAttempts int,
	backoff time.Duration,
	log *zerolog.Logger,
) *queueUC {
	l := log.With().Str("component", "QueueUseCase").Logger()
	return &queueUC{
		jobs:        jobs,
		records:     records,
		tm:          tm,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		now:         time.Now,
		log:         &l,
	}
}

func (q *queueUC) Enqueue(ctx context.Context, targetID string, p model.JobPayload) (*model.Job, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" || p == nil {
		return nil, domain.ErrInvalidArgument
	}

	now := q.now()
	job := model.NewJob(targetID, p, q.maxAttempts, now)
	rec := model.NewPendingRecord(targetID, job.Generation, now)

	err := q.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := q.jobs.Upsert(ctx, tx, job); err != nil {
			return fmt.Errorf("upsert job: %w", err)
		}
		if err := q.records.Reset(ctx, tx, rec); err != nil {
			return fmt.Errorf("reset record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	q.log.Info().
		Str("target_id", targetID).
		Str("job_id", job.ID).
		Str("job_type", string(job.Type)).
		Str("generation", job.Generation).
		Msg("job enqueued")
	return job, nil
}

// ReapStuck fails RUNNING jobs older than olderThan as a retryable failure.
func (q *queueUC) ReapStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	now := q.now()
	stuck, err := q.jobs.ListStuck(ctx, nil, now.Add(-olderThan), 100)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, job := range stuck {
		outcome := job.FailureOutcome(now, false, q.backoff)
		err := q.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := q.jobs.Fail(ctx, tx, job, outcome, reapedError); err != nil {
				return err
			}
			return q.records.UpdateOCR(ctx, tx, job.TargetID, job.Generation, recordUpdateFor(outcome, reapedError))
		})
		if errors.Is(err, domain.ErrStaleJob) {
			continue
		}
		if err != nil {
			q.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to reap stuck job")
			continue
		}
		reaped++
		metrics.IncJobReaped(string(outcome.Status))
		q.log.Warn().
			Str("job_id", job.ID).
			Str("target_id", job.TargetID).
			Str("status", string(outcome.Status)).
			Msg("stuck job reclaimed")
	}
	return reaped, nil
}

// recordUpdateFor mirrors a job failure onto the processing record: a retry
// puts it back to PENDING with no error; exhaustion stores the summary.
func recordUpdateFor(outcome model.FailureOutcome, msg string) model.OCRUpdate {
	if outcome.WillRetry {
		return model.OCRUpdate{Status: model.OCRStatusPending}
	}
	return model.OCRUpdate{Status: model.OCRStatusFailed, Error: &msg}
}
