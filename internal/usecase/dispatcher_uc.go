// File: internal/usecase/dispatcher_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"manuscript-pipeline/internal/domain"
	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/repository"
	portuc "manuscript-pipeline/internal/domain/ports/usecase"
	"manuscript-pipeline/internal/infra/logging"
	"manuscript-pipeline/internal/infra/metrics"
)

// Compile-time check
var _ portuc.Dispatcher = (*DispatcherUseCase)(nil)

// TextReconstructor cleans raw extracted text.
type TextReconstructor interface {
	Reconstruct(ctx context.Context, raw string) (string, error)
}

// finalWriteTimeout bounds the bookkeeping done after the invocation
// context has expired.
const finalWriteTimeout = 10 * time.Second

var errSuperseded = errors.New("job superseded by a newer enqueue")

// DispatcherUseCase claims one job per invocation and drives it through
// extraction and reconstruction.
type DispatcherUseCase struct {
	jobs          repository.JobRepository
	records       repository.ProcessingRecordRepository
	tm            repository.TransactionManager
	extractors    ExtractorFactory
	reconstructor TextReconstructor
	backoff       time.Duration
	timeout       time.Duration
	now           func() time.Time
	log           *zerolog.Logger
}

func NewDispatcherUseCase(
	jobs repository.JobRepository,
	records repository.ProcessingRecordRepository,
	tm repository.TransactionManager,
	extractors ExtractorFactory,
	reconstructor TextReconstructor,
	backoff, invocationTimeout time.Duration,
	log *zerolog.Logger,
) *DispatcherUseCase {
	l := log.With().Str("component", "Dispatcher").Logger()
	return &DispatcherUseCase{
		jobs:          jobs,
		records:       records,
		tm:            tm,
		extractors:    extractors,
		reconstructor: reconstructor,
		backoff:       backoff,
		timeout:       invocationTimeout,
		now:           time.Now,
		log:           &l,
	}
}

func (d *DispatcherUseCase) RunOnce(ctx context.Context) (portuc.DispatchResult, error) {
	defer logging.TraceDuration(d.log, "Dispatcher.RunOnce")()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	job, err := d.jobs.ClaimNext(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return portuc.DispatchResult{Outcome: portuc.DispatchNoWork}, nil
	}
	if err != nil {
		return portuc.DispatchResult{}, fmt.Errorf("claim job: %w", err)
	}
	metrics.IncJobClaimed(string(job.Type))

	ctx = logging.WithJobID(ctx, job.ID)
	ctx = logging.WithTargetID(ctx, job.TargetID)
	ctx = logging.WithJobType(ctx, string(job.Type))
	log := logging.With(ctx, d.log)
	log.Info().Int("attempt", job.Attempts).Int("max_attempts", job.MaxAttempts).Msg("job claimed")

	res := portuc.DispatchResult{JobID: job.ID, TargetID: job.TargetID, JobType: string(job.Type)}
	start := time.Now()

	text, err := d.process(ctx, job)
	if err == nil {
		err = d.succeed(ctx, job, text)
	}
	switch {
	case err == nil:
		metrics.IncJobProcessed(string(job.Type), string(model.JobStatusDone))
		log.Info().Dur("duration", time.Since(start)).Msg("job done")
		res.Outcome = portuc.DispatchSuccess
		return res, nil
	case errors.Is(err, errSuperseded), errors.Is(err, domain.ErrStaleJob):
		log.Warn().Msg("job superseded; result discarded")
		res.Outcome = portuc.DispatchSuperseded
		return res, nil
	}

	return d.fail(ctx, job, res, err)
}

// process runs the extraction and reconstruction stages and returns the
// reconstructed text.
func (d *DispatcherUseCase) process(ctx context.Context, job *model.Job) (string, error) {
	if err := d.updateRecord(ctx, job, model.OCRUpdate{Status: model.OCRStatusProcessing}); err != nil {
		return "", err
	}

	ex, err := d.extractors.For(job.Type)
	if err != nil {
		return "", err
	}
	stageStart := time.Now()
	raw, err := safeExtract(ctx, ex, job.Payload)
	metrics.ObserveStage("extract", time.Since(stageStart).Milliseconds(), err == nil)
	if err != nil {
		return "", err
	}

	if err := d.updateRecord(ctx, job, model.OCRUpdate{Status: model.OCRStatusReconstructing, RawText: &raw}); err != nil {
		return "", err
	}
	return d.reconstructor.Reconstruct(ctx, raw)
}

// succeed stores the text and completes the job in one transaction.
func (d *DispatcherUseCase) succeed(ctx context.Context, job *model.Job, text string) error {
	return d.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		err := d.records.UpdateOCR(ctx, tx, job.TargetID, job.Generation, model.OCRUpdate{
			Status:            model.OCRStatusDone,
			ReconstructedText: &text,
		})
		if err != nil {
			return err
		}
		return d.jobs.Complete(ctx, tx, job)
	})
}

func (d *DispatcherUseCase) updateRecord(ctx context.Context, job *model.Job, u model.OCRUpdate) error {
	err := d.records.UpdateOCR(ctx, nil, job.TargetID, job.Generation, u)
	if errors.Is(err, domain.ErrStaleJob) {
		return errSuperseded
	}
	return err
}

// fail classifies err, reschedules or exhausts the job and mirrors the
// outcome onto the record. Writes use a detached context since ctx may
// already be past its deadline.
func (d *DispatcherUseCase) fail(ctx context.Context, job *model.Job, res portuc.DispatchResult, cause error) (portuc.DispatchResult, error) {
	log := logging.With(ctx, d.log)
	nonRetryable := IsNonRetryable(cause)
	msg := Summarize(cause)
	if errors.Is(cause, context.DeadlineExceeded) && ctx.Err() != nil {
		msg = "Processing timed out: " + msg
	}
	outcome := job.FailureOutcome(d.now(), nonRetryable, d.backoff)

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancel()

	err := d.tm.WithTx(wctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := d.jobs.Fail(ctx, tx, job, outcome, msg); err != nil {
			return err
		}
		return d.records.UpdateOCR(ctx, tx, job.TargetID, job.Generation, recordUpdateFor(outcome, msg))
	})
	if errors.Is(err, domain.ErrStaleJob) {
		log.Warn().Str("error", msg).Msg("job superseded while failing; result discarded")
		res.Outcome = portuc.DispatchSuperseded
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("record job failure: %w", err)
	}

	metrics.IncJobProcessed(string(job.Type), string(outcome.Status))
	log.Error().
		Err(cause).
		Int("attempt", job.Attempts).
		Int("max_attempts", job.MaxAttempts).
		Bool("non_retryable", nonRetryable).
		Bool("will_retry", outcome.WillRetry).
		Msg("job failed")

	res.Outcome = portuc.DispatchFailed
	res.Error = msg
	res.WillRetry = outcome.WillRetry
	res.NextAttemptIn = outcome.NextAttemptIn
	return res, nil
}

// safeExtract turns an extractor panic into a retryable error.
func safeExtract(ctx context.Context, ex Extractor, p model.JobPayload) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return ex.Extract(ctx, p)
}
