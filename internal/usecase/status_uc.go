// File: internal/usecase/status_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"manuscript-pipeline/internal/domain"
	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/adapter"
	"manuscript-pipeline/internal/domain/ports/repository"
)

// Compile-time check
var _ StatusUseCase = (*statusUC)(nil)

type StatusUseCase interface {
	GetStatus(ctx context.Context, targetID string) (*StatusView, error)
	// EnqueueFromMedia derives the job from the target's uploaded media and
	// enqueues it. Returns domain.ErrNoMedia when nothing is processable.
	EnqueueFromMedia(ctx context.Context, targetID string) (*model.Job, error)
}

type JobView struct {
	Status      model.JobStatus `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	NextRetryAt *time.Time      `json:"nextRetryAt"`
	LastError   *string         `json:"lastError"`
}

type StatusView struct {
	TargetID          string                  `json:"targetId"`
	OCRStatus         model.OCRStatus         `json:"ocrStatus"`
	TranslationStatus model.TranslationStatus `json:"translationStatus"`
	OCRError          *string                 `json:"ocrError"`
	Job               *JobView                `json:"job"`
}

const healLockTTL = 30 * time.Second

type statusUC struct {
	records repository.ProcessingRecordRepository
	jobs    repository.JobRepository
	media   repository.MediaRepository
	queue   QueueUseCase
	locker  adapter.Locker
	log     *zerolog.Logger
}

func NewStatusUseCase(
	records repository.ProcessingRecordRepository,
	jobs repository.JobRepository,
	media repository.MediaRepository,
	queue QueueUseCase,
	locker adapter.Locker,
	log *zerolog.Logger,
) *statusUC {
	l := log.With().Str("component", "StatusUseCase").Logger()
	return &statusUC{records: records, jobs: jobs, media: media, queue: queue, locker: locker, log: &l}
}

func (s *statusUC) GetStatus(ctx context.Context, targetID string) (*StatusView, error) {
	rec, job, err := s.load(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &StatusView{TargetID: targetID, OCRStatus: model.OCRStatusPending, TranslationStatus: model.TranslationNone}, nil
	}
	if rec.InFlight() && job == nil {
		healed, err := s.heal(ctx, rec)
		if err != nil {
			s.log.Error().Err(err).Str("target_id", targetID).Msg("status self-heal failed")
		} else if healed {
			if rec, job, err = s.load(ctx, targetID); err != nil {
				return nil, err
			}
		}
	}
	return toStatusView(targetID, rec, job), nil
}

func (s *statusUC) load(ctx context.Context, targetID string) (*model.ProcessingRecord, *model.Job, error) {
	rec, err := s.records.FindByTarget(ctx, nil, targetID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	job, err := s.jobs.FindByTarget(ctx, nil, targetID)
	if errors.Is(err, domain.ErrNotFound) {
		return rec, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return rec, job, nil
}

// heal recreates the job of a record that is waiting on nothing. Returns
// true when state changed.
func (s *statusUC) heal(ctx context.Context, rec *model.ProcessingRecord) (bool, error) {
	key := "heal:" + rec.TargetID
	token, err := s.locker.TryLock(ctx, key, healLockTTL)
	if errors.Is(err, domain.ErrLockNotAcquired) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("heal unlock failed")
		}
	}()

	// Another poller may have healed it while we waited for the lock.
	if _, err := s.jobs.FindByTarget(ctx, nil, rec.TargetID); err == nil {
		return true, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	job, err := s.EnqueueFromMedia(ctx, rec.TargetID)
	if errors.Is(err, domain.ErrNoMedia) {
		msg := domain.ErrNoMedia.Error()
		err := s.records.UpdateOCR(ctx, nil, rec.TargetID, rec.Generation, model.OCRUpdate{Status: model.OCRStatusFailed, Error: &msg})
		if errors.Is(err, domain.ErrStaleJob) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		s.log.Warn().Str("target_id", rec.TargetID).Msg("no processable media; record failed")
		return true, nil
	}
	if err != nil {
		return false, err
	}
	s.log.Info().Str("target_id", rec.TargetID).Str("job_id", job.ID).Msg("missing job re-enqueued")
	return true, nil
}

func (s *statusUC) EnqueueFromMedia(ctx context.Context, targetID string) (*model.Job, error) {
	media, err := s.media.ListByTarget(ctx, nil, targetID)
	if err != nil {
		return nil, err
	}
	payload, ok := model.PayloadForMedia(media)
	if !ok {
		return nil, domain.ErrNoMedia
	}
	return s.queue.Enqueue(ctx, targetID, payload)
}

func toStatusView(targetID string, rec *model.ProcessingRecord, job *model.Job) *StatusView {
	v := &StatusView{
		TargetID:          targetID,
		OCRStatus:         rec.OCRStatus,
		TranslationStatus: rec.TranslationStatus,
		OCRError:          rec.OCRError,
	}
	if job != nil {
		jv := &JobView{
			Status:      job.Status,
			Attempts:    job.Attempts,
			MaxAttempts: job.MaxAttempts,
			LastError:   job.LastError,
		}
		if job.Status == model.JobStatusPending {
			at := job.ScheduledAt
			jv.NextRetryAt = &at
		}
		v.Job = jv
	}
	return v
}
