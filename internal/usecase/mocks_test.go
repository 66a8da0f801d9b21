//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"manuscript-pipeline/internal/domain"
	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/repository"
)

// clock is a settable time source shared by the in-memory repos and the use cases.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ---- TransactionManager ----

type fakeTx struct{}

// memTM runs fn directly. Repos below apply writes immediately, so a failing
// fn leaves earlier writes in place; tests keep that in mind.
type memTM struct{}

func (memTM) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, fakeTx{})
}

// ---- JobRepository ----

// memJobRepo mimics the Postgres queue: one row per target, generation
// guards on Complete/Fail and scheduled_at filtering on claim.
type memJobRepo struct {
	mu       sync.Mutex
	byTarget map[string]*model.Job
	clock    *clock
	claimErr error
}

var _ repository.JobRepository = (*memJobRepo)(nil)

func newMemJobRepo(c *clock) *memJobRepo {
	return &memJobRepo{byTarget: map[string]*model.Job{}, clock: c}
}

func (m *memJobRepo) Upsert(ctx context.Context, tx repository.Tx, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.byTarget[job.TargetID]; ok {
		job.ID = old.ID
		job.CreatedAt = old.CreatedAt
	}
	job.Status = model.JobStatusPending
	job.Attempts = 0
	job.StartedAt, job.CompletedAt, job.LastError = nil, nil, nil
	cp := *job
	m.byTarget[job.TargetID] = &cp
	return nil
}

func (m *memJobRepo) ClaimNext(ctx context.Context) (*model.Job, error) {
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	var eligible []*model.Job
	for _, j := range m.byTarget {
		if j.Status == model.JobStatusPending && j.Attempts < j.MaxAttempts && !j.ScheduledAt.After(now) {
			eligible = append(eligible, j)
		}
	}
	if len(eligible) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.Slice(eligible, func(a, b int) bool { return eligible[a].ScheduledAt.Before(eligible[b].ScheduledAt) })
	j := eligible[0]
	j.Status = model.JobStatusRunning
	j.Attempts++
	j.StartedAt = &now
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) current(job *model.Job) (*model.Job, error) {
	j, ok := m.byTarget[job.TargetID]
	if !ok || j.ID != job.ID || j.Generation != job.Generation || j.Status != model.JobStatusRunning {
		return nil, domain.ErrStaleJob
	}
	return j, nil
}

func (m *memJobRepo) Complete(ctx context.Context, tx repository.Tx, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.current(job)
	if err != nil {
		return err
	}
	now := m.clock.Now()
	j.Status = model.JobStatusDone
	j.CompletedAt = &now
	j.LastError = nil
	job.Status = j.Status
	return nil
}

func (m *memJobRepo) Fail(ctx context.Context, tx repository.Tx, job *model.Job, outcome model.FailureOutcome, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.current(job)
	if err != nil {
		return err
	}
	j.Status = outcome.Status
	j.ScheduledAt = outcome.ScheduledAt
	j.LastError = &errMsg
	if outcome.Status == model.JobStatusExhausted {
		now := m.clock.Now()
		j.CompletedAt = &now
	}
	job.Status = j.Status
	return nil
}

func (m *memJobRepo) FindByTarget(ctx context.Context, tx repository.Tx, targetID string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.byTarget[targetID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) ListStuck(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, j := range m.byTarget {
		if j.Status == model.JobStatusRunning && j.StartedAt != nil && j.StartedAt.Before(cutoff) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- ProcessingRecordRepository ----

type memRecordRepo struct {
	mu       sync.Mutex
	byTarget map[string]*model.ProcessingRecord
	// history of ocr statuses written per target, in order
	history map[string][]model.OCRStatus
}

var _ repository.ProcessingRecordRepository = (*memRecordRepo)(nil)

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{byTarget: map[string]*model.ProcessingRecord{}, history: map[string][]model.OCRStatus{}}
}

func (m *memRecordRepo) put(rec *model.ProcessingRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.byTarget[rec.TargetID] = &cp
}

func (m *memRecordRepo) get(targetID string) *model.ProcessingRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byTarget[targetID]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

func (m *memRecordRepo) FindByTarget(ctx context.Context, tx repository.Tx, targetID string) (*model.ProcessingRecord, error) {
	if r := m.get(targetID); r != nil {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memRecordRepo) Reset(ctx context.Context, tx repository.Tx, rec *model.ProcessingRecord) error {
	m.put(rec)
	m.mu.Lock()
	m.history[rec.TargetID] = append(m.history[rec.TargetID], rec.OCRStatus)
	m.mu.Unlock()
	return nil
}

func (m *memRecordRepo) guarded(targetID, generation string) (*model.ProcessingRecord, error) {
	r, ok := m.byTarget[targetID]
	if !ok || r.Generation != generation {
		return nil, domain.ErrStaleJob
	}
	return r, nil
}

func (m *memRecordRepo) UpdateOCR(ctx context.Context, tx repository.Tx, targetID, generation string, u model.OCRUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.guarded(targetID, generation)
	if err != nil {
		return err
	}
	r.OCRStatus = u.Status
	if u.RawText != nil {
		r.RawText = *u.RawText
	}
	if u.ReconstructedText != nil {
		t := *u.ReconstructedText
		r.ReconstructedText = &t
	}
	r.OCRError = u.Error
	m.history[targetID] = append(m.history[targetID], u.Status)
	return nil
}

func (m *memRecordRepo) BeginTranslation(ctx context.Context, tx repository.Tx, targetID, generation string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.guarded(targetID, generation)
	if err != nil {
		return false, nil
	}
	if r.ReconstructedText == nil {
		return false, nil
	}
	if r.TranslationStatus != model.TranslationNone && r.TranslationStatus != model.TranslationFailed {
		return false, nil
	}
	r.TranslationStatus = model.TranslationProcessing
	return true, nil
}

func (m *memRecordRepo) CompleteTranslation(ctx context.Context, tx repository.Tx, targetID, generation, hindi, english string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.guarded(targetID, generation)
	if err != nil || r.TranslationStatus != model.TranslationProcessing {
		return domain.ErrStaleJob
	}
	r.TranslationStatus = model.TranslationDone
	r.HindiText, r.EnglishText = &hindi, &english
	return nil
}

func (m *memRecordRepo) FailTranslation(ctx context.Context, tx repository.Tx, targetID, generation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.guarded(targetID, generation)
	if err != nil || r.TranslationStatus != model.TranslationProcessing {
		return domain.ErrStaleJob
	}
	r.TranslationStatus = model.TranslationFailed
	return nil
}

// ---- MediaRepository ----

type memMediaRepo struct {
	byTarget map[string][]model.Media
	err      error
}

var _ repository.MediaRepository = (*memMediaRepo)(nil)

func (m *memMediaRepo) ListByTarget(ctx context.Context, tx repository.Tx, targetID string) ([]model.Media, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byTarget[targetID], nil
}

func (m *memMediaRepo) Add(ctx context.Context, tx repository.Tx, media *model.Media) error {
	if m.err != nil {
		return m.err
	}
	if m.byTarget == nil {
		m.byTarget = map[string][]model.Media{}
	}
	m.byTarget[media.TargetID] = append(m.byTarget[media.TargetID], *media)
	return nil
}
