//go:build !integration

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"manuscript-pipeline/internal/domain"
	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/adapter"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// =============================
// Adapters
// =============================

// ---- Mock AIServiceAdapter ----

type MockAI struct {
	mu sync.Mutex

	GenerateFunc    func(ctx context.Context, model string, p adapter.Prompt) (string, adapter.Usage, error)
	CountTokensFunc func(ctx context.Context, model string, p adapter.Prompt) (int, error)

	Prompts []adapter.Prompt
}

var _ adapter.AIServiceAdapter = (*MockAI)(nil)

func (m *MockAI) Generate(ctx context.Context, model string, p adapter.Prompt) (string, adapter.Usage, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, p)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, model, p)
	}
	return "ok", adapter.Usage{}, nil
}

func (m *MockAI) CountTokens(ctx context.Context, model string, p adapter.Prompt) (int, error) {
	if m.CountTokensFunc != nil {
		return m.CountTokensFunc(ctx, model, p)
	}
	return len(p.Text) / 4, nil
}

func (m *MockAI) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// ---- Mock MediaFetcher ----

type mockFetcher struct {
	items map[string]*adapter.FetchedMedia
	errs  map[string]error
}

var _ adapter.MediaFetcher = (*mockFetcher)(nil)

func (m *mockFetcher) Fetch(ctx context.Context, url string) (*adapter.FetchedMedia, error) {
	if err := m.errs[url]; err != nil {
		return nil, err
	}
	if it, ok := m.items[url]; ok {
		return it, nil
	}
	return nil, fmt.Errorf("Failed to fetch media: 404")
}

// ---- Mock OCRClient ----

// mockOCR answers by payload bytes: the fetched data is used as the key.
type mockOCR struct {
	mu     sync.Mutex
	texts  map[string]string
	errs   map[string]error
	pdfs   []bool
	block  bool
	active int
	peak   int
}

var _ adapter.OCRClient = (*mockOCR)(nil)

func (m *mockOCR) Recognize(ctx context.Context, data []byte, isPDF bool) (string, error) {
	m.mu.Lock()
	m.pdfs = append(m.pdfs, isPDF)
	m.active++
	if m.active > m.peak {
		m.peak = m.active
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	if m.block {
		time.Sleep(10 * time.Millisecond)
	}
	key := string(data)
	if err := m.errs[key]; err != nil {
		return "", err
	}
	return m.texts[key], nil
}

// ---- Mock VideoAnalyzer ----

type mockAnalyzer struct {
	ann *adapter.VideoAnnotation
	err error
	url string
}

var _ adapter.VideoAnalyzer = (*mockAnalyzer)(nil)

func (m *mockAnalyzer) Annotate(ctx context.Context, videoURL string) (*adapter.VideoAnnotation, error) {
	m.url = videoURL
	return m.ann, m.err
}

// ---- Mock Locker ----

type mockLocker struct {
	mu      sync.Mutex
	held    map[string]string
	lockErr error
	locks   int
}

var _ adapter.Locker = (*mockLocker)(nil)

func newMockLocker() *mockLocker { return &mockLocker{held: map[string]string{}} }

func (m *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.lockErr != nil {
		return "", m.lockErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return "", domain.ErrLockNotAcquired
	}
	m.locks++
	tok := fmt.Sprintf("tok-%d", m.locks)
	m.held[key] = tok
	return tok, nil
}

func (m *mockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] != token {
		return errors.New("not the lock owner")
	}
	delete(m.held, key)
	return nil
}

// ---- Mock RateLimiter ----

type mockLimiter struct {
	hits map[string]int
	err  error
}

var _ adapter.RateLimiter = (*mockLimiter)(nil)

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.hits == nil {
		m.hits = map[string]int{}
	}
	m.hits[key]++
	return m.hits[key] <= limit, nil
}

// ---- Extractor doubles ----

type extractorFunc func(ctx context.Context, p model.JobPayload) (string, error)

func (f extractorFunc) Extract(ctx context.Context, p model.JobPayload) (string, error) { return f(ctx, p) }

type reconstructorFunc func(ctx context.Context, raw string) (string, error)

func (f reconstructorFunc) Reconstruct(ctx context.Context, raw string) (string, error) { return f(ctx, raw) }
