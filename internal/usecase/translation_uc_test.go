//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manuscript-pipeline/internal/domain"
	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/adapter"
)

func reconstructedRecord(targetID string) *model.ProcessingRecord {
	rec := model.NewPendingRecord(targetID, "g1", time.Now())
	text := "पुनर्निर्मित पाठ"
	rec.ReconstructedText = &text
	rec.OCRStatus = model.OCRStatusDone
	return rec
}

func TestParseTranslation(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		hindi   string
		english string
	}{
		{"plain json", `{"hindi":"नमस्ते","english":"hello"}`, "नमस्ते", "hello"},
		{"fenced json", "```json\n{\"hindi\": \"क\", \"english\": \"a\"}\n```", "क", "a"},
		{"bare fence", "```\n{\"hindi\": \"क\", \"english\": \"a\"}\n```", "क", "a"},
		{"missing field falls back", `{"hindi":"क"}`, "Translation unavailable", "Translation unavailable"},
		{"broken json uses regex", "{\"hindi\": \"line1\\nline2 \"quoted\"\", \"english\": \"one\\ntwo\"}", "line1\nline2 \"quoted\"", "one\ntwo"},
		{"truncated english", `{"hindi": "क", "english": "partial answ`, "क", "partial answ"},
		{"garbage", "I cannot translate this.", "Translation unavailable", "Translation unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, e := ParseTranslation(tc.raw)
			assert.Equal(t, tc.hindi, h)
			assert.Equal(t, tc.english, e)
		})
	}
}

func TestTranslationUseCase(t *testing.T) {
	ctx := context.Background()
	okAI := func() *MockAI {
		return &MockAI{GenerateFunc: func(ctx context.Context, model string, p adapter.Prompt) (string, adapter.Usage, error) {
			return `{"hindi":"हिंदी","english":"english"}`, adapter.Usage{}, nil
		}}
	}

	t.Run("translates once and then serves the cache", func(t *testing.T) {
		records := newMemRecordRepo()
		records.put(reconstructedRecord("post-1"))
		ai := okAI()
		uc := NewTranslationUseCase(records, ai, nil, "m", 0, 0, nopLogger())

		res, err := uc.RequestTranslation(ctx, "post-1")
		require.NoError(t, err)
		assert.Equal(t, &TranslationResult{Hindi: "हिंदी", English: "english"}, res)
		assert.True(t, ai.Prompts[0].JSON)
		assert.Contains(t, ai.Prompts[0].Text, "पुनर्निर्मित पाठ")

		res, err = uc.RequestTranslation(ctx, "post-1")
		require.NoError(t, err)
		assert.True(t, res.Cached)
		assert.Equal(t, 1, ai.Calls())
		assert.Equal(t, model.TranslationDone, records.get("post-1").TranslationStatus)
	})

	t.Run("in progress is refused without a call", func(t *testing.T) {
		records := newMemRecordRepo()
		rec := reconstructedRecord("post-1")
		rec.TranslationStatus = model.TranslationProcessing
		records.put(rec)
		ai := okAI()

		_, err := NewTranslationUseCase(records, ai, nil, "m", 0, 0, nopLogger()).RequestTranslation(ctx, "post-1")
		assert.ErrorIs(t, err, domain.ErrTranslationInProgress)
		assert.Zero(t, ai.Calls())
	})

	t.Run("concurrent second request loses the claim", func(t *testing.T) {
		records := newMemRecordRepo()
		records.put(reconstructedRecord("post-1"))
		release := make(chan struct{})
		started := make(chan struct{})
		ai := &MockAI{GenerateFunc: func(ctx context.Context, model string, p adapter.Prompt) (string, adapter.Usage, error) {
			close(started)
			<-release
			return `{"hindi":"h","english":"e"}`, adapter.Usage{}, nil
		}}
		uc := NewTranslationUseCase(records, ai, nil, "m", 0, 0, nopLogger())

		done := make(chan error, 1)
		go func() {
			_, err := uc.RequestTranslation(ctx, "post-1")
			done <- err
		}()
		<-started
		_, err := uc.RequestTranslation(ctx, "post-1")
		assert.ErrorIs(t, err, domain.ErrTranslationInProgress)
		close(release)
		require.NoError(t, <-done)
	})

	t.Run("reconstruction incomplete", func(t *testing.T) {
		records := newMemRecordRepo()
		records.put(model.NewPendingRecord("post-1", "g1", time.Now()))
		_, err := NewTranslationUseCase(records, okAI(), nil, "m", 0, 0, nopLogger()).RequestTranslation(ctx, "post-1")
		assert.ErrorIs(t, err, domain.ErrReconstructionIncomplete)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := NewTranslationUseCase(newMemRecordRepo(), okAI(), nil, "m", 0, 0, nopLogger()).RequestTranslation(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("provider failure marks FAILED and a retry may claim again", func(t *testing.T) {
		records := newMemRecordRepo()
		records.put(reconstructedRecord("post-1"))
		calls := 0
		ai := &MockAI{GenerateFunc: func(ctx context.Context, model string, p adapter.Prompt) (string, adapter.Usage, error) {
			calls++
			if calls == 1 {
				return "", adapter.Usage{}, errors.New("quota")
			}
			return `{"hindi":"h","english":"e"}`, adapter.Usage{}, nil
		}}
		uc := NewTranslationUseCase(records, ai, nil, "m", 0, 0, nopLogger())

		_, err := uc.RequestTranslation(ctx, "post-1")
		require.Error(t, err)
		assert.Equal(t, model.TranslationFailed, records.get("post-1").TranslationStatus)

		res, err := uc.RequestTranslation(ctx, "post-1")
		require.NoError(t, err)
		assert.Equal(t, "h", res.Hindi)
	})

	t.Run("rate limited per target", func(t *testing.T) {
		records := newMemRecordRepo()
		records.put(reconstructedRecord("post-1"))
		uc := NewTranslationUseCase(records, okAI(), &mockLimiter{}, "m", 2, time.Minute, nopLogger())

		_, err := uc.RequestTranslation(ctx, "post-1")
		require.NoError(t, err)
		_, err = uc.RequestTranslation(ctx, "post-1")
		require.NoError(t, err)
		_, err = uc.RequestTranslation(ctx, "post-1")
		assert.ErrorIs(t, err, domain.ErrRateLimited)
	})

	t.Run("limiter outage does not block translation", func(t *testing.T) {
		records := newMemRecordRepo()
		records.put(reconstructedRecord("post-1"))
		uc := NewTranslationUseCase(records, okAI(), &mockLimiter{err: errors.New("redis down")}, "m", 1, time.Minute, nopLogger())
		_, err := uc.RequestTranslation(ctx, "post-1")
		assert.NoError(t, err)
	})
}
