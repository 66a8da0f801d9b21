package ai

import (
	"context"
	"time"

	"manuscript-pipeline/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*timeoutAI)(nil)

type timeoutAI struct {
	inner adapter.AIServiceAdapter
	d     time.Duration
}

// NewTimeoutAI bounds every provider call by d.
func NewTimeoutAI(inner adapter.AIServiceAdapter, d time.Duration) adapter.AIServiceAdapter {
	if d <= 0 {
		return inner
	}
	return &timeoutAI{inner: inner, d: d}
}

func (t *timeoutAI) Generate(ctx context.Context, model string, p adapter.Prompt) (string, adapter.Usage, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.Generate(ctx, model, p)
}

func (t *timeoutAI) CountTokens(ctx context.Context, model string, p adapter.Prompt) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.CountTokens(ctx, model, p)
}
