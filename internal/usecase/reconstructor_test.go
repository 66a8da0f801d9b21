//go:build !integration

package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manuscript-pipeline/internal/domain/ports/adapter"
)

func TestReconstructor(t *testing.T) {
	ctx := context.Background()

	t.Run("wraps raw text and trims the answer", func(t *testing.T) {
		ai := &MockAI{GenerateFunc: func(ctx context.Context, model string, p adapter.Prompt) (string, adapter.Usage, error) {
			return "\n clean text \n", adapter.Usage{}, nil
		}}
		out, err := NewReconstructor(ai, "gemini-2.5-flash", 0).Reconstruct(ctx, "r4w t3xt")
		require.NoError(t, err)
		assert.Equal(t, "clean text", out)

		prompt := ai.Prompts[0].Text
		assert.Contains(t, prompt, "--- RAW OCR TEXT START ---\nr4w t3xt\n--- RAW OCR TEXT END ---")
		assert.True(t, strings.HasSuffix(prompt, "--- RAW OCR TEXT END ---"))
	})

	t.Run("empty answer is retryable", func(t *testing.T) {
		ai := &MockAI{GenerateFunc: func(ctx context.Context, model string, p adapter.Prompt) (string, adapter.Usage, error) {
			return "  ", adapter.Usage{}, nil
		}}
		_, err := NewReconstructor(ai, "m", 0).Reconstruct(ctx, "x")
		require.Error(t, err)
		assert.False(t, IsNonRetryable(err))
	})

	t.Run("provider error is retryable", func(t *testing.T) {
		ai := &MockAI{GenerateFunc: func(ctx context.Context, model string, p adapter.Prompt) (string, adapter.Usage, error) {
			return "", adapter.Usage{}, errors.New("503")
		}}
		_, err := NewReconstructor(ai, "m", 0).Reconstruct(ctx, "x")
		require.Error(t, err)
		assert.False(t, IsNonRetryable(err))
	})

	t.Run("oversized input fails without a generation call", func(t *testing.T) {
		ai := &MockAI{CountTokensFunc: func(ctx context.Context, model string, p adapter.Prompt) (int, error) {
			return 5000, nil
		}}
		_, err := NewReconstructor(ai, "m", 1000).Reconstruct(ctx, "x")
		require.Error(t, err)
		assert.True(t, IsNonRetryable(err))
		assert.Zero(t, ai.Calls())
	})
}
