package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"manuscript-pipeline/internal/domain/ports/adapter"
	"manuscript-pipeline/internal/infra/metrics"
)

const reconstructionInstruction = `You are an expert manuscript scholar and text restoration specialist.

The text below was extracted by OCR or transcription from a manuscript. It may contain:
- Missing or garbled characters, especially in damaged areas
- Misrecognized characters (for example 'l' and '1', 'O' and '0')
- Missing words or line breaks
- Faded or partially illegible sections marked with [?] or gaps

Your task:
1. Reconstruct the most likely intended text from the surrounding context
2. Mark every character you are unsure about with [?]
3. Do NOT add content the context does not imply
4. Keep the original language, structure and style
5. Keep paragraph breaks and section structure
6. Return ONLY the reconstructed text with no commentary or preamble`

// Reconstructor restores noisy extracted text with a generative model.
type Reconstructor struct {
	ai        adapter.AIServiceAdapter
	model     string
	maxTokens int
}

// NewReconstructor builds a Reconstructor. maxInputTokens > 0 enables a
// token count before the call; oversized input fails without retry.
func NewReconstructor(ai adapter.AIServiceAdapter, model string, maxInputTokens int) *Reconstructor {
	return &Reconstructor{ai: ai, model: model, maxTokens: maxInputTokens}
}

func reconstructionPrompt(raw string) string {
	var b strings.Builder
	b.WriteString(reconstructionInstruction)
	b.WriteString("\n\n--- RAW OCR TEXT START ---\n")
	b.WriteString(raw)
	b.WriteString("\n--- RAW OCR TEXT END ---")
	return b.String()
}

func (r *Reconstructor) Reconstruct(ctx context.Context, raw string) (string, error) {
	p := adapter.Prompt{Text: reconstructionPrompt(raw)}

	if r.maxTokens > 0 {
		n, err := r.ai.CountTokens(ctx, r.model, p)
		if err != nil {
			return "", fmt.Errorf("count tokens: %w", err)
		}
		if n > r.maxTokens {
			return "", NonRetryablef("Extracted text is too long to reconstruct (%d tokens, limit %d)", n, r.maxTokens)
		}
	}

	start := time.Now()
	text, _, err := r.ai.Generate(ctx, r.model, p)
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = errors.New("empty reconstruction from model")
	}
	metrics.ObserveStage("reconstruct", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return "", err
	}
	return text, nil
}
