// File: internal/usecase/translation_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"manuscript-pipeline/internal/domain"
	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/adapter"
	"manuscript-pipeline/internal/domain/ports/repository"
	"manuscript-pipeline/internal/infra/logging"
	"manuscript-pipeline/internal/infra/metrics"
	red "manuscript-pipeline/internal/infra/redis"
)

// Compile-time check
var _ TranslationUseCase = (*translationUC)(nil)

type TranslationUseCase interface {
	RequestTranslation(ctx context.Context, targetID string) (*TranslationResult, error)
}

type TranslationResult struct {
	Hindi   string `json:"hindi"`
	English string `json:"english"`
	Cached  bool   `json:"cached"`
}

const translationUnavailable = "Translation unavailable"

const translationInstruction = `You are an expert translator of historical manuscripts.

Translate the manuscript text below into BOTH Hindi and English.

Rules:
- Keep the scholarly tone and historical register of the original
- For archaic or untranslatable terms, give the original term with a bracketed explanation
- Keep paragraph structure
- Answer in this EXACT JSON format, raw JSON only with no markdown fences:

{
  "hindi": "<full Hindi translation>",
  "english": "<full English translation>"
}`

type translationUC struct {
	records repository.ProcessingRecordRepository
	ai      adapter.AIServiceAdapter
	limiter adapter.RateLimiter
	model   string
	limit   int
	window  time.Duration
	log     *zerolog.Logger
}

// NewTranslationUseCase builds the translator. A nil limiter disables rate limiting.
func NewTranslationUseCase(
	records repository.ProcessingRecordRepository,
	ai adapter.AIServiceAdapter,
	limiter adapter.RateLimiter,
	model string,
	limit int,
	window time.Duration,
	log *zerolog.Logger,
) *translationUC {
	l := log.With().Str("component", "TranslationUseCase").Logger()
	return &translationUC{records: records, ai: ai, limiter: limiter, model: model, limit: limit, window: window, log: &l}
}

func (t *translationUC) RequestTranslation(ctx context.Context, targetID string) (*TranslationResult, error) {
	ctx = logging.WithTargetID(ctx, targetID)
	log := logging.With(ctx, t.log)

	if t.limiter != nil && t.limit > 0 {
		ok, err := t.limiter.Allow(ctx, red.TranslationKey(targetID), t.limit, t.window)
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable; allowing request")
		} else if !ok {
			metrics.IncTranslation("rate_limited")
			return nil, domain.ErrRateLimited
		}
	}

	rec, err := t.records.FindByTarget(ctx, nil, targetID)
	if err != nil {
		return nil, err
	}
	if rec.Reconstructed() == "" {
		return nil, domain.ErrReconstructionIncomplete
	}
	switch rec.TranslationStatus {
	case model.TranslationDone:
		metrics.IncTranslation("cached")
		return &TranslationResult{Hindi: deref(rec.HindiText), English: deref(rec.EnglishText), Cached: true}, nil
	case model.TranslationProcessing:
		metrics.IncTranslation("in_progress")
		return nil, domain.ErrTranslationInProgress
	}

	won, err := t.records.BeginTranslation(ctx, nil, targetID, rec.Generation)
	if err != nil {
		return nil, err
	}
	if !won {
		metrics.IncTranslation("in_progress")
		return nil, domain.ErrTranslationInProgress
	}

	res, err := t.translate(ctx, rec.Reconstructed())
	if err != nil {
		metrics.IncTranslation("error")
		if ferr := t.records.FailTranslation(context.WithoutCancel(ctx), nil, targetID, rec.Generation); ferr != nil && !errors.Is(ferr, domain.ErrStaleJob) {
			log.Error().Err(ferr).Msg("failed to mark translation failed")
		}
		return nil, err
	}

	err = t.records.CompleteTranslation(ctx, nil, targetID, rec.Generation, res.Hindi, res.English)
	if errors.Is(err, domain.ErrStaleJob) {
		// Re-enqueued meanwhile: hand back the result without caching it.
		log.Warn().Msg("record reset during translation; result not stored")
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	metrics.IncTranslation("ok")
	log.Info().Msg("translation stored")
	return res, nil
}

func (t *translationUC) translate(ctx context.Context, source string) (*TranslationResult, error) {
	var b strings.Builder
	b.WriteString(translationInstruction)
	b.WriteString("\n\n--- SOURCE TEXT ---\n")
	b.WriteString(source)
	b.WriteString("\n--- END SOURCE TEXT ---")

	raw, _, err := t.ai.Generate(ctx, t.model, adapter.Prompt{Text: b.String(), JSON: true})
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	hindi, english := ParseTranslation(raw)
	return &TranslationResult{Hindi: hindi, English: english}, nil
}

var (
	fenceOpen  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```\\s*$")
	hindiRe    = regexp.MustCompile(`(?s)"hindi"\s*:\s*"(.*?)(?:"\s*,\s*"english"|"english"\s*:)`)
	englishRe  = regexp.MustCompile(`(?s)"english"\s*:\s*"(.*?)(?:"\s*}\s*$|$)`)
)

// ParseTranslation reads the model answer as {"hindi","english"} JSON,
// falling back to a lenient regex scan for malformed output. Missing sides
// come back as "Translation unavailable".
func ParseTranslation(raw string) (hindi, english string) {
	cleaned := strings.TrimSpace(raw)
	cleaned = fenceOpen.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(fenceClose.ReplaceAllString(cleaned, ""))

	var parsed struct {
		Hindi   string `json:"hindi"`
		English string `json:"english"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil && parsed.Hindi != "" && parsed.English != "" {
		return parsed.Hindi, parsed.English
	}

	hindi, english = translationUnavailable, translationUnavailable
	if m := hindiRe.FindStringSubmatch(cleaned); m != nil {
		hindi = strings.ReplaceAll(m[1], `\n`, "\n")
	}
	if m := englishRe.FindStringSubmatch(cleaned); m != nil {
		english = strings.ReplaceAll(m[1], `\n`, "\n")
	}
	return hindi, english
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
