package usecase

import (
	"context"
	"fmt"

	"manuscript-pipeline/internal/domain"
	"manuscript-pipeline/internal/domain/model"
)

// Extractor turns a job payload into raw text.
type Extractor interface {
	Extract(ctx context.Context, p model.JobPayload) (string, error)
}

type ExtractorFactory interface {
	For(t model.JobType) (Extractor, error)
}

type extractorRegistry struct {
	byType map[model.JobType]Extractor
}

// NewExtractorFactory registers the extractors that are available. A nil
// extractor leaves its job type unsupported.
func NewExtractorFactory(image, audio, video Extractor) ExtractorFactory {
	r := &extractorRegistry{byType: map[model.JobType]Extractor{}}
	if image != nil {
		r.byType[model.JobTypeImageOCR] = image
	}
	if audio != nil {
		r.byType[model.JobTypeAudioTranscription] = audio
	}
	if video != nil {
		r.byType[model.JobTypeVideoExtraction] = video
	}
	return r
}

func (r *extractorRegistry) For(t model.JobType) (Extractor, error) {
	if e, ok := r.byType[t]; ok {
		return e, nil
	}
	if t.Valid() {
		return nil, NonRetryablef("Extraction for %s is not enabled", t)
	}
	return nil, NonRetryable(fmt.Errorf("%w: %s", domain.ErrUnknownJobType, t))
}

func payloadMismatch(want model.JobType, p model.JobPayload) error {
	return NonRetryable(fmt.Errorf("%w: %s extractor got %T", domain.ErrPayloadType, want, p))
}
