package usecase

import (
	"context"
	"errors"
	"strings"

	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/adapter"
)

const transcriptionInstruction = `You are transcribing an audio recording about ancient manuscripts.
The speaker may read, recite or discuss a manuscript in Sanskrit, Hindi, English, or a mix of them.

Rules:
- Transcribe every spoken word verbatim
- Keep the original language and do NOT translate
- When languages are mixed, keep all of them
- Mark inaudible sections as [inaudible]
- Mark unclear words as [?]
- Keep paragraph breaks where the speaker pauses between sections
- Return ONLY the transcription with no preamble, commentary or labels`

var _ Extractor = (*AudioExtractor)(nil)

// AudioExtractor transcribes a recording with one multimodal generation call.
type AudioExtractor struct {
	fetch adapter.MediaFetcher
	ai    adapter.AIServiceAdapter
	model string
}

func NewAudioExtractor(fetch adapter.MediaFetcher, ai adapter.AIServiceAdapter, model string) *AudioExtractor {
	return &AudioExtractor{fetch: fetch, ai: ai, model: model}
}

func (e *AudioExtractor) Extract(ctx context.Context, p model.JobPayload) (string, error) {
	audio, ok := p.(model.AudioPayload)
	if !ok {
		return "", payloadMismatch(model.JobTypeAudioTranscription, p)
	}
	if audio.AudioURL == "" {
		return "", NonRetryablef("Missing audioUrl in job payload")
	}

	m, err := e.fetch.Fetch(ctx, audio.AudioURL)
	if err != nil {
		return "", err
	}
	text, _, err := e.ai.Generate(ctx, e.model, adapter.Prompt{
		Text:  transcriptionInstruction,
		Media: []adapter.MediaPart{{Data: m.Data, MimeType: audio.Mime()}},
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty transcription from model")
	}
	return text, nil
}
