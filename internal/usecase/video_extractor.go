package usecase

import (
	"context"
	"errors"
	"strings"

	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/adapter"
)

const (
	visibleTextHeader = "--- Manuscript Text (Visible in Video) ---\n"
	narrationHeader   = "--- Narration (Audio Track) ---\n"
)

var _ Extractor = (*VideoExtractor)(nil)

// VideoExtractor merges on-screen text and narration of a video.
type VideoExtractor struct {
	analyzer adapter.VideoAnalyzer
}

func NewVideoExtractor(analyzer adapter.VideoAnalyzer) *VideoExtractor {
	return &VideoExtractor{analyzer: analyzer}
}

func (e *VideoExtractor) Extract(ctx context.Context, p model.JobPayload) (string, error) {
	video, ok := p.(model.VideoPayload)
	if !ok {
		return "", payloadMismatch(model.JobTypeVideoExtraction, p)
	}
	if video.VideoURL == "" {
		return "", NonRetryablef("Missing videoUrl in job payload")
	}

	ann, err := e.analyzer.Annotate(ctx, video.VideoURL)
	if err != nil {
		return "", err
	}
	if ann == nil {
		return "", errors.New("video analysis returned nothing")
	}
	out, ok := mergeVideoText(ann)
	if !ok {
		return "", NonRetryablef("No text or speech detected in video")
	}
	return out, nil
}

// mergeVideoText dedupes frame text (the same text shows up across frames)
// and appends the narration as its own section.
func mergeVideoText(ann *adapter.VideoAnnotation) (string, bool) {
	seen := make(map[string]struct{}, len(ann.TextSegments))
	var lines []string
	for _, s := range ann.TextSegments {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		lines = append(lines, s)
	}
	visible := strings.TrimSpace(strings.Join(lines, "\n"))
	narration := strings.TrimSpace(strings.Join(ann.Transcripts, " "))

	var parts []string
	if visible != "" {
		parts = append(parts, visibleTextHeader+visible)
	}
	if narration != "" {
		parts = append(parts, narrationHeader+narration)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}
