package adapter

import "context"

// VideoAnnotation is the raw output of a video analysis call.
type VideoAnnotation struct {
	// TextSegments is the text seen in frames, in detection order.
	TextSegments []string
	// Transcripts is the best transcript per speech segment.
	Transcripts []string
}

type VideoAnalyzer interface {
	Annotate(ctx context.Context, videoURL string) (*VideoAnnotation, error)
}
