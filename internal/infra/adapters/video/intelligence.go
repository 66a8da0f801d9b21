// File: internal/infra/adapters/video/intelligence.go
package video

import (
	"context"
	"errors"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	"cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"google.golang.org/api/option"

	"manuscript-pipeline/internal/config"
	"manuscript-pipeline/internal/domain/ports/adapter"
)

var _ adapter.VideoAnalyzer = (*IntelligenceAnalyzer)(nil)

// IntelligenceAnalyzer runs text detection and speech transcription through
// the Video Intelligence API. The video URL is handed to the API as is.
type IntelligenceAnalyzer struct {
	client   *videointelligence.Client
	language string
	hints    []string
	timeout  time.Duration
}

func NewIntelligenceAnalyzer(ctx context.Context, cfg config.VideoConfig) (*IntelligenceAnalyzer, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := videointelligence.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	// v1 speech config takes a single language; the alternates steer
	// frame text detection instead.
	hints := append([]string{cfg.LanguageCode}, cfg.AltLanguages...)
	return &IntelligenceAnalyzer{client: c, language: cfg.LanguageCode, hints: hints, timeout: cfg.Timeout}, nil
}

func (a *IntelligenceAnalyzer) Close() error { return a.client.Close() }

func (a *IntelligenceAnalyzer) Annotate(ctx context.Context, videoURL string) (*adapter.VideoAnnotation, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	op, err := a.client.AnnotateVideo(ctx, &videointelligencepb.AnnotateVideoRequest{
		InputUri: videoURL,
		Features: []videointelligencepb.Feature{
			videointelligencepb.Feature_TEXT_DETECTION,
			videointelligencepb.Feature_SPEECH_TRANSCRIPTION,
		},
		VideoContext: &videointelligencepb.VideoContext{
			SpeechTranscriptionConfig: &videointelligencepb.SpeechTranscriptionConfig{
				LanguageCode:               a.language,
				EnableAutomaticPunctuation: true,
			},
			TextDetectionConfig: &videointelligencepb.TextDetectionConfig{
				LanguageHints: a.hints,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if len(resp.GetAnnotationResults()) == 0 {
		return nil, errors.New("video annotation returned no results")
	}

	res := resp.GetAnnotationResults()[0]
	if e := res.GetError(); e != nil && e.GetMessage() != "" {
		return nil, errors.New(e.GetMessage())
	}
	out := &adapter.VideoAnnotation{}
	for _, t := range res.GetTextAnnotations() {
		if t.GetText() != "" {
			out.TextSegments = append(out.TextSegments, t.GetText())
		}
	}
	for _, s := range res.GetSpeechTranscriptions() {
		if alts := s.GetAlternatives(); len(alts) > 0 && alts[0].GetTranscript() != "" {
			out.Transcripts = append(out.Transcripts, alts[0].GetTranscript())
		}
	}
	return out, nil
}
