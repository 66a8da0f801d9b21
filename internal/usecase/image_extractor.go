package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/adapter"
	"manuscript-pipeline/internal/infra/logging"
	"manuscript-pipeline/internal/infra/metrics"
)

// PageBreak separates the text of consecutive images.
const PageBreak = "\n\n--- Page Break ---\n\n"

const maxReportedFailures = 3

var _ Extractor = (*ImageExtractor)(nil)

// ImageExtractor OCRs every image or PDF of a payload. Individual failures
// are tolerated as long as one item yields text.
type ImageExtractor struct {
	fetch       adapter.MediaFetcher
	ocr         adapter.OCRClient
	parallelism int
	ocrTimeout  time.Duration
	log         *zerolog.Logger
}

func NewImageExtractor(fetch adapter.MediaFetcher, ocr adapter.OCRClient, parallelism int, ocrTimeout time.Duration, log *zerolog.Logger) *ImageExtractor {
	if parallelism <= 0 {
		parallelism = 3
	}
	l := log.With().Str("component", "ImageExtractor").Logger()
	return &ImageExtractor{fetch: fetch, ocr: ocr, parallelism: parallelism, ocrTimeout: ocrTimeout, log: &l}
}

func (e *ImageExtractor) Extract(ctx context.Context, p model.JobPayload) (string, error) {
	img, ok := p.(model.ImagePayload)
	if !ok {
		return "", payloadMismatch(model.JobTypeImageOCR, p)
	}
	if len(img.ImageURLs) == 0 {
		return "", NonRetryablef("Missing imageUrls in job payload")
	}

	texts := make([]string, len(img.ImageURLs))
	failures := make([]error, len(img.ImageURLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, url := range img.ImageURLs {
		g.Go(func() error {
			text, err := e.recognize(gctx, url)
			if err != nil {
				metrics.IncOCRItem("error")
				logging.With(ctx, e.log).Warn().Err(err).Int("index", i).Msg("image OCR failed")
				failures[i] = err
				return nil
			}
			if text == "" {
				metrics.IncOCRItem("empty")
				return nil
			}
			metrics.IncOCRItem("ok")
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var pages []string
	for _, t := range texts {
		if t != "" {
			pages = append(pages, t)
		}
	}
	if len(pages) > 0 {
		return strings.Join(pages, PageBreak), nil
	}

	var reasons []string
	for _, f := range failures {
		if f != nil && len(reasons) < maxReportedFailures {
			reasons = append(reasons, f.Error())
		}
	}
	details := " OCR returned empty text for all images."
	if len(reasons) > 0 {
		details = " OCR failures: " + strings.Join(reasons, " | ")
	}
	return "", NonRetryablef("No text detected in any image.%s", details)
}

func (e *ImageExtractor) recognize(ctx context.Context, url string) (string, error) {
	m, err := e.fetch.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if e.ocrTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.ocrTimeout)
		defer cancel()
	}
	text, err := e.ocr.Recognize(ctx, m.Data, IsPDF(url, m.ContentType))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// IsPDF reports whether a fetched item should be sent to OCR as a PDF.
func IsPDF(url, contentType string) bool {
	return strings.HasSuffix(strings.ToLower(url), ".pdf") ||
		strings.Contains(strings.ToLower(contentType), "pdf")
}
