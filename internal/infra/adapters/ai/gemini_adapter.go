// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"

	"manuscript-pipeline/internal/domain/ports/adapter"
	"manuscript-pipeline/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
	maxOut       int
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string, maxOut int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel, maxOut: maxOut}, nil
}

func (g *GeminiAdapter) CountTokens(ctx context.Context, model string, p adapter.Prompt) (int, error) {
	// The Gemini API counter has no system instruction slot, so the system
	// text is counted as part of the user turn.
	parts := toGenAIParts(p)
	if p.System != "" {
		parts = append([]*genai.Part{genai.NewPartFromText(p.System)}, parts...)
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	model = modelOrDefault(model, g.defaultModel)
	resp, err := g.client.Models.CountTokens(ctx, model, contents, nil)
	if err != nil {
		return 0, err
	}
	metrics.ObservePromptEstimate("gemini", model, int(resp.TotalTokens))
	return int(resp.TotalTokens), nil
}

func (g *GeminiAdapter) Generate(ctx context.Context, model string, p adapter.Prompt) (string, adapter.Usage, error) {
	if p.Text == "" && len(p.Media) == 0 {
		return "", adapter.Usage{}, errors.New("gemini: empty prompt")
	}
	model = modelOrDefault(model, g.defaultModel)

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(g.maxOut),
	}
	if p.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}
	if p.Temperature > 0 {
		cfg.Temperature = genai.Ptr(p.Temperature)
	}
	if p.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{genai.NewContentFromParts(toGenAIParts(p), genai.RoleUser)}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		metrics.ObserveAICall("gemini", model, 0, 0, latency, false)
		return "", adapter.Usage{}, err
	}

	u := adapter.Usage{}
	if resp.UsageMetadata != nil {
		u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	text := resp.Text()
	metrics.ObserveAICall("gemini", model, u.PromptTokens, u.CompletionTokens, latency, text != "")
	if text == "" {
		return "", u, errors.New("gemini: empty response")
	}
	return text, u, nil
}

// --- internal ---

func toGenAIParts(p adapter.Prompt) []*genai.Part {
	parts := make([]*genai.Part, 0, len(p.Media)+1)
	for _, m := range p.Media {
		parts = append(parts, genai.NewPartFromBytes(m.Data, m.MimeType))
	}
	if p.Text != "" {
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	return parts
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}
