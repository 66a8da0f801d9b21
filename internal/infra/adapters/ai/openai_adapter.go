package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/pkoukk/tiktoken-go"

	"manuscript-pipeline/internal/domain/ports/adapter"
	"manuscript-pipeline/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*OpenAIAdapter)(nil)

// ErrMediaUnsupported is returned when inline media is sent to a text-only provider.
var ErrMediaUnsupported = errors.New("openai: inline media is not supported")

// OpenAIAdapter implements adapter.AIServiceAdapter using the Chat Completions API.
// Any OpenAI-compatible gateway works through baseURL.
type OpenAIAdapter struct {
	client openai.Client
	model  string
	maxOut int
}

func NewOpenAIAdapter(apiKey, baseURL, model string, maxOut int) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &OpenAIAdapter{
		client: openai.NewClient(opts...),
		model:  model,
		maxOut: maxOut,
	}, nil
}

// CountTokens is a local estimate with tiktoken; unknown models fall back to cl100k_base.
func (o *OpenAIAdapter) CountTokens(ctx context.Context, model string, p adapter.Prompt) (int, error) {
	model = modelOrDefault(model, o.model)
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, err
		}
	}
	// Per-message framing overhead of the chat format.
	n := 3
	if p.System != "" {
		n += 4 + len(enc.Encode(p.System, nil, nil))
	}
	n += 4 + len(enc.Encode(p.Text, nil, nil))
	metrics.ObservePromptEstimate("openai", model, n)
	return n, nil
}

func (o *OpenAIAdapter) Generate(ctx context.Context, model string, p adapter.Prompt) (string, adapter.Usage, error) {
	if len(p.Media) > 0 {
		return "", adapter.Usage{}, ErrMediaUnsupported
	}
	model = modelOrDefault(model, o.model)

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if p.System != "" {
		msgs = append(msgs, openai.SystemMessage(p.System))
	}
	msgs = append(msgs, openai.UserMessage(p.Text))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: msgs,
	}
	if p.Temperature > 0 {
		params.Temperature = openai.Float(float64(p.Temperature))
	}
	if o.maxOut > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.maxOut))
	}
	if p.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		metrics.ObserveAICall("openai", model, 0, 0, latency, false)
		return "", adapter.Usage{}, err
	}

	u := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			metrics.ObserveAICall("openai", model, u.PromptTokens, u.CompletionTokens, latency, true)
			return c.Message.Content, u, nil
		}
	}
	metrics.ObserveAICall("openai", model, u.PromptTokens, u.CompletionTokens, latency, false)
	return "", u, errors.New("no choice content")
}
