package adapter

import "context"

// MediaPart is inline binary content sent alongside a prompt.
type MediaPart struct {
	Data     []byte
	MimeType string
}

// Prompt is a single-turn generation request.
type Prompt struct {
	System string
	Text   string
	Media  []MediaPart
	// JSON asks the provider for a JSON-only answer where supported.
	JSON        bool
	Temperature float32
}

// Usage for a single generation call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// AIServiceAdapter is the port for generative text.
type AIServiceAdapter interface {
	// CountTokens returns prompt tokens for p (best-effort when the
	// provider has no exact counter).
	CountTokens(ctx context.Context, model string, p Prompt) (int, error)

	// Generate returns the model text and usage as reported by the provider.
	Generate(ctx context.Context, model string, p Prompt) (string, Usage, error)
}
