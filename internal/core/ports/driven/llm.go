package driven

import "context"

// LLMService produces completions for answer synthesis.
//
// Implementations include:
//   - OpenAI (gpt-3.5-turbo, gpt-4o)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Complete sends a system and a user prompt and returns the reply text.
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionOptions configures one completion.
type CompletionOptions struct {
	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// MaxTokens caps the reply length. Zero means the adapter default.
	MaxTokens int
}
