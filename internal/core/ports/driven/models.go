package driven

import "context"

// LLMService is a chat model. Callers send the whole conversation on every
// call; adapters keep no session state.
type LLMService interface {
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)
	ModelName() string
	// Ping checks reachability without generating text where the API allows.
	Ping(ctx context.Context) error
	Close() error
}

// ChatMessage is one message sent to an LLMService. Role holds a
// domain.Role value.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatOptions tunes generation. Zero values leave the provider defaults.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}

// EmbeddingService turns text into vectors. The same text must always map
// to the same vector, or similarity search stops being reproducible.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions is the vector size, or 0 until the first response.
	Dimensions() int
	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}
