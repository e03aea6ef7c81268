package llm

import "context"

// Provider defines the interface for interacting with LLM backends.
// Implementations handle protocol-specific details such as request
// formatting, authentication, and response parsing.
type Provider interface {
	// Generate sends one system instruction plus one user turn and returns
	// the assistant text.
	Generate(ctx context.Context, system string, req Request) (string, error)

	// Stream is Generate with partial text delivered through onChunk as it
	// arrives. It returns the concatenated final text.
	Stream(ctx context.Context, system string, req Request, onChunk func(string)) (string, error)
}
