package domain

import "context"

// GenerateResult holds the generated text and token accounting.
type GenerateResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Generator defines the interface for answer generation. Implementations
// call an external LLM service; callers must tolerate failure and fall
// back to extractive answers.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (*GenerateResult, error)
	ModelName() string
}
