// Package ai provides a provider-agnostic gateway for generative text
// completions, including structured JSON output.
package ai

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a completion. Setting ResponseSchema
// asks the model for JSON constrained to that schema.
type CompletionRequest struct {
	Messages       []Message      `json:"messages"`
	Model          string         `json:"model,omitempty"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	Temperature    float64        `json:"temperature,omitempty"`
	ResponseSchema map[string]any `json:"response_schema,omitempty"`
}

// WantsJSON reports whether the request asks for structured JSON output.
func (r CompletionRequest) WantsJSON() bool {
	return r.ResponseSchema != nil
}

// CompletionResponse is the output from a completion.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// ModelInfo describes an available model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MaxTokens   int    `json:"max_tokens"`
	Description string `json:"description"`
}

// Provider is the interface all AI providers must implement.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Models() []ModelInfo
	HealthCheck(ctx context.Context) error
}
