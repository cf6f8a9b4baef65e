// Package provider wraps external language-generation services behind a
// single synchronous completion operation.
package provider

import (
	"context"
	"time"
)

// Completer is the one operation the engine needs from a generation service.
type Completer interface {
	Complete(ctx context.Context, system, user, model string) (string, error)
}

// Config holds configuration for one provider instance.
type Config struct {
	ID           string
	Name         string
	Endpoint     string
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
	RatePerSec   float64 // upstream rate limit; 0 disables the limiter
}

// message is a chat message in the wire format.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// chatResponse is the OpenAI-compatible response body.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}
