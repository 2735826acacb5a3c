// Package llm abstracts the chat-completion transports used for analysis
// and chat. Clients are stateless and safe for concurrent use.
package llm

import "context"

// Message is a single conversational message. Role is "system", "user" or
// "assistant".
type Message struct {
	Role    string
	Content string
}

// Request is a provider-neutral chat completion request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Client sends one completion request and returns the model's text.
// Transport-level failures (network, auth, rate limit) are returned as
// errors and are never retried at this layer.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
