package llm

import (
	"github.com/rotisserie/eris"

	"github.com/scentlab/accord/internal/config"
)

// NewClient builds a Client from configuration. A missing API key is not
// an error: it returns a nil Client, which callers treat as "no model
// available" and degrade to heuristic-only output.
func NewClient(cfg config.LLMConfig) (Client, error) {
	if cfg.Key == "" {
		return nil, nil
	}

	var client Client
	switch cfg.Provider {
	case "groq", "openai":
		client = NewOpenAIClient(cfg.Key, cfg.BaseURL)
	case "anthropic":
		client = NewAnthropicClient(cfg.Key)
	default:
		return nil, eris.Errorf("llm: unsupported provider %q", cfg.Provider)
	}

	return WithRateLimit(client, cfg.RequestsPerMinute), nil
}
