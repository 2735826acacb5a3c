package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scentlab/accord/internal/config"
)

func TestNewClient_NoKey(t *testing.T) {
	client, err := NewClient(config.LLMConfig{Provider: "groq"})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewClient_Providers(t *testing.T) {
	for _, provider := range []string{"groq", "openai", "anthropic"} {
		client, err := NewClient(config.LLMConfig{Provider: provider, Key: "test-key"})
		require.NoError(t, err, provider)
		assert.NotNil(t, client, provider)
	}
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient(config.LLMConfig{Provider: "cohere", Key: "test-key"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

type stubClient struct {
	calls int
}

func (s *stubClient) Complete(ctx context.Context, req Request) (string, error) {
	s.calls++
	return "ok", nil
}

func TestWithRateLimit_Disabled(t *testing.T) {
	stub := &stubClient{}
	assert.Equal(t, Client(stub), WithRateLimit(stub, 0))
}

func TestWithRateLimit_PassesThrough(t *testing.T) {
	stub := &stubClient{}
	limited := WithRateLimit(stub, 600)

	out, err := limited.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, stub.calls)
}

func TestWithRateLimit_CanceledContext(t *testing.T) {
	stub := &stubClient{}
	limited := WithRateLimit(stub, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// First call consumes the single burst token; the second must wait
	// long enough that the context deadline fires first.
	_, err := limited.Complete(ctx, Request{})
	require.NoError(t, err)
	_, err = limited.Complete(ctx, Request{})
	require.Error(t, err)
	assert.Equal(t, 1, stub.calls)
}
