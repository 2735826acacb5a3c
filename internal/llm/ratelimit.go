package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// rateLimitedClient wraps another Client with a token-bucket limiter so
// batch runs stay under the provider's per-minute request quota.
type rateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// WithRateLimit caps calls to perMinute requests per minute. A perMinute
// of zero or less disables limiting and returns the client unchanged.
func WithRateLimit(c Client, perMinute int) Client {
	if perMinute <= 0 {
		return c
	}
	return &rateLimitedClient{
		inner:   c,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
	}
}

func (c *rateLimitedClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "llm: rate limit wait")
	}
	return c.inner.Complete(ctx, req)
}
