package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/logger"
)

// Backoff policy for rate-limited providers.
const (
	maxRetryAttempts = 5
	baseRetryDelay   = time.Second
	maxRetryDelay    = 5 * time.Minute
)

// RateLimitError signals a 429-equivalent response. RetryAfter is zero when
// the provider supplied no hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// rateLimitClock is the shared cooldown for one provider. Every request to
// that provider within the process waits on the same clock, so concurrent
// warmers can't stampede a provider that just told us to back off.
type rateLimitClock struct {
	mu      sync.Mutex
	resetAt time.Time
}

// wait blocks until the cooldown has elapsed, or the context is done.
func (c *rateLimitClock) wait(ctx context.Context) error {
	c.mu.Lock()
	resetAt := c.resetAt
	c.mu.Unlock()

	delay := time.Until(resetAt)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// push extends the cooldown. A cooldown is always persisted on a rate-limit
// response, header or not, so every caller observes it.
func (c *rateLimitClock) push(until time.Time) {
	c.mu.Lock()
	if until.After(c.resetAt) {
		c.resetAt = until
	}
	c.mu.Unlock()
}

// retryDelay computes the delay before the given attempt (0-based):
// the provider-supplied hint when present, otherwise base·2^attempt,
// capped either way.
func retryDelay(rle *RateLimitError, attempt int) time.Duration {
	delay := rle.RetryAfter
	if delay <= 0 {
		delay = baseRetryDelay << uint(attempt)
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

// withRetry runs call, honoring the shared cooldown before each attempt and
// retrying rate-limit errors with capped exponential backoff. Non-rate-limit
// errors are returned immediately: the provider chain treats them as
// "no data" without retry.
func withRetry(ctx context.Context, clock *rateLimitClock, provider string, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetryAttempts; attempt++ {
		if err := clock.wait(ctx); err != nil {
			return err
		}

		err := call(ctx)
		if err == nil {
			return nil
		}

		rle, ok := err.(*RateLimitError)
		if !ok {
			return err
		}

		delay := retryDelay(rle, attempt)
		clock.push(time.Now().Add(delay))
		lastErr = err
		logger.Warn("provider rate limited, backing off",
			logger.String("provider", provider),
			logger.Int("attempt", attempt+1),
			logger.Duration("delay", delay))
	}
	return fmt.Errorf("%s: rate limit retries exhausted: %w", provider, lastErr)
}
