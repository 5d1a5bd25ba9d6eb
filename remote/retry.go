package remote

import (
	"context"
	"time"

	"github.com/toothbrush/site-mirror/site"
)

// RetryPolicy bounds retries of a single remote call.  Each attempt gets its own CallTimeout; there
// is no deadline across calls.
type RetryPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	CallTimeout    time.Duration
}

func DefaultFeedPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:       5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		CallTimeout:    30 * time.Second,
	}
}

func DefaultMutatePolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:       3,
		InitialBackoff: time.Second,
		MaxBackoff:     4 * time.Second,
		CallTimeout:    30 * time.Second,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.InitialBackoff <= 0 {
		return 0
	}
	d := p.InitialBackoff << (attempt - 1)
	if p.MaxBackoff > 0 && (d > p.MaxBackoff || d <= 0) {
		d = p.MaxBackoff
	}
	return d
}

// do calls fn until it succeeds, fails with a non-transient error, or runs out of attempts.  It
// returns how many attempts were made.
func (p RetryPolicy) do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	attempts := max(p.Attempts, 1)
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return attempt, context.Cause(ctx)
			case <-time.After(p.backoff(attempt)):
			}
		}

		lastErr = p.call(ctx, fn)
		if lastErr == nil {
			return attempt + 1, nil
		}
		if ctx.Err() != nil {
			// the run itself was cancelled, not just this call.
			return attempt + 1, lastErr
		}
		if Classify(lastErr) != site.Transient {
			return attempt + 1, lastErr
		}
	}
	return attempts, lastErr
}

func (p RetryPolicy) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.CallTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, p.CallTimeout)
	defer cancel()
	return fn(ctx)
}
