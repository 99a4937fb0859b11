package retry

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultBaseDelay = time.Second
	DefaultMaxDelay  = 10 * time.Second
)

// Policy bounds how often and how slowly a call is retried.
type Policy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// Retryable decides whether err is worth another attempt.
	// Nil retries every error.
	Retryable func(err error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// Backoff returns the wait before retry n (0-based): BaseDelay·2^n capped at MaxDelay.
func (p Policy) Backoff(n int) time.Duration {
	base, max := p.delays()
	if n > 30 {
		return max
	}
	wait := base << n
	if wait <= 0 || wait > max {
		return max
	}
	return wait
}

func (p Policy) delays() (time.Duration, time.Duration) {
	base, max := p.BaseDelay, p.MaxDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if max <= 0 {
		max = DefaultMaxDelay
	}
	if max < base {
		max = base
	}
	return base, max
}

// Do runs fn until it succeeds, the policy gives up or ctx is done.
// The last error from fn is returned.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= retries || errors.Is(err, context.Canceled) {
			return err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}

		wait := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
