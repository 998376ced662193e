package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Default backoff constants
const (
	defaultMaxRetries   = 3
	defaultInitialDelay = 500 * time.Millisecond
	defaultMaxDelay     = 10 * time.Second
	defaultBase         = 2.0
)

// RetryConfig controls the retry schedule
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Base         float64
}

// DefaultRetryConfig returns the standard schedule used for external calls
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   defaultMaxRetries,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		Base:         defaultBase,
	}
}

// Retry invokes fn and retries it up to MaxRetries additional times on error.
// Delays grow as min(InitialDelay * Base^attempt, MaxDelay) with symmetric
// ±50% jitter so synchronized callers spread out. The last error is returned
// after exhaustion; a canceled context aborts the wait.
func Retry(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffDelay(cfg, attempt-1)):
			}
		}

		if err := fn(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// backoffDelay returns the jittered delay for a given attempt number
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	base := cfg.Base
	if base <= 0 {
		base = defaultBase
	}

	delay := float64(cfg.InitialDelay) * math.Pow(base, float64(attempt))
	if max := float64(cfg.MaxDelay); cfg.MaxDelay > 0 && delay > max {
		delay = max
	}

	// jitter in [-delay/2, +delay/2]
	delay += (rand.Float64() - 0.5) * delay

	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}
