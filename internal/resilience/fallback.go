package resilience

import "context"

// WithFallback wraps fn so that a computed fallback value is used when fn
// fails. The fallback itself is never retried or circuit-guarded; it must be
// side-effect-free and fast.
func WithFallback[T any](fn func(context.Context) (T, error), fallback func(context.Context) T) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		value, err := fn(ctx)
		if err != nil {
			return fallback(ctx), nil
		}
		return value, nil
	}
}
