package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryProfile names one backoff profile (§4.10: "Two profiles: LLM calls
// ... graph writes ...").
type RetryProfile struct {
	MaxAttempts int
	Initial     time.Duration
	Cap         time.Duration
	Jitter      time.Duration
}

// LLMRetryProfile and GraphRetryProfile mirror spec §4.10's stated
// defaults exactly.
func LLMRetryProfile() RetryProfile {
	return RetryProfile{MaxAttempts: 3, Initial: time.Second, Cap: 30 * time.Second, Jitter: 5 * time.Second}
}

func GraphRetryProfile() RetryProfile {
	return RetryProfile{MaxAttempts: 4, Initial: 200 * time.Millisecond, Cap: 10 * time.Second, Jitter: 2 * time.Second}
}

// IsTransient lets a caller mark which errors are retry-eligible;
// "Non-transient exceptions are not retried" (§4.10).
type IsTransient func(error) bool

// Retry runs fn up to profile.MaxAttempts times with exponential backoff
// plus jitter, stopping immediately on a non-transient error or ctx
// cancellation.
func Retry[T any](ctx context.Context, profile RetryProfile, transient IsTransient, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	backoff := profile.Initial

	for attempt := 1; attempt <= profile.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !transient(err) {
			return zero, err
		}
		if attempt == profile.MaxAttempts {
			break
		}

		wait := backoff
		if wait > profile.Cap {
			wait = profile.Cap
		}
		if profile.Jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(profile.Jitter)))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return zero, lastErr
}

// DefaultIsTransient treats context deadline/cancellation as non-transient
// (no point retrying a cancelled call) and everything else as transient;
// callers with a richer error taxonomy (e.g. worldrag.Classify) should
// supply their own IsTransient.
func DefaultIsTransient(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
