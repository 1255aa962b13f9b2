package retry

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Policy describes exponential backoff: the first retry waits BaseDelay,
// each subsequent retry multiplies the wait by Multiplier.
type Policy struct {
	BaseDelay   time.Duration
	Multiplier  float64
	MaxAttempts int
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable: Do returns it immediately
// instead of burning the remaining attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn up to MaxAttempts times, sleeping between attempts. An
// error wrapped with Permanent stops immediately; otherwise the last
// error is returned once every attempt fails. Context cancellation
// aborts the wait.
func Do[T any](ctx context.Context, p Policy, op string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := p.BaseDelay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err
		if attempt == p.MaxAttempts {
			break
		}
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Dur("delay", delay).Msg("Attempt failed, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		delay = time.Duration(float64(delay) * p.Multiplier)
	}
	return zero, lastErr
}
