// Package retry re-runs idempotent requests with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Policy holds retry configuration.
type Policy struct {
	Attempts int           // Total attempts including the first (0 = one attempt)
	Base     time.Duration // Wait before the second attempt
	Max      time.Duration // Upper bound for a single wait
	Factor   float64       // Backoff multiplier
	Jitter   float64       // Jitter factor (0-1)
}

// DefaultPolicy returns the policy used for read requests.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 3,
		Base:     100 * time.Millisecond,
		Max:      2 * time.Second,
		Factor:   2.0,
		Jitter:   0.1,
	}
}

// Once is a policy that never retries. Mutating requests use it.
func Once() Policy {
	return Policy{Attempts: 1}
}

type temporaryError struct {
	err error
}

func (e temporaryError) Error() string { return e.err.Error() }
func (e temporaryError) Unwrap() error { return e.err }

// Temporary marks err as worth another attempt.
func Temporary(err error) error {
	if err == nil {
		return nil
	}
	return temporaryError{err: err}
}

// IsTemporary reports whether err was marked with Temporary.
func IsTemporary(err error) bool {
	var te temporaryError
	return errors.As(err, &te)
}

// Backoff returns the wait after the given failed attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	factor := p.Factor
	if factor <= 0 {
		factor = 1
	}
	wait := float64(p.Base) * math.Pow(factor, float64(attempt-1))
	if p.Max > 0 && wait > float64(p.Max) {
		wait = float64(p.Max)
	}
	if p.Jitter > 0 {
		wait += wait * p.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(wait)
}

// Do calls fn until it succeeds, returns an error not marked Temporary, the
// attempts run out, or ctx is done. The temporary marker is stripped from
// the returned error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !IsTemporary(err) || attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.Backoff(attempt)):
		}
	}

	var te temporaryError
	if errors.As(lastErr, &te) {
		return zero, te.err
	}
	return zero, lastErr
}
