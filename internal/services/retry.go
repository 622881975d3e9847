package services

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy retries an operation with exponential backoff and jitter.
// Only errors reported retryable by IsRetryable are attempted again; the
// last error is returned unchanged so callers can classify it.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
}

// DefaultRetryPolicy mirrors the workflow configuration defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Jitter:      0.2,
	}
}

// Do runs op until it succeeds, exhausts attempts, returns a non-retryable
// error, or the context is cancelled.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) || attempt == attempts-1 {
			break
		}
		select {
		case <-time.After(p.withJitter(delay)):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; p.MaxDelay <= 0 || next <= p.MaxDelay {
			delay = next
		} else {
			delay = p.MaxDelay
		}
	}
	return lastErr
}

func (p RetryPolicy) withJitter(delay time.Duration) time.Duration {
	if p.Jitter <= 0 {
		return delay
	}
	spread := float64(delay) * p.Jitter
	offset := (rand.Float64()*2 - 1) * spread
	jittered := time.Duration(float64(delay) + offset)
	if jittered <= 0 {
		return delay
	}
	return jittered
}
