package syncer

import (
	"context"
	"time"
)

// RetryPolicy is exponential backoff without jitter: the delay after failure i
// is BaseDelay * 2^(i-1). No cap applies beyond MaxAttempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy allows 5 attempts starting at 1s (1s, 2s, 4s, 8s, 16s)
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second}
}

// Delay returns the wait after the given 1-based failure
func (p RetryPolicy) Delay(failure int) time.Duration {
	if failure < 1 {
		return 0
	}
	return p.BaseDelay * time.Duration(1<<uint(failure-1))
}

// Delays lists the waits between consecutive attempts. No wait follows the last attempt.
func (p RetryPolicy) Delays() []time.Duration {
	out := make([]time.Duration, 0, p.MaxAttempts)
	for i := 1; i < p.MaxAttempts; i++ {
		out = append(out, p.Delay(i))
	}
	return out
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
