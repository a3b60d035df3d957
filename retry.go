package ohlcv

import "time"

// RetryPolicy bounds repeated page requests. The backoff delay grows
// linearly with the number of failed attempts.
type RetryPolicy struct {
	MaxAttempts int
	BackoffStep time.Duration
}

func (rp *RetryPolicy) Backoff(failedAttempts int) time.Duration {
	return time.Duration(failedAttempts) * rp.BackoffStep
}
