package codec

import (
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// #region constants

const defaultMaxRetries = 2 // 3 total attempts

// #endregion

// #region policy

// RetryPolicy decides whether a failed predict call is tried again.
type RetryPolicy struct {
	// MaxRetries bounds the extra attempts after the first.
	MaxRetries int

	// Backoff is the delay before the first retry; it doubles per retry.
	Backoff time.Duration
}

// DefaultRetryPolicy retries transient failures twice.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: defaultMaxRetries, Backoff: 100 * time.Millisecond}
}

// NoRetry makes every failure final.
func NoRetry() RetryPolicy { return RetryPolicy{} }

// #endregion

// #region should-retry

// ShouldRetry reports whether to try again after err. attempts counts every
// call made so far, including the one that produced err.
func (p RetryPolicy) ShouldRetry(err error, attempts int) bool {
	if err == nil || attempts > p.MaxRetries {
		return false
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}

// Delay returns the wait before retry number n (1-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	if p.Backoff <= 0 || n < 1 {
		return 0
	}
	return p.Backoff << (n - 1)
}

// #endregion
