// Package backoff provides delay strategies for the retry package.
package backoff

import (
	"math"
	"time"
)

// Strategy is a function that provides the amount of time to wait before trying
// again. Note: attempts starts at 1
type Strategy func(attempts uint) time.Duration

// Constant returns a strategy that always returns the provided duration.
func Constant(interval time.Duration) Strategy {
	return func(attempts uint) time.Duration {
		return interval
	}
}

// Stepped returns a strategy that waits initial until the number of attempts
// exceeds threshold, and widened afterwards.
//
// Ex. Stepped(1500*time.Millisecond, 20, 3*time.Second) = 1.5s x20, 3s, 3s, ...
func Stepped(initial time.Duration, threshold uint, widened time.Duration) Strategy {
	return func(attempts uint) time.Duration {
		if attempts > threshold {
			return widened
		}
		return initial
	}
}

// Linear returns a strategy that linearly increases based off of the number of
// attempts.
//
// delay = baseDelay * attempts
// Ex. Linear(2*time.Seconds) = 2s, 4s, 6s, 8s, ...
func Linear(baseDelay time.Duration) Strategy {
	return func(attempts uint) time.Duration {
		if delay := baseDelay * time.Duration(attempts); delay >= 0 {
			return delay
		}

		return math.MaxInt64
	}
}

// Exponential returns a strategy that exponentially increases based off of the
// number of attempts.
//
// delay = baseDelay * base^(attempts - 1)
// Ex. Exponential(2*time.Seconds, 3) = 2s, 6s, 18s, 54s, ...
func Exponential(baseDelay time.Duration, base float64) Strategy {
	return func(attempts uint) time.Duration {
		if delay := baseDelay * time.Duration(math.Pow(base, float64(attempts-1))); delay >= 0 {
			return delay
		}

		return math.MaxInt64
	}
}

// BinaryExponential returns an Exponential strategy with a base of 2.0
func BinaryExponential(baseDelay time.Duration) Strategy {
	return Exponential(baseDelay, 2)
}
