package utils

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// NewExponentialBackoff creates the backoff used to connect to a
// networked storage backend at boot.
func NewExponentialBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 5 * time.Minute
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.1
	return b
}

// NewConstantBackoff creates the fixed-delay backoff used when retrying
// upstream price fetches triggered by a direct user action.
func NewConstantBackoff(delay time.Duration) *backoff.ConstantBackOff {
	return backoff.NewConstantBackOff(delay)
}
