package source

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"hyprice/models"
	"hyprice/utils"
)

// Retrier decorates a PriceSource with a fixed-delay retry loop for
// direct user actions. Scheduled ticks call the underlying source
// directly and accept a single failed attempt, so one stuck token never
// blocks a whole tick.
type Retrier struct {
	src        PriceSource
	delay      time.Duration
	maxRetries uint64 // 0 means retry until the context is cancelled
}

func NewRetrier(src PriceSource, delay time.Duration, maxRetries uint64) *Retrier {
	return &Retrier{src: src, delay: delay, maxRetries: maxRetries}
}

func (r *Retrier) Fetch(ctx context.Context, address string) (models.Snapshot, error) {
	var pol backoff.BackOff = utils.NewConstantBackoff(r.delay)
	if r.maxRetries > 0 {
		pol = backoff.WithMaxRetries(pol, r.maxRetries)
	}
	pol = backoff.WithContext(pol, ctx)

	var snap models.Snapshot
	operation := func() error {
		s, err := r.src.Fetch(ctx, address)
		if err != nil {
			return err
		}
		snap = s
		return nil
	}

	err := backoff.RetryNotify(operation, pol,
		func(err error, duration time.Duration) {
			utils.Logger.Warnw("Price fetch failed, retrying",
				"token", address,
				"retry_in", duration,
				"error", err)
		})
	if err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}
