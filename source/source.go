package source

import (
	"context"

	"hyprice/models"
)

// PriceSource fetches a fresh price snapshot for one token address.
// Fetches may fail transiently; retry policy is the caller's concern
// (see Retrier).
type PriceSource interface {
	Fetch(ctx context.Context, address string) (models.Snapshot, error)
}
