package storage

import (
	"context"

	"hyprice/models"
)

// PersistenceBackend loads and saves the full subscriber state. The
// in-memory state stays authoritative for the running process; save
// failures are logged by callers and never rolled back.
type PersistenceBackend interface {
	Load() (map[int64]*models.Subscriber, error)
	Save(subs map[int64]*models.Subscriber) error
	Ping(ctx context.Context) error
	Close() error
}
