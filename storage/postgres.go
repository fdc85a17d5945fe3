package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"hyprice/models"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS subscribers (
	id BIGINT PRIMARY KEY,
	state JSONB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps one JSONB document per subscriber.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db, timeout: 10 * time.Second}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load() (map[int64]*models.Subscriber, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT id, state FROM subscribers`)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscribers: %w", err)
	}
	defer rows.Close()

	subs := map[int64]*models.Subscriber{}
	for rows.Next() {
		var (
			id    int64
			state []byte
		)
		if err := rows.Scan(&id, &state); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber row: %w", err)
		}
		sub := &models.Subscriber{}
		if err := json.Unmarshal(state, sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscriber %d: %w", id, err)
		}
		subs[id] = sub
	}
	return subs, rows.Err()
}

func (s *PostgresStore) Save(subs map[int64]*models.Subscriber) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(subs))
	for id, sub := range subs {
		state, err := json.Marshal(sub)
		if err != nil {
			return fmt.Errorf("failed to encode subscriber %d: %w", id, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO subscribers (id, state, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()`,
			id, state)
		if err != nil {
			return fmt.Errorf("failed to upsert subscriber %d: %w", id, err)
		}
		ids = append(ids, id)
	}

	// Drop rows for subscribers removed from the in-memory state.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM subscribers WHERE NOT (id = ANY($1))`, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to prune subscribers: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
