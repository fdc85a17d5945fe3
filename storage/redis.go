package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"hyprice/models"
)

const subscribersKey = "hyprice:subscribers"

// RedisStore keeps subscriber state in one hash, one JSON value per
// subscriber id.
type RedisStore struct {
	rdb     *redis.Client
	timeout time.Duration
}

// NewRedisStore creates a RedisStore and pings the server.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{rdb: rdb, timeout: 10 * time.Second}, nil
}

func (r *RedisStore) Load() (map[int64]*models.Subscriber, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	fields, err := r.rdb.HGetAll(ctx, subscribersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load subscribers: %w", err)
	}

	subs := make(map[int64]*models.Subscriber, len(fields))
	for field, raw := range fields {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad subscriber key %q: %w", field, err)
		}
		sub := &models.Subscriber{}
		if err := json.Unmarshal([]byte(raw), sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscriber %d: %w", id, err)
		}
		subs[id] = sub
	}
	return subs, nil
}

func (r *RedisStore) Save(subs map[int64]*models.Subscriber) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	values := make(map[string]interface{}, len(subs))
	for id, sub := range subs {
		b, err := json.Marshal(sub)
		if err != nil {
			return fmt.Errorf("failed to encode subscriber %d: %w", id, err)
		}
		values[strconv.FormatInt(id, 10)] = b
	}

	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, subscribersKey)
	if len(values) > 0 {
		pipe.HSet(ctx, subscribersKey, values)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save subscribers: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
