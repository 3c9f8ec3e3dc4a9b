package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RecordStore keeps session records as plain Redis strings under trivia:record:{key}.
// It implements app.RecordStore.
type RecordStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRecordStore builds a store; ttl <= 0 keeps records forever.
func NewRecordStore(client *redis.Client, ttl time.Duration) *RecordStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RecordStore{client: client, ttl: ttl}
}

func (s *RecordStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *RecordStore) Save(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, s.key(key), data, s.ttl).Err()
}

func (s *RecordStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Ping checks connectivity; used at startup to fall back to memory when Redis is down.
func (s *RecordStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RecordStore) key(key string) string {
	return "trivia:record:" + key
}
