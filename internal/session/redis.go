package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisStore keeps session records as JSON values with a TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore returns a Store backed by rdb.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(token string) string {
	return keyPrefix + HashToken(token)
}

func (s *RedisStore) Create(ctx context.Context, userID uint) (string, Record, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", Record{}, fmt.Errorf("generate session token: %w", err)
	}
	rec := newRecord(userID, time.Now(), s.ttl)

	payload, err := json.Marshal(rec)
	if err != nil {
		return "", Record{}, fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, key(token), payload, s.ttl).Err(); err != nil {
		return "", Record{}, fmt.Errorf("store session: %w", err)
	}
	return token, rec, nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (Record, error) {
	if token == "" {
		return Record{}, ErrSessionNotFound
	}
	payload, err := s.rdb.Get(ctx, key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrSessionNotFound
		}
		return Record{}, fmt.Errorf("load session: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session: %w", err)
	}
	if rec.Expired(time.Now()) {
		return Record{}, ErrSessionNotFound
	}
	return rec, nil
}

// Delete removes the session; unknown tokens are not an error.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.rdb.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
