package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "visionbot:pending:"

// Redis keeps pending results in Redis so several bot replicas share them.
type Redis struct {
	rdb    *redis.Client
	maxAge time.Duration
}

func NewRedis(rdb *redis.Client, maxAge time.Duration) *Redis {
	return &Redis{rdb: rdb, maxAge: maxAge}
}

func (s *Redis) key(conversationID string) string {
	return redisKeyPrefix + conversationID
}

func (s *Redis) Put(ctx context.Context, conversationID string, r PendingResult) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	js, err := json.Marshal(r)
	if err != nil {
		return err
	}
	// ttl 0 means no expiration
	if err := s.rdb.Set(ctx, s.key(conversationID), js, s.maxAge).Err(); err != nil {
		return fmt.Errorf("redis put %s: %w", conversationID, err)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, conversationID string) (PendingResult, bool, error) {
	js, err := s.rdb.Get(ctx, s.key(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return PendingResult{}, false, nil
	}
	if err != nil {
		return PendingResult{}, false, fmt.Errorf("redis get %s: %w", conversationID, err)
	}
	var r PendingResult
	if err := json.Unmarshal(js, &r); err != nil {
		// broken entry counts as absent
		return PendingResult{}, false, nil
	}
	if expired(r, s.maxAge, time.Now()) {
		return PendingResult{}, false, nil
	}
	return r, true, nil
}

func (s *Redis) Close() error {
	return s.rdb.Close()
}
