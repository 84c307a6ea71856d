package subscriber

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
)

const keySubscribers = "tracker:subscribers"

// RedisStore persists the subscriber set in a Redis set so subscriptions
// survive process restarts. The event cache stays memory-resident; only
// membership is persisted.
type RedisStore struct {
	rdb *redis.Client
	log logger.Logger
}

// NewRedisStore creates a Redis-backed subscriber store
func NewRedisStore(rdb *redis.Client, log logger.Logger) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		log: log.With(logger.F("component", "subscriber-store")),
	}
}

// Add inserts a subscriber; reports whether it was newly added
func (s *RedisStore) Add(ctx context.Context, chatID int64) (bool, error) {
	added, err := s.rdb.SAdd(ctx, keySubscribers, chatID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to add subscriber: %w", err)
	}
	return added > 0, nil
}

// Remove deletes a subscriber; reports whether it was present
func (s *RedisStore) Remove(ctx context.Context, chatID int64) (bool, error) {
	removed, err := s.rdb.SRem(ctx, keySubscribers, chatID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove subscriber: %w", err)
	}
	return removed > 0, nil
}

// List returns a snapshot of the current members
func (s *RedisStore) List(ctx context.Context) ([]int64, error) {
	raw, err := s.rdb.SMembers(ctx, keySubscribers).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}

	members := make([]int64, 0, len(raw))
	for _, v := range raw {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.log.Warn("skipping malformed subscriber entry", logger.F("value", v))
			continue
		}
		members = append(members, id)
	}
	return members, nil
}

// Count reports the current membership size
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.rdb.SCard(ctx, keySubscribers).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return int(n), nil
}
