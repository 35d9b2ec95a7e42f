package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avrorin/estate-api/internal/core/port"
)

// RateLimitStore keeps per-identifier attempt timestamps in a Redis sorted
// set scored by nanosecond time, forming a sliding window.
type RateLimitStore struct {
	client    *redis.Client
	keyPrefix string
	keyTTL    time.Duration
}

// NewRateLimitStore constructs a store using the provided Redis client.
// keyTTL bounds the lifetime of idle keys so abandoned identifiers expire.
func NewRateLimitStore(client *redis.Client, keyPrefix string, keyTTL time.Duration) *RateLimitStore {
	return &RateLimitStore{client: client, keyPrefix: keyPrefix, keyTTL: keyTTL}
}

// RecordAttempt appends an attempt timestamp and refreshes the key TTL.
func (s *RateLimitStore) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	key := s.key(identifier)
	nanos := at.UnixNano()

	if err := s.client.ZAdd(ctx, key, redis.Z{Score: float64(nanos), Member: nanos}).Err(); err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}

	if s.keyTTL > 0 {
		if err := s.client.Expire(ctx, key, s.keyTTL).Err(); err != nil {
			return fmt.Errorf("redis expire: %w", err)
		}
	}

	return nil
}

// CountAttempts returns how many attempts fall inside the window ending at
// the reference time.
func (s *RateLimitStore) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	min, max := windowBounds(window, reference)

	count, err := s.client.ZCount(ctx, s.key(identifier), min, max).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}

	return int(count), nil
}

// TrimWindow drops attempts that slid out of the window.
func (s *RateLimitStore) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}

	min, _ := windowBounds(window, reference)

	if err := s.client.ZRemRangeByScore(ctx, s.key(identifier), "-inf", min).Err(); err != nil {
		return fmt.Errorf("redis zremrangebyscore: %w", err)
	}

	return nil
}

// OldestAttempt returns the earliest attempt still inside the window, used to
// compute the Retry-After hint.
func (s *RateLimitStore) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errors.New("window must be positive")
	}

	min, max := windowBounds(window, reference)

	values, err := s.client.ZRangeByScore(ctx, s.key(identifier), &redis.ZRangeBy{
		Min:   min,
		Max:   max,
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis zrangebyscore: %w", err)
	}
	if len(values) == 0 {
		return time.Time{}, false, nil
	}

	nanos, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse attempt timestamp: %w", err)
	}

	return time.Unix(0, nanos), true, nil
}

func (s *RateLimitStore) key(identifier string) string {
	if s.keyPrefix == "" {
		return identifier
	}
	return s.keyPrefix + ":" + identifier
}

func windowBounds(window time.Duration, reference time.Time) (string, string) {
	min := fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano()))
	max := fmt.Sprintf("%f", float64(reference.UnixNano()))
	return min, max
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
