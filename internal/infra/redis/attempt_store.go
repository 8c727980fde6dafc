package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dsa-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AttemptStore keeps each user's active attempt in Redis so any instance can score it.
// Attempts expire after ttl; an expired attempt reads as absent.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) Put(ctx context.Context, attempt domain.Attempt) error {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(attempt.UserID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("put attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, userID string) (domain.Attempt, bool, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Attempt{}, false, nil
	}
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("get attempt: %w", err)
	}
	var attempt domain.Attempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return domain.Attempt{}, false, fmt.Errorf("decode attempt: %w", err)
	}
	return attempt, true, nil
}

func (s *AttemptStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *AttemptStore) key(userID string) string {
	return "quiz:attempt:" + userID
}
