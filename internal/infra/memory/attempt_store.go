package memory

import (
	"context"
	"sync"

	"dsa-quiz-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
	}
}

func (s *AttemptStore) Put(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.UserID] = attempt
	return nil
}

func (s *AttemptStore) Get(_ context.Context, userID string) (domain.Attempt, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[userID]
	return attempt, ok, nil
}

func (s *AttemptStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, userID)
	return nil
}
