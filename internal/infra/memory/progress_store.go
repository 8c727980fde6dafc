package memory

import (
	"context"
	"sort"
	"sync"

	"dsa-quiz-service/internal/domain"
)

type progressKey struct {
	user  string
	topic string
}

// ProgressStore keeps personal bests in memory.
type ProgressStore struct {
	mu   sync.RWMutex
	rows map[progressKey]domain.Progress
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{rows: make(map[progressKey]domain.Progress)}
}

func (s *ProgressStore) Get(_ context.Context, userID, topicID string) (domain.Progress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.rows[progressKey{userID, topicID}]
	return p, ok, nil
}

func (s *ProgressStore) Save(_ context.Context, p domain.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[progressKey{p.UserID, p.TopicID}] = p
	return nil
}

// List returns the user's rows ordered by topic id.
func (s *ProgressStore) List(_ context.Context, userID string) ([]domain.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Progress, 0)
	for k, p := range s.rows {
		if k.user == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	return out, nil
}

// Top returns up to limit rows across all users, best score first. Ties go to the
// earlier attempt, then user and topic id.
func (s *ProgressStore) Top(_ context.Context, limit int) ([]domain.Progress, error) {
	s.mu.RLock()
	out := make([]domain.Progress, 0, len(s.rows))
	for _, p := range s.rows {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.LastAttempt.Equal(b.LastAttempt) {
			return a.LastAttempt.Before(b.LastAttempt)
		}
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return a.TopicID < b.TopicID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
