package memory

import (
	"context"
	"sync"

	"dsa-quiz-service/internal/domain"
)

// QuizStore is an in-memory QuizLoader (useful for tests/demos).
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewQuizStore(seed map[string]domain.Quiz) *QuizStore {
	quizzes := make(map[string]domain.Quiz, len(seed))
	for id, q := range seed {
		quizzes[id] = q
	}
	return &QuizStore{quizzes: quizzes}
}

func (s *QuizStore) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if quiz, ok := s.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (s *QuizStore) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	s.quizzes[quiz.ID] = quiz
	s.mu.Unlock()
	return nil
}
