package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dsa-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizStore keeps generated quizzes as JSONB in Postgres.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (s *QuizStore) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quizzes (id, topic_id, data, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		quiz.ID, quiz.TopicID, raw, quiz.GeneratedAt)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}
