package postgres

import (
	"context"
	"errors"
	"fmt"

	"dsa-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProgressStore keeps personal bests in the quiz_progress table.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

const progressColumns = `topic_id, score, correct_answers, total_questions, passed, difficulty, last_attempt`

func (s *ProgressStore) Get(ctx context.Context, userID, topicID string) (domain.Progress, bool, error) {
	p := domain.Progress{UserID: userID}
	err := s.pool.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM quiz_progress WHERE user_id=$1 AND topic_id=$2`,
		userID, topicID,
	).Scan(&p.TopicID, &p.Score, &p.Correct, &p.Total, &p.Passed, &p.Difficulty, &p.LastAttempt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Progress{}, false, nil
	}
	if err != nil {
		return domain.Progress{}, false, fmt.Errorf("get progress: %w", err)
	}
	return p, true, nil
}

func (s *ProgressStore) Save(ctx context.Context, p domain.Progress) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_progress (user_id, `+progressColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, topic_id) DO UPDATE SET
			score = EXCLUDED.score,
			correct_answers = EXCLUDED.correct_answers,
			total_questions = EXCLUDED.total_questions,
			passed = EXCLUDED.passed,
			difficulty = EXCLUDED.difficulty,
			last_attempt = EXCLUDED.last_attempt`,
		p.UserID, p.TopicID, p.Score, p.Correct, p.Total, p.Passed, p.Difficulty, p.LastAttempt)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) List(ctx context.Context, userID string) ([]domain.Progress, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+progressColumns+` FROM quiz_progress WHERE user_id=$1 ORDER BY topic_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Progress, 0)
	for rows.Next() {
		p := domain.Progress{UserID: userID}
		if err := rows.Scan(&p.TopicID, &p.Score, &p.Correct, &p.Total, &p.Passed, &p.Difficulty, &p.LastAttempt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Top returns the best limit rows across users.
func (s *ProgressStore) Top(ctx context.Context, limit int) ([]domain.Progress, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, `+progressColumns+` FROM quiz_progress
		 ORDER BY score DESC, last_attempt ASC, user_id ASC, topic_id ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top progress: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Progress, 0)
	for rows.Next() {
		var p domain.Progress
		if err := rows.Scan(&p.UserID, &p.TopicID, &p.Score, &p.Correct, &p.Total, &p.Passed, &p.Difficulty, &p.LastAttempt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
