// Package sqlite stores per-user quiz progress in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dsa-quiz-service/internal/domain"
	_ "modernc.org/sqlite" // driver: sqlite
)

const schema = `
CREATE TABLE IF NOT EXISTS quiz_progress (
  user_id TEXT NOT NULL,
  topic_id TEXT NOT NULL,
  score REAL NOT NULL DEFAULT 0,
  correct_answers INTEGER NOT NULL DEFAULT 0,
  total_questions INTEGER NOT NULL DEFAULT 0,
  passed INTEGER NOT NULL DEFAULT 0,
  difficulty TEXT NOT NULL DEFAULT 'mixed',
  last_attempt INTEGER NOT NULL,
  PRIMARY KEY (user_id, topic_id)
);
`

// Open opens (creating if needed) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = "quiz.db"
	}
	dsn := "file:" + path + "?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}
	return db, nil
}

// ProgressStore implements app.ProgressRepository on SQLite.
type ProgressStore struct {
	db *sql.DB
}

func NewProgressStore(db *sql.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

const columns = `topic_id, score, correct_answers, total_questions, passed, difficulty, last_attempt`

type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(row scanner, userID string) (domain.Progress, error) {
	p := domain.Progress{UserID: userID}
	var passed int
	var last int64
	if err := row.Scan(&p.TopicID, &p.Score, &p.Correct, &p.Total, &passed, &p.Difficulty, &last); err != nil {
		return domain.Progress{}, err
	}
	p.Passed = passed != 0
	p.LastAttempt = time.UnixMilli(last).UTC()
	return p, nil
}

func (s *ProgressStore) Get(ctx context.Context, userID, topicID string) (domain.Progress, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM quiz_progress WHERE user_id = ? AND topic_id = ?`, userID, topicID)
	p, err := scanProgress(row, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Progress{}, false, nil
	}
	if err != nil {
		return domain.Progress{}, false, fmt.Errorf("get progress: %w", err)
	}
	return p, true, nil
}

func (s *ProgressStore) Save(ctx context.Context, p domain.Progress) error {
	passed := 0
	if p.Passed {
		passed = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quiz_progress (user_id, `+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, topic_id) DO UPDATE SET
			score = excluded.score,
			correct_answers = excluded.correct_answers,
			total_questions = excluded.total_questions,
			passed = excluded.passed,
			difficulty = excluded.difficulty,
			last_attempt = excluded.last_attempt`,
		p.UserID, p.TopicID, p.Score, p.Correct, p.Total, passed, p.Difficulty, p.LastAttempt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) List(ctx context.Context, userID string) ([]domain.Progress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM quiz_progress WHERE user_id = ? ORDER BY topic_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Progress, 0)
	for rows.Next() {
		p, err := scanProgress(rows, userID)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Top returns the best limit rows across users.
func (s *ProgressStore) Top(ctx context.Context, limit int) ([]domain.Progress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, `+columns+` FROM quiz_progress
		 ORDER BY score DESC, last_attempt ASC, user_id ASC, topic_id ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top progress: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Progress, 0)
	for rows.Next() {
		var userID string
		p, err := scanProgress(userScanner{rows, &userID}, "")
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		p.UserID = userID
		out = append(out, p)
	}
	return out, rows.Err()
}

// userScanner peels a leading user_id column off before the progress columns.
type userScanner struct {
	row    scanner
	userID *string
}

func (u userScanner) Scan(dest ...any) error {
	return u.row.Scan(append([]any{u.userID}, dest...)...)
}
