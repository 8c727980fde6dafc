package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"dsa-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// QuizRepository caches whole quizzes in Redis and falls back to a loader on cache miss.
// Quizzes are stored as JSON: SET quiz:{quizID} {json} EX ttl
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.store(ctx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// SaveQuiz writes through to the loader and primes the cache.
func (r *QuizRepository) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := r.loader.SaveQuiz(ctx, quiz); err != nil {
		return err
	}
	r.store(ctx, quiz)
	return nil
}

func (r *QuizRepository) cached(ctx context.Context, quizID string) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, r.key(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("quiz cache read failed", "quiz_id", quizID, "error", err)
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

// store is best-effort; the loader stays the source of truth.
func (r *QuizRepository) store(ctx context.Context, quiz domain.Quiz) {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.key(quiz.ID), raw, r.ttlWithJitter()).Err(); err != nil {
		slog.Warn("quiz cache write failed", "quiz_id", quiz.ID, "error", err)
	}
}

func (r *QuizRepository) key(quizID string) string {
	return "quiz:" + quizID
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
