package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"dsa-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// QuizRepository caches quizzes with TTL to avoid repeated DB hits.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.cached(quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.put(quiz)
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
	r.put(quiz)
	return nil
}

func (r *QuizRepository) cached(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (r *QuizRepository) put(quiz domain.Quiz) {
	expiresAt := r.clock().Add(r.ttlWithJitter())
	r.mu.Lock()
	r.cache[quiz.ID] = cachedQuiz{quiz: quiz, expiresAt: expiresAt}
	r.mu.Unlock()
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
