package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dsa-quiz-service/internal/app"
	"dsa-quiz-service/internal/config"
	"dsa-quiz-service/internal/infra/catalog"
	"dsa-quiz-service/internal/infra/memory"
	"dsa-quiz-service/internal/infra/openrouter"
	"dsa-quiz-service/internal/infra/postgres"
	redisinfra "dsa-quiz-service/internal/infra/redis"
	"dsa-quiz-service/internal/infra/sqlite"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

type quizRepository interface {
	app.QuizRepository
	app.QuizStore
}

// backends holds the connections opened for a running server.
type backends struct {
	closers []func() error
}

func (b *backends) add(fn func() error) { b.closers = append(b.closers, fn) }

func (b *backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

// buildService picks storage and LLM backends from cfg: Postgres when a URL is set,
// Redis for the cache and attempts when an address is set, memory otherwise.
func buildService(ctx context.Context, cfg config.Config) (*app.QuizService, *backends, error) {
	b := &backends{}

	cat, err := catalog.Load(cfg.Quiz.Catalog)
	if err != nil {
		return nil, b, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.add(redisClient.Close)
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, b, fmt.Errorf("connect postgres: %w", err)
		}
		b.add(func() error { pool.Close(); return nil })
	}

	var loader memory.QuizLoader = memory.NewQuizStore(nil)
	if pool != nil {
		loader = postgres.NewQuizStore(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes quizRepository
	if redisClient != nil {
		quizzes = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	var attempts app.AttemptRepository = memory.NewAttemptStore()
	if redisClient != nil {
		attempts = redisinfra.NewAttemptStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
	}

	progress, err := buildProgress(ctx, cfg, pool, b)
	if err != nil {
		return nil, b, err
	}

	var llm app.Completer
	client := openrouter.NewClient(openrouter.Config{
		URL:     cfg.LLM.URL,
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		Timeout: config.TTLDuration(cfg.LLM.Timeout, 60*time.Second),
	})
	if client.Configured() {
		llm = client
	} else {
		slog.Warn("OPENROUTER_API_KEY not set, quizzes will use offline fallbacks")
	}

	service := app.NewQuizService(app.Deps{
		Catalog:   cat,
		Generator: app.NewGenerator(cat, llm).WithDefaultCount(cfg.Quiz.DefaultQuestions),
		Quizzes:   quizzes,
		Store:     quizzes,
		Attempts:  attempts,
		Progress:  progress,
		LLM:       llm,
	})
	return service, b, nil
}

func buildProgress(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, b *backends) (app.ProgressRepository, error) {
	driver := cfg.Progress.Driver
	if driver == "" && pool != nil {
		driver = "postgres"
	}
	switch driver {
	case "", "memory":
		return memory.NewProgressStore(), nil
	case "postgres":
		if pool == nil {
			return nil, errNoPostgres
		}
		return postgres.NewProgressStore(pool), nil
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		b.add(db.Close)
		return sqlite.NewProgressStore(db), nil
	default:
		return nil, fmt.Errorf("unknown progress driver %q", driver)
	}
}
