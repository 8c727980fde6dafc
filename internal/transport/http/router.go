package http

import (
	"net/http"
	"time"

	"dsa-quiz-service/internal/app"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultMaxQuestions caps num_questions when RouterOptions leaves it unset.
const DefaultMaxQuestions = 50

// RouterOptions tunes the HTTP surface.
type RouterOptions struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	MaxQuestions   int
}

// NewRouter mounts the JSON API and the websocket endpoint.
func NewRouter(service *app.QuizService, auth *Auth, opts RouterOptions) http.Handler {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"http://localhost:3000"}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 90 * time.Second
	}
	if opts.MaxQuestions <= 0 {
		opts.MaxQuestions = DefaultMaxQuestions
	}

	api := NewAPI(service, auth).WithMaxQuestions(opts.MaxQuestions)
	ws := NewWSHandler(service)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))
		r.Post("/session", api.CreateSession)
		r.Get("/topics", api.Topics)
		r.Get("/practice", api.Practice)
		r.Get("/leaderboard", api.Leaderboard)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)
			r.Post("/quizzes", api.StartQuiz)
			r.Get("/quizzes/current", api.CurrentQuiz)
			r.Post("/submit-quiz", api.SubmitQuiz)
			r.Post("/explain", api.Explain)
			r.Post("/code-help", api.CodeHelp)
			r.Get("/progress", api.Progress)
		})
	})

	// websockets outlive the request timeout, so /ws sits outside /api
	r.With(auth.Middleware).Get("/ws", ws.ServeWS)
	return r
}
