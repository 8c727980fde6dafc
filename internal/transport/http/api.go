package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"dsa-quiz-service/internal/app"
	"dsa-quiz-service/internal/domain"
)

// API exposes the quiz use cases as JSON endpoints.
type API struct {
	service      *app.QuizService
	auth         *Auth
	maxQuestions int
}

func NewAPI(service *app.QuizService, auth *Auth) *API {
	return &API{service: service, auth: auth, maxQuestions: DefaultMaxQuestions}
}

// WithMaxQuestions bounds the num_questions a client may ask for.
func (a *API) WithMaxQuestions(n int) *API {
	if n > 0 {
		a.maxQuestions = n
	}
	return a
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps domain errors onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoActiveAttempt):
		writeError(w, http.StatusBadRequest, "No active quiz session")
	case errors.Is(err, domain.ErrTopicNotFound), errors.Is(err, domain.ErrQuizNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAIUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrAIFailed):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type sessionResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// CreateSession issues a guest token, reusing the caller's identity when it still verifies.
func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if tok := tokenFromRequest(r); tok != "" {
		if claims, err := a.auth.Parse(tok); err == nil {
			userID = claims.Subject
		}
	}
	if userID == "" {
		userID = NewGuestID()
	}

	tok, err := a.auth.Issue(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(a.auth.ttl.Seconds()),
	})
	writeJSON(w, http.StatusOK, sessionResponse{Token: tok, UserID: userID})
}

func (a *API) Topics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.Topics())
}

type startQuizRequest struct {
	TopicID      string `json:"topic_id"`
	Difficulty   string `json:"difficulty"`
	NumQuestions int    `json:"num_questions"`
}

func (a *API) StartQuiz(w http.ResponseWriter, r *http.Request) {
	var req startQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.TopicID == "" {
		writeError(w, http.StatusBadRequest, "topic_id is required")
		return
	}
	// 0 means the configured default count
	if req.NumQuestions < 0 || req.NumQuestions > a.maxQuestions {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("num_questions must be between 1 and %d", a.maxQuestions))
		return
	}
	q, err := a.service.StartQuiz(r.Context(), UserFromContext(r.Context()), req.TopicID, req.Difficulty, req.NumQuestions)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewQuizView(q))
}

func (a *API) CurrentQuiz(w http.ResponseWriter, r *http.Request) {
	q, err := a.service.CurrentQuiz(r.Context(), UserFromContext(r.Context()), r.URL.Query().Get("topic_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewQuizView(q))
}

type submitRequest struct {
	Answers map[string]string `json:"answers"`
}

func (a *API) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	res, err := a.service.SubmitQuiz(r.Context(), UserFromContext(r.Context()), req.Answers)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type explainResponse struct {
	Explanation string `json:"explanation"`
}

func (a *API) Explain(w http.ResponseWriter, r *http.Request) {
	var req domain.ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Concept == "" {
		writeError(w, http.StatusBadRequest, "concept is required")
		return
	}
	out, err := a.service.Explain(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, explainResponse{Explanation: out})
}

type codeHelpRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Issue    string `json:"issue"`
}

type codeHelpResponse struct {
	Analysis string `json:"analysis"`
}

func (a *API) CodeHelp(w http.ResponseWriter, r *http.Request) {
	var req codeHelpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	out, err := a.service.CodeHelp(r.Context(), req.Code, req.Language, req.Issue)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, codeHelpResponse{Analysis: out})
}

func (a *API) Progress(w http.ResponseWriter, r *http.Request) {
	rows, err := a.service.Progress(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Practice lists practice problems, optionally filtered by ?topic_id=.
func (a *API) Practice(w http.ResponseWriter, r *http.Request) {
	problems, err := a.service.Practice(r.URL.Query().Get("topic_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, problems)
}

// Leaderboard lists the top personal bests across users; ?limit= bounds it.
func (a *API) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	lb, err := a.service.Leaderboard(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}
