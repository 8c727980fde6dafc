package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dsa-quiz-service/internal/app"
	"dsa-quiz-service/internal/infra/catalog"
	"dsa-quiz-service/internal/infra/memory"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	reply       string
	temperature float64
	maxTokens   int
}

func (s *stubCompleter) Complete(_ context.Context, _ string, temperature float64, maxTokens int) (string, error) {
	s.temperature = temperature
	s.maxTokens = maxTokens
	return s.reply, nil
}

func newTestService(t *testing.T) *app.QuizService {
	t.Helper()
	return newTestServiceWithLLM(t, nil)
}

func newTestServiceWithLLM(t *testing.T, llm app.Completer) *app.QuizService {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	repo := memory.NewQuizRepository(memory.NewQuizStore(nil), time.Minute)
	return app.NewQuizService(app.Deps{
		Catalog:   cat,
		Generator: app.NewGenerator(cat, nil),
		Quizzes:   repo,
		Store:     repo,
		Attempts:  memory.NewAttemptStore(),
		Progress:  memory.NewProgressStore(),
		LLM:       llm,
	})
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	auth := NewAuth("test-secret", time.Hour)
	server := httptest.NewServer(NewRouter(newTestService(t), auth, RouterOptions{}))
	t.Cleanup(server.Close)
	return server
}

func newToken(t *testing.T, server *httptest.Server) string {
	t.Helper()
	res, err := http.Post(server.URL+"/api/session", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body sessionResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	require.Contains(t, body.UserID, "guest-")
	return body.Token
}

func doJSON(t *testing.T, method, url, token string, in any, out any) int {
	t.Helper()
	var body bytes.Buffer
	if in != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(in))
	}
	req, err := http.NewRequest(method, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestQuizLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)
	token := newToken(t, server)

	var started map[string]any
	status := doJSON(t, http.MethodPost, server.URL+"/api/quizzes", token,
		startQuizRequest{TopicID: "arrays-strings", NumQuestions: 2}, &started)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "6:00", started["timer"])
	questions := started["questions"].([]any)
	require.Len(t, questions, 2)
	first := questions[0].(map[string]any)
	require.NotContains(t, first, "correct")
	require.NotContains(t, first, "explanation")
	require.Contains(t, first["question_html"], "<p>")

	var current QuizView
	status = doJSON(t, http.MethodGet, server.URL+"/api/quizzes/current?topic_id=arrays-strings", token, nil, &current)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, started["id"], current.ID)

	var res struct {
		Score   float64 `json:"score"`
		Correct int     `json:"correct"`
		Total   int     `json:"total"`
		Passed  bool    `json:"passed"`
	}
	status = doJSON(t, http.MethodPost, server.URL+"/api/submit-quiz", token,
		submitRequest{Answers: map[string]string{"0": "a", "1": "B"}}, &res)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 100.0, res.Score)
	require.Equal(t, 2, res.Correct)
	require.True(t, res.Passed)

	var errBody errorBody
	status = doJSON(t, http.MethodPost, server.URL+"/api/submit-quiz", token,
		submitRequest{Answers: map[string]string{"0": "A"}}, &errBody)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "No active quiz session", errBody.Error)

	var rows []map[string]any
	status = doJSON(t, http.MethodGet, server.URL+"/api/progress", token, nil, &rows)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, rows, 1)
	require.Equal(t, "arrays-strings", rows[0]["topic_id"])
}

func TestAPIRequiresToken(t *testing.T) {
	server := newTestServer(t)

	status := doJSON(t, http.MethodGet, server.URL+"/api/progress", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status = doJSON(t, http.MethodGet, server.URL+"/api/progress", "not-a-jwt", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	var topics []map[string]any
	status = doJSON(t, http.MethodGet, server.URL+"/api/topics", "", nil, &topics)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, topics, 4)
}

func TestAPIErrors(t *testing.T) {
	server := newTestServer(t)
	token := newToken(t, server)

	var errBody errorBody
	status := doJSON(t, http.MethodPost, server.URL+"/api/explain", token,
		map[string]string{"concept": "What is a heap?"}, &errBody)
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, "AI service not configured", errBody.Error)

	status = doJSON(t, http.MethodPost, server.URL+"/api/code-help", token,
		codeHelpRequest{Code: "print(1)"}, &errBody)
	require.Equal(t, http.StatusServiceUnavailable, status)

	status = doJSON(t, http.MethodPost, server.URL+"/api/quizzes", token,
		startQuizRequest{TopicID: "no-such-topic"}, &errBody)
	require.Equal(t, http.StatusNotFound, status)

	status = doJSON(t, http.MethodGet, server.URL+"/api/quizzes/current", token, nil, &errBody)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestSessionReusesIdentity(t *testing.T) {
	auth := NewAuth("s", time.Hour)
	api := NewAPI(newTestService(t), auth)

	tok, err := auth.Issue("guest-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tok})
	rec := httptest.NewRecorder()
	api.CreateSession(rec, req)

	var body sessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "guest-1", body.UserID)
	require.NotEmpty(t, rec.Result().Cookies())
}

func TestParseRejectsForeignSignature(t *testing.T) {
	tok, err := NewAuth("one", time.Hour).Issue("guest-1")
	require.NoError(t, err)
	_, err = NewAuth("two", time.Hour).Parse(tok)
	require.Error(t, err)
}

func TestStartQuizBoundsQuestionCount(t *testing.T) {
	auth := NewAuth("test-secret", time.Hour)
	server := httptest.NewServer(NewRouter(newTestService(t), auth, RouterOptions{MaxQuestions: 10}))
	t.Cleanup(server.Close)
	token := newToken(t, server)

	for _, n := range []int{11, 1000000, -1} {
		var errBody errorBody
		status := doJSON(t, http.MethodPost, server.URL+"/api/quizzes", token,
			startQuizRequest{TopicID: "arrays-strings", NumQuestions: n}, &errBody)
		require.Equal(t, http.StatusBadRequest, status, "num_questions=%d", n)
		require.Equal(t, "num_questions must be between 1 and 10", errBody.Error)
	}

	var view QuizView
	status := doJSON(t, http.MethodPost, server.URL+"/api/quizzes", token,
		startQuizRequest{TopicID: "arrays-strings", NumQuestions: 10}, &view)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, view.Questions, 10)
}

func TestStartQuizDefaultCap(t *testing.T) {
	server := newTestServer(t)
	token := newToken(t, server)

	var errBody errorBody
	status := doJSON(t, http.MethodPost, server.URL+"/api/quizzes", token,
		startQuizRequest{TopicID: "trees", NumQuestions: DefaultMaxQuestions + 1}, &errBody)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestLeaderboardListsBestsAcrossUsers(t *testing.T) {
	server := newTestServer(t)

	for _, answers := range []map[string]string{{"0": "A", "1": "B"}, {"0": "A"}} {
		token := newToken(t, server)
		status := doJSON(t, http.MethodPost, server.URL+"/api/quizzes", token,
			startQuizRequest{TopicID: "arrays-strings", NumQuestions: 2}, nil)
		require.Equal(t, http.StatusCreated, status)
		status = doJSON(t, http.MethodPost, server.URL+"/api/submit-quiz", token, submitRequest{Answers: answers}, nil)
		require.Equal(t, http.StatusOK, status)
	}

	var lb struct {
		Entries []map[string]any `json:"entries"`
	}
	status := doJSON(t, http.MethodGet, server.URL+"/api/leaderboard", "", nil, &lb)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, lb.Entries, 2)
	require.Equal(t, 100.0, lb.Entries[0]["score"])
	require.Equal(t, 50.0, lb.Entries[1]["score"])
	require.Equal(t, 1.0, lb.Entries[0]["rank"])
	require.Equal(t, "Arrays & Strings", lb.Entries[0]["topic"])
	require.Contains(t, lb.Entries[0]["name"], "Guest ")
	require.NotContains(t, lb.Entries[0], "user_id")

	status = doJSON(t, http.MethodGet, server.URL+"/api/leaderboard?limit=1", "", nil, &lb)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, lb.Entries, 1)

	status = doJSON(t, http.MethodGet, server.URL+"/api/leaderboard?limit=zero", "", nil, nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestPracticeProblems(t *testing.T) {
	server := newTestServer(t)

	var problems []map[string]any
	status := doJSON(t, http.MethodGet, server.URL+"/api/practice?topic_id=linked-lists", "", nil, &problems)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, problems)
	for _, p := range problems {
		require.Equal(t, "linked-lists", p["topic_id"])
	}

	status = doJSON(t, http.MethodGet, server.URL+"/api/practice?topic_id=nope", "", nil, nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestCodeHelpReturnsAnalysis(t *testing.T) {
	llm := &stubCompleter{reply: "Use `len(xs)-1` as the bound."}
	server := httptest.NewServer(NewRouter(newTestServiceWithLLM(t, llm), NewAuth("test-secret", time.Hour), RouterOptions{}))
	t.Cleanup(server.Close)
	token := newToken(t, server)

	var body map[string]string
	status := doJSON(t, http.MethodPost, server.URL+"/api/code-help", token,
		codeHelpRequest{Code: "xs[len(xs)]", Issue: "index error"}, &body)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body["analysis"], "<code>len(xs)-1</code>")
	require.NotContains(t, body, "help")
	require.Equal(t, 0.7, llm.temperature)
	require.Equal(t, 1500, llm.maxTokens)
}
