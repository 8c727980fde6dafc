// Package client calls the quiz HTTP API. It backs the terminal surface and
// satisfies quiz.Scorer and quiz.Explainer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dsa-quiz-service/internal/domain"
)

// Client talks to one quiz server on behalf of one guest.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Token returns the guest token obtained by NewSession.
func (c *Client) Token() string { return c.token }

// NewSession obtains a guest token and uses it for later calls.
func (c *Client) NewSession(ctx context.Context) (string, error) {
	var out struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/session", nil, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: missing token", domain.ErrMalformedResult)
	}
	c.token = out.Token
	return out.UserID, nil
}

// QuestionView mirrors the server's answer-free question.
type QuestionView struct {
	Index    int               `json:"index"`
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
}

type QuizView struct {
	ID          string         `json:"id"`
	TopicID     string         `json:"topic_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Difficulty  string         `json:"difficulty"`
	Timer       string         `json:"timer"`
	Fallback    bool           `json:"fallback"`
	Questions   []QuestionView `json:"questions"`
}

func (c *Client) StartQuiz(ctx context.Context, topicID, difficulty string, n int) (QuizView, error) {
	in := map[string]any{"topic_id": topicID, "difficulty": difficulty, "num_questions": n}
	var out QuizView
	if err := c.do(ctx, http.MethodPost, "/api/quizzes", in, &out); err != nil {
		return QuizView{}, err
	}
	return out, nil
}

func (c *Client) Topics(ctx context.Context) ([]domain.Topic, error) {
	var out []domain.Topic
	if err := c.do(ctx, http.MethodGet, "/api/topics", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// scoreWire has pointer fields so absent keys can be told apart from zero values.
type scoreWire struct {
	Score        *float64                `json:"score"`
	Correct      *int                    `json:"correct"`
	Total        *int                    `json:"total"`
	Passed       *bool                   `json:"passed"`
	Improved     *bool                   `json:"improved"`
	PreviousBest *float64                `json:"previous_best"`
	Results      []domain.QuestionResult `json:"results"`
	TopicID      string                  `json:"topic_id"`
	GeneratedAt  time.Time               `json:"generated_at"`
	WasFallback  bool                    `json:"was_fallback"`
}

// Score posts answers to the scoring endpoint.
func (c *Client) Score(ctx context.Context, answers map[string]string) (domain.ScoreResult, error) {
	var w scoreWire
	if err := c.do(ctx, http.MethodPost, "/api/submit-quiz", map[string]any{"answers": answers}, &w); err != nil {
		return domain.ScoreResult{}, err
	}
	if w.Score == nil || w.Correct == nil || w.Total == nil || w.Results == nil {
		return domain.ScoreResult{}, fmt.Errorf("%w: missing score, correct, total or results", domain.ErrMalformedResult)
	}
	res := domain.ScoreResult{
		Score:       *w.Score,
		Correct:     *w.Correct,
		Total:       *w.Total,
		Results:     w.Results,
		TopicID:     w.TopicID,
		GeneratedAt: w.GeneratedAt,
		WasFallback: w.WasFallback,
	}
	if w.Passed != nil {
		res.Passed = *w.Passed
	}
	if w.Improved != nil {
		res.Improved = *w.Improved
	}
	if w.PreviousBest != nil {
		res.PreviousBest = *w.PreviousBest
	}
	return res, nil
}

// Explain asks the explanation endpoint about a concept.
func (c *Client) Explain(ctx context.Context, req domain.ExplainRequest) (string, error) {
	var out struct {
		Explanation *string `json:"explanation"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/explain", req, &out); err != nil {
		return "", err
	}
	if out.Explanation == nil {
		return "", fmt.Errorf("%w: missing explanation", domain.ErrMalformedResult)
	}
	return *out.Explanation, nil
}

// APIError is a non-2xx reply.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: res.StatusCode, Message: e.Error}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", domain.ErrMalformedResult)
		}
		return fmt.Errorf("%w: %v", domain.ErrMalformedResult, err)
	}
	return nil
}
