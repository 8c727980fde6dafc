package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dsa-quiz-service/internal/domain"
	"dsa-quiz-service/internal/quiz"
	"github.com/stretchr/testify/require"
)

var (
	_ quiz.Scorer    = (*Client)(nil)
	_ quiz.Explainer = (*Client)(nil)
)

func TestScoreDecodesResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/submit-quiz", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var in struct {
			Answers map[string]string `json:"answers"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "C", in.Answers["2"])
		_, _ = w.Write([]byte(`{"score":85,"correct":17,"total":20,"passed":true,"improved":true,"previous_best":80,"results":[]}`))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	c.token = "tok"
	res, err := c.Score(context.Background(), map[string]string{"2": "C"})
	require.NoError(t, err)
	require.Equal(t, 85.0, res.Score)
	require.Equal(t, 80.0, res.PreviousBest)
	require.True(t, res.Improved)
}

func TestScoreRejectsMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"score":85}`))
	}))
	defer server.Close()

	_, err := New(server.URL, nil).Score(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrMalformedResult)
}

func TestServerErrorCarriesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"No active quiz session"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, nil).Score(context.Background(), nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "No active quiz session", apiErr.Message)
}

func TestExplainAndSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/session":
			_, _ = w.Write([]byte(`{"token":"abc","user_id":"guest-1"}`))
		case "/api/explain":
			require.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
			var req domain.ExplainRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "Quiz Question", req.Context)
			_, _ = w.Write([]byte(`{"explanation":"<p>ok</p>"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := New(server.URL+"/", nil)
	user, err := c.NewSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "guest-1", user)
	require.Equal(t, "abc", c.Token())

	html, err := c.Explain(context.Background(), domain.ExplainRequest{Concept: "heap", Context: "Quiz Question", Difficulty: "intermediate"})
	require.NoError(t, err)
	require.Equal(t, "<p>ok</p>", html)
}
