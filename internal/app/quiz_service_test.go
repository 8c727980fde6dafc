package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dsa-quiz-service/internal/app"
	"dsa-quiz-service/internal/domain"
	"dsa-quiz-service/internal/infra/catalog"
	"dsa-quiz-service/internal/infra/memory"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	reply       string
	err         error
	calls       int
	prompt      string
	temperature float64
	maxTokens   int
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	f.calls++
	f.prompt = prompt
	f.temperature = temperature
	f.maxTokens = maxTokens
	return f.reply, f.err
}

type fixedGenerator struct{ quiz domain.Quiz }

func (g fixedGenerator) Generate(context.Context, string, string, int) (domain.Quiz, error) {
	return g.quiz, nil
}

func threeQuestionQuiz() domain.Quiz {
	q := func(prompt, correct string) domain.Question {
		return domain.Question{
			Prompt:      prompt,
			Options:     map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"},
			Correct:     correct,
			Explanation: "because",
		}
	}
	return domain.Quiz{
		ID:         "quiz-1",
		TopicID:    "trees",
		Difficulty: "mixed",
		Questions:  []domain.Question{q("one", "A"), q("two", "b"), q("three", "C")},
	}
}

func newTestService(t *testing.T, gen app.QuizGenerator, llm app.Completer) (*app.QuizService, *memory.ProgressStore) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	if gen == nil {
		gen = app.NewGenerator(cat, llm)
	}
	repo := memory.NewQuizRepository(memory.NewQuizStore(nil), 5*time.Minute)
	progress := memory.NewProgressStore()
	now := func() time.Time { return time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC) }
	svc := app.NewQuizServiceWithClock(app.Deps{
		Catalog:   cat,
		Generator: gen,
		Quizzes:   repo,
		Store:     repo,
		Attempts:  memory.NewAttemptStore(),
		Progress:  progress,
		LLM:       llm,
	}, now)
	return svc, progress
}

func TestSubmitQuizGradesAndTracksBest(t *testing.T) {
	ctx := context.Background()
	svc, progress := newTestService(t, fixedGenerator{quiz: threeQuestionQuiz()}, nil)

	_, err := svc.StartQuiz(ctx, "u1", "trees", "mixed", 3)
	require.NoError(t, err)

	res, err := svc.SubmitQuiz(ctx, "u1", map[string]string{"0": "a", "1": "B", "2": "D"})
	require.NoError(t, err)
	require.Equal(t, 66.7, res.Score)
	require.Equal(t, 2, res.Correct)
	require.Equal(t, 3, res.Total)
	require.False(t, res.Passed)
	require.True(t, res.Improved)
	require.Equal(t, 0.0, res.PreviousBest)
	require.Equal(t, "B", res.Results[1].CorrectAnswer)
	require.Equal(t, "D", res.Results[2].UserAnswer)
	require.False(t, res.Results[2].IsCorrect)

	best, ok, err := progress.Get(ctx, "u1", "trees")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 66.7, best.Score)

	_, err = svc.SubmitQuiz(ctx, "u1", nil)
	require.ErrorIs(t, err, domain.ErrNoActiveAttempt)

	_, err = svc.StartQuiz(ctx, "u1", "trees", "mixed", 3)
	require.NoError(t, err)
	res, err = svc.SubmitQuiz(ctx, "u1", map[string]string{"0": "B"})
	require.NoError(t, err)
	require.Equal(t, 0.0, res.Score)
	require.False(t, res.Improved)
	require.Equal(t, 66.7, res.PreviousBest)
	require.Empty(t, res.Results[1].UserAnswer)

	best, _, _ = progress.Get(ctx, "u1", "trees")
	require.Equal(t, 66.7, best.Score)
}

func TestSubmitQuizWithoutAttempt(t *testing.T) {
	svc, _ := newTestService(t, fixedGenerator{quiz: threeQuestionQuiz()}, nil)
	_, err := svc.SubmitQuiz(context.Background(), "nobody", map[string]string{"0": "A"})
	require.ErrorIs(t, err, domain.ErrNoActiveAttempt)
}

func TestCurrentQuizReusesActiveAttempt(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil, nil)

	first, err := svc.CurrentQuiz(ctx, "u1", "arrays-strings")
	require.NoError(t, err)
	require.True(t, first.Fallback)
	require.Len(t, first.Questions, app.DefaultQuestionCount)
	require.Equal(t, "mixed", first.Difficulty)

	again, err := svc.CurrentQuiz(ctx, "u1", "arrays-strings")
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	other, err := svc.CurrentQuiz(ctx, "u1", "trees")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)

	_, err = svc.CurrentQuiz(ctx, "u2", "")
	require.ErrorIs(t, err, domain.ErrNoActiveAttempt)
}

func TestStartQuizUnknownTopic(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	_, err := svc.StartQuiz(context.Background(), "u1", "graphs-of-doom", "", 5)
	require.ErrorIs(t, err, domain.ErrTopicNotFound)
}

func TestExplainRendersMarkdown(t *testing.T) {
	llm := &fakeLLM{reply: "**Stack**\n\n| op | cost |\n|---|---|\n| push | O(1) |\n"}
	svc, _ := newTestService(t, fixedGenerator{}, llm)

	html, err := svc.Explain(context.Background(), domain.ExplainRequest{Concept: "What is a stack?", Context: "Quiz Question"})
	require.NoError(t, err)
	require.Contains(t, html, "<strong>Stack</strong>")
	require.Contains(t, html, "<table>")
	require.Contains(t, llm.prompt, "intermediate")
}

func TestExplainErrors(t *testing.T) {
	svc, _ := newTestService(t, fixedGenerator{}, nil)
	_, err := svc.Explain(context.Background(), domain.ExplainRequest{Concept: "x"})
	require.ErrorIs(t, err, domain.ErrAIUnavailable)

	llm := &fakeLLM{err: errors.New("boom")}
	svc, _ = newTestService(t, fixedGenerator{}, llm)
	_, err = svc.CodeHelp(context.Background(), "print(1)", "", "prints 1")
	require.ErrorIs(t, err, domain.ErrAIFailed)
	require.Contains(t, llm.prompt, "```python")
}

func TestCodeHelpReviewsCode(t *testing.T) {
	llm := &fakeLLM{reply: "1. Off by one\n\n```go\nfor i := 0; i < n; i++ {}\n```\n"}
	svc, _ := newTestService(t, fixedGenerator{}, llm)

	html, err := svc.CodeHelp(context.Background(), "for i := 0; i <= n; i++ {}", "go", "index out of range")
	require.NoError(t, err)
	require.Contains(t, html, "<pre><code class=\"language-go\">")
	require.Contains(t, llm.prompt, "Analyze the following go code")
	require.Contains(t, llm.prompt, "Issue/Question: index out of range")
	require.Equal(t, 0.7, llm.temperature)
	require.Equal(t, 1500, llm.maxTokens)
}

func TestProgressListsBests(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, fixedGenerator{quiz: threeQuestionQuiz()}, nil)

	_, err := svc.StartQuiz(ctx, "u1", "trees", "", 3)
	require.NoError(t, err)
	_, err = svc.SubmitQuiz(ctx, "u1", map[string]string{"0": "A", "1": "B", "2": "C"})
	require.NoError(t, err)

	rows, err := svc.Progress(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 100.0, rows[0].Score)
	require.True(t, rows[0].Passed)
	require.Len(t, svc.Topics(), 4)
}

func TestLeaderboardRanksAcrossUsers(t *testing.T) {
	ctx := context.Background()
	svc, progress := newTestService(t, fixedGenerator{}, nil)
	at := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)

	require.NoError(t, progress.Save(ctx, domain.Progress{UserID: "guest-0b1c2d3e-aaaa-bbbb-cccc-000000000001", TopicID: "trees", Score: 90, LastAttempt: at.Add(time.Minute)}))
	require.NoError(t, progress.Save(ctx, domain.Progress{UserID: "guest-9f8e7d6c-aaaa-bbbb-cccc-000000000002", TopicID: "dynamic-programming", Score: 90, LastAttempt: at}))
	require.NoError(t, progress.Save(ctx, domain.Progress{UserID: "alice", TopicID: "arrays-strings", Score: 95, LastAttempt: at}))
	require.NoError(t, progress.Save(ctx, domain.Progress{UserID: "alice", TopicID: "retired-topic", Score: 10, LastAttempt: at}))

	lb, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 4)
	require.Equal(t, time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC), lb.UpdatedAt)

	first, second, third, last := lb.Entries[0], lb.Entries[1], lb.Entries[2], lb.Entries[3]
	require.Equal(t, domain.LeaderboardEntry{
		Rank: 1, UserID: "alice", DisplayName: "alice", TopicID: "arrays-strings",
		Topic: "Arrays & Strings", Score: 95, AchievedAt: at,
	}, first)
	require.Equal(t, "Guest 9f8e7d6c", second.DisplayName)
	require.Equal(t, "Dynamic Programming", second.Topic)
	require.Equal(t, 2, second.Rank)
	require.Equal(t, "Guest 0b1c2d3e", third.DisplayName)
	require.Equal(t, "retired-topic", last.Topic)

	top, err := svc.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top.Entries, 2)
}

func TestPracticeProblemsByTopic(t *testing.T) {
	svc, _ := newTestService(t, fixedGenerator{}, nil)

	all, err := svc.Practice("")
	require.NoError(t, err)
	require.NotEmpty(t, all)

	dp, err := svc.Practice("dynamic-programming")
	require.NoError(t, err)
	require.NotEmpty(t, dp)
	for _, p := range dp {
		require.Equal(t, "dynamic-programming", p.TopicID)
	}

	_, err = svc.Practice("graphs-of-doom")
	require.ErrorIs(t, err, domain.ErrTopicNotFound)
}
