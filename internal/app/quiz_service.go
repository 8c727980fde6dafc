package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"dsa-quiz-service/internal/domain"
	"dsa-quiz-service/internal/infra/catalog"
)

// PassingScore is the minimum percentage that counts as a pass.
const PassingScore = 70.0

const (
	DefaultLeaderboardSize = 10
	MaxLeaderboardSize     = 100
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizStore persists generated quizzes so the repository can serve them later.
type QuizStore interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// AttemptRepository abstracts how the active attempt per user is stored (in-memory, Redis, etc).
type AttemptRepository interface {
	Put(ctx context.Context, attempt domain.Attempt) error
	Get(ctx context.Context, userID string) (domain.Attempt, bool, error)
	Delete(ctx context.Context, userID string) error
}

// ProgressRepository stores personal bests per user and topic.
type ProgressRepository interface {
	Get(ctx context.Context, userID, topicID string) (domain.Progress, bool, error)
	Save(ctx context.Context, p domain.Progress) error
	List(ctx context.Context, userID string) ([]domain.Progress, error)
	// Top returns the best rows across users: score descending, earlier attempt first on ties.
	Top(ctx context.Context, limit int) ([]domain.Progress, error)
}

// QuizGenerator produces a new quiz for a topic.
type QuizGenerator interface {
	Generate(ctx context.Context, topicID, difficulty string, n int) (domain.Quiz, error)
}

// Deps wires the service to its collaborators. LLM may be nil.
type Deps struct {
	Catalog   *catalog.Catalog
	Generator QuizGenerator
	Quizzes   QuizRepository
	Store     QuizStore
	Attempts  AttemptRepository
	Progress  ProgressRepository
	LLM       Completer
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	catalog   *catalog.Catalog
	generator QuizGenerator
	quizzes   QuizRepository
	store     QuizStore
	attempts  AttemptRepository
	progress  ProgressRepository
	llm       Completer
	now       func() time.Time
}

func NewQuizService(d Deps) *QuizService {
	return NewQuizServiceWithClock(d, time.Now)
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(d Deps, now func() time.Time) *QuizService {
	return &QuizService{
		catalog:   d.Catalog,
		generator: d.Generator,
		quizzes:   d.Quizzes,
		store:     d.Store,
		attempts:  d.Attempts,
		progress:  d.Progress,
		llm:       d.LLM,
		now:       now,
	}
}

// Topics lists the catalog topics.
func (s *QuizService) Topics() []domain.Topic {
	return s.catalog.Topics
}

// StartQuiz generates a quiz, stores it and makes it the user's active attempt.
func (s *QuizService) StartQuiz(ctx context.Context, userID, topicID, difficulty string, n int) (domain.Quiz, error) {
	quiz, err := s.generator.Generate(ctx, topicID, difficulty, n)
	if err != nil {
		return domain.Quiz{}, err
	}
	if len(quiz.Questions) == 0 {
		return domain.Quiz{}, domain.ErrNoQuestions
	}
	if err := s.store.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}

	attempt := domain.Attempt{
		UserID:    userID,
		QuizID:    quiz.ID,
		TopicID:   quiz.TopicID,
		StartedAt: s.now(),
	}
	if err := s.attempts.Put(ctx, attempt); err != nil {
		return domain.Quiz{}, fmt.Errorf("store attempt: %w", err)
	}
	return quiz, nil
}

// CurrentQuiz returns the user's active quiz on topicID (any topic when empty),
// starting a mixed one when none matches.
func (s *QuizService) CurrentQuiz(ctx context.Context, userID, topicID string) (domain.Quiz, error) {
	attempt, ok, err := s.attempts.Get(ctx, userID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if ok && (topicID == "" || attempt.TopicID == topicID) {
		quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
		if err == nil {
			return quiz, nil
		}
		if !errors.Is(err, domain.ErrQuizNotFound) {
			return domain.Quiz{}, err
		}
	}
	if topicID == "" {
		return domain.Quiz{}, domain.ErrNoActiveAttempt
	}
	return s.StartQuiz(ctx, userID, topicID, DefaultDifficulty, DefaultQuestionCount)
}

// SubmitQuiz grades answers (keyed by question index) against the active quiz.
func (s *QuizService) SubmitQuiz(ctx context.Context, userID string, answers map[string]string) (domain.ScoreResult, error) {
	attempt, ok, err := s.attempts.Get(ctx, userID)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	if !ok {
		return domain.ScoreResult{}, domain.ErrNoActiveAttempt
	}
	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return domain.ScoreResult{}, domain.ErrNoActiveAttempt
		}
		return domain.ScoreResult{}, err
	}

	res := Grade(quiz, answers)

	prev, found, err := s.progress.Get(ctx, userID, quiz.TopicID)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	if found {
		res.PreviousBest = prev.Score
	}
	res.Improved = res.Score > res.PreviousBest
	if !found || res.Improved {
		err := s.progress.Save(ctx, domain.Progress{
			UserID:      userID,
			TopicID:     quiz.TopicID,
			Score:       res.Score,
			Correct:     res.Correct,
			Total:       res.Total,
			Passed:      res.Passed,
			Difficulty:  quiz.Difficulty,
			LastAttempt: s.now(),
		})
		if err != nil {
			return domain.ScoreResult{}, fmt.Errorf("save progress: %w", err)
		}
	}

	if err := s.attempts.Delete(ctx, userID); err != nil {
		return domain.ScoreResult{}, err
	}
	return res, nil
}

// Grade scores answers against quiz without touching any store.
func Grade(quiz domain.Quiz, answers map[string]string) domain.ScoreResult {
	res := domain.ScoreResult{
		Total:       len(quiz.Questions),
		Results:     make([]domain.QuestionResult, 0, len(quiz.Questions)),
		TopicID:     quiz.TopicID,
		GeneratedAt: quiz.GeneratedAt,
		WasFallback: quiz.Fallback,
	}
	for i, q := range quiz.Questions {
		user := strings.ToUpper(strings.TrimSpace(answers[strconv.Itoa(i)]))
		correct := strings.ToUpper(q.Correct)
		ok := user != "" && user == correct
		if ok {
			res.Correct++
		}
		res.Results = append(res.Results, domain.QuestionResult{
			Question:      q.Prompt,
			Options:       q.Options,
			CorrectAnswer: correct,
			UserAnswer:    user,
			IsCorrect:     ok,
			Explanation:   q.Explanation,
		})
	}
	if res.Total > 0 {
		res.Score = math.Round(float64(res.Correct)/float64(res.Total)*1000) / 10
	}
	res.Passed = res.Score >= PassingScore
	return res
}

// Explain asks the LLM about a concept and returns rendered HTML.
func (s *QuizService) Explain(ctx context.Context, req domain.ExplainRequest) (string, error) {
	if req.Difficulty == "" {
		req.Difficulty = "intermediate"
	}
	prompt := fmt.Sprintf(`Explain "%s" in the context of %s at %s level.

Structure the answer with:
1. A short definition
2. How it works, with a small code example in a fenced block
3. Time and space complexity where relevant, as a markdown table
4. Common pitfalls

Keep it focused and practical.`, req.Concept, req.Context, req.Difficulty)
	return s.askMarkdown(ctx, prompt, 0.7, 8000)
}

// CodeHelp asks the LLM to review code for an issue and returns rendered HTML.
func (s *QuizService) CodeHelp(ctx context.Context, code, language, issue string) (string, error) {
	if language == "" {
		language = "python"
	}
	prompt := fmt.Sprintf("You are a code reviewer and debugging assistant. Analyze the following %[1]s code:\n\n"+
		"```%[1]s\n%[2]s\n```\n\nIssue/Question: %[3]s\n\n"+
		"Provide:\n1. Code review and potential bugs\n2. Optimization suggestions\n3. Explanation of the logic\n4. Corrected code if needed\n\n"+
		"Be constructive and educational.",
		language, code, issue)
	return s.askMarkdown(ctx, prompt, 0.7, 1500)
}

func (s *QuizService) askMarkdown(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if s.llm == nil {
		return "", domain.ErrAIUnavailable
	}
	text, err := s.llm.Complete(ctx, prompt, temperature, maxTokens)
	if err != nil {
		if errors.Is(err, domain.ErrAIUnavailable) || errors.Is(err, domain.ErrAIFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrAIFailed, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrAIFailed)
	}
	return RenderMarkdown(text)
}

// Progress lists the user's personal bests.
func (s *QuizService) Progress(ctx context.Context, userID string) ([]domain.Progress, error) {
	return s.progress.List(ctx, userID)
}

// Practice lists practice problems for topicID, or for every topic when it is empty.
func (s *QuizService) Practice(topicID string) ([]domain.PracticeProblem, error) {
	if topicID != "" {
		if _, ok := s.catalog.Topic(topicID); !ok {
			return nil, domain.ErrTopicNotFound
		}
	}
	return s.catalog.PracticeProblems(topicID), nil
}

// Leaderboard ranks the best personal bests across users.
func (s *QuizService) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	if limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}
	rows, err := s.progress.Top(ctx, limit)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, p := range rows {
		topic := p.TopicID
		if t, ok := s.catalog.Topic(p.TopicID); ok {
			topic = t.Title
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      p.UserID,
			DisplayName: displayName(p.UserID),
			TopicID:     p.TopicID,
			Topic:       topic,
			Score:       p.Score,
			AchievedAt:  p.LastAttempt,
		})
	}

	// score desc, then whoever reached it first, then name
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].AchievedAt.Equal(entries[j].AchievedAt) {
			return entries[i].AchievedAt.Before(entries[j].AchievedAt)
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return domain.Leaderboard{Entries: entries, UpdatedAt: s.now()}, nil
}

// displayName shortens a guest id ("guest-<uuid>") to "Guest 1a2b3c4d".
func displayName(userID string) string {
	id, ok := strings.CutPrefix(userID, "guest-")
	if !ok {
		return userID
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return "Guest " + id
}
