package domain

import "time"

// Question is one quiz question unit with lettered options and a single correct key.
type Question struct {
	Prompt      string            `json:"question" yaml:"question"`
	Options     map[string]string `json:"options" yaml:"options"`
	Correct     string            `json:"correct" yaml:"correct"`
	Explanation string            `json:"explanation" yaml:"explanation"`
}

// Quiz is an ordered set of questions generated for one topic.
type Quiz struct {
	ID          string     `json:"id"`
	TopicID     string     `json:"topic_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  string     `json:"difficulty"`
	TimeLimit   int        `json:"time_limit"` // minutes
	Questions   []Question `json:"questions"`
	GeneratedAt time.Time  `json:"generated_at"`
	Fallback    bool       `json:"fallback"`
}

// Attempt ties a user to the quiz they are currently taking.
type Attempt struct {
	UserID    string    `json:"user_id"`
	QuizID    string    `json:"quiz_id"`
	TopicID   string    `json:"topic_id"`
	StartedAt time.Time `json:"started_at"`
}

// Progress is a user's personal best on a topic.
type Progress struct {
	UserID      string    `json:"-"`
	TopicID     string    `json:"topic_id"`
	Score       float64   `json:"score"`
	Correct     int       `json:"correct"`
	Total       int       `json:"total"`
	Passed      bool      `json:"passed"`
	Difficulty  string    `json:"difficulty"`
	LastAttempt time.Time `json:"last_attempt"`
}

// QuestionResult is the graded outcome of one question.
type QuestionResult struct {
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	UserAnswer    string            `json:"user_answer,omitempty"`
	IsCorrect     bool              `json:"is_correct"`
	Explanation   string            `json:"explanation"`
}

// ScoreResult is the payload returned by the scoring endpoint.
type ScoreResult struct {
	Score        float64          `json:"score"`
	Correct      int              `json:"correct"`
	Total        int              `json:"total"`
	Passed       bool             `json:"passed"`
	Improved     bool             `json:"improved"`
	PreviousBest float64          `json:"previous_best"`
	Results      []QuestionResult `json:"results"`
	TopicID      string           `json:"topic_id,omitempty"`
	GeneratedAt  time.Time        `json:"generated_at"`
	WasFallback  bool             `json:"was_fallback"`
}

// ExplainRequest asks the explanation backend about a concept.
type ExplainRequest struct {
	Concept    string `json:"concept"`
	Context    string `json:"context"`
	Difficulty string `json:"difficulty"`
}

// Subtopic groups a handful of concepts inside a topic.
type Subtopic struct {
	Name     string   `json:"name" yaml:"name"`
	Concepts []string `json:"concepts" yaml:"concepts"`
}

// Topic is a learning topic quizzes are generated for.
type Topic struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Subtopics []Subtopic `json:"subtopics" yaml:"subtopics"`
}

// PracticeProblem is a hands-on exercise listed for a topic.
type PracticeProblem struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	TopicID     string   `json:"topic_id" yaml:"topic_id"`
	Difficulty  string   `json:"difficulty" yaml:"difficulty"`
	Description string   `json:"description" yaml:"description"`
	Hints       []string `json:"hints,omitempty" yaml:"hints"`
}

// LeaderboardEntry is one personal best as shown on the public leaderboard.
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	UserID      string    `json:"-"`
	DisplayName string    `json:"name"`
	TopicID     string    `json:"topic_id"`
	Topic       string    `json:"topic"`
	Score       float64   `json:"score"`
	AchievedAt  time.Time `json:"achieved_at"`
}

// Leaderboard captures the ordered top personal bests across users.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updated_at"`
}
