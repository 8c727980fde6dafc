package http

import (
	"html"
	"time"

	"dsa-quiz-service/internal/app"
	"dsa-quiz-service/internal/domain"
	"dsa-quiz-service/internal/quiz"
)

// QuestionView is a question as shown to the player: no answer, no explanation.
type QuestionView struct {
	Index        int               `json:"index"`
	Question     string            `json:"question"`
	QuestionHTML string            `json:"question_html"`
	Options      map[string]string `json:"options"`
}

type QuizView struct {
	ID          string         `json:"id"`
	TopicID     string         `json:"topic_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Difficulty  string         `json:"difficulty"`
	TimeLimit   int            `json:"time_limit"`
	Timer       string         `json:"timer"`
	Fallback    bool           `json:"fallback"`
	GeneratedAt time.Time      `json:"generated_at"`
	Questions   []QuestionView `json:"questions"`
}

func NewQuizView(q domain.Quiz) QuizView {
	v := QuizView{
		ID:          q.ID,
		TopicID:     q.TopicID,
		Title:       q.Title,
		Description: q.Description,
		Difficulty:  q.Difficulty,
		TimeLimit:   q.TimeLimit,
		Timer:       TimerText(q),
		Fallback:    q.Fallback,
		GeneratedAt: q.GeneratedAt,
		Questions:   make([]QuestionView, 0, len(q.Questions)),
	}
	for i, question := range q.Questions {
		prompt, err := app.RenderPrompt(question.Prompt)
		if err != nil {
			prompt = html.EscapeString(question.Prompt)
		}
		v.Questions = append(v.Questions, QuestionView{
			Index:        i,
			Question:     question.Prompt,
			QuestionHTML: prompt,
			Options:      question.Options,
		})
	}
	return v
}

// TimerText is the initial countdown for q, empty when the quiz has no time limit.
func TimerText(q domain.Quiz) string {
	if q.TimeLimit <= 0 {
		return ""
	}
	return quiz.FormatClock(q.TimeLimit * 60)
}
