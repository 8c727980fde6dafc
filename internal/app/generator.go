package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dsa-quiz-service/internal/domain"
	"dsa-quiz-service/internal/infra/catalog"
	"dsa-quiz-service/internal/quizgen"
	"github.com/google/uuid"
)

const (
	DefaultDifficulty    = "mixed"
	DefaultQuestionCount = 5
)

// Completer is the LLM text completion backend.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// Generator builds quizzes with the LLM and falls back to canned questions.
type Generator struct {
	catalog      *catalog.Catalog
	llm          Completer
	defaultCount int
	now          func() time.Time
	newID        func() string
}

func NewGenerator(c *catalog.Catalog, llm Completer) *Generator {
	return &Generator{
		catalog:      c,
		llm:          llm,
		defaultCount: DefaultQuestionCount,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// WithDefaultCount sets the question count used when a request asks for none.
func (g *Generator) WithDefaultCount(n int) *Generator {
	if n > 0 {
		g.defaultCount = n
	}
	return g
}

// Generate creates a quiz of n questions on topicID.
func (g *Generator) Generate(ctx context.Context, topicID, difficulty string, n int) (domain.Quiz, error) {
	topic, ok := g.catalog.Topic(topicID)
	if !ok {
		return domain.Quiz{}, domain.ErrTopicNotFound
	}
	if difficulty == "" {
		difficulty = DefaultDifficulty
	}
	if n <= 0 {
		n = g.defaultCount
	}

	if g.llm == nil {
		return g.fallback(topic, difficulty, n), nil
	}
	text, err := g.llm.Complete(ctx, generationPrompt(topic, difficulty, n), 0.8, 4000)
	if err != nil {
		slog.Warn("no response from LLM, using fallback", "topic", topic.ID, "error", err)
		return g.fallback(topic, difficulty, n), nil
	}

	questions := quizgen.ParseQuestions(text)
	if len(questions) == 0 {
		slog.Warn("LLM response had no parsable questions, using fallback", "topic", topic.ID)
		return g.fallback(topic, difficulty, n), nil
	}
	if len(questions) < n {
		slog.Info("padding generated quiz with fallback questions", "topic", topic.ID, "parsed", len(questions), "wanted", n)
		pad := g.fallback(topic, difficulty, n-len(questions))
		questions = append(questions, pad.Questions...)
	}
	if len(questions) > n {
		questions = questions[:n]
	}

	tpl := g.catalog.Template(topic)
	return domain.Quiz{
		ID:          g.newID(),
		TopicID:     topic.ID,
		Title:       tpl.Title,
		Description: fmt.Sprintf("AI-generated %s difficulty quiz on %s", difficulty, topic.Title),
		Difficulty:  difficulty,
		TimeLimit:   n * tpl.TimePerQuestion,
		Questions:   questions,
		GeneratedAt: g.now(),
	}, nil
}

func (g *Generator) fallback(topic domain.Topic, difficulty string, n int) domain.Quiz {
	quiz := domain.Quiz{
		ID:          g.newID(),
		TopicID:     topic.ID,
		Difficulty:  difficulty,
		GeneratedAt: g.now(),
		Fallback:    true,
	}

	fb, ok := g.catalog.Fallback(topic.ID)
	if !ok || len(fb.Questions) == 0 {
		name := strings.ReplaceAll(topic.ID, "-", " ")
		quiz.Title = titleCase(name) + " Quiz"
		quiz.Description = "Basic quiz on fundamental concepts"
		quiz.TimeLimit = n * catalog.DefaultTimePerQuestion
		quiz.Questions = repeatQuestions([]domain.Question{{
			Prompt: fmt.Sprintf("What is a key concept in %s?", name),
			Options: map[string]string{
				"A": "Fundamental understanding required",
				"B": "Advanced optimization technique",
				"C": "Memory management strategy",
				"D": "Algorithm design pattern",
			},
			Correct:     "A",
			Explanation: "This tests basic conceptual understanding of the topic.",
		}}, n)
		return quiz
	}

	quiz.Title = fb.Title
	quiz.Description = fb.Description + " (Offline Mode)"
	quiz.TimeLimit = fb.TimeLimit
	if quiz.TimeLimit <= 0 {
		quiz.TimeLimit = n * catalog.DefaultTimePerQuestion
	}
	quiz.Questions = repeatQuestions(fb.Questions, n)
	return quiz
}

func repeatQuestions(src []domain.Question, n int) []domain.Question {
	out := make([]domain.Question, 0, n)
	for len(out) < n {
		for _, q := range src {
			if len(out) == n {
				break
			}
			out = append(out, q)
		}
	}
	return out
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func generationPrompt(topic domain.Topic, difficulty string, n int) string {
	var subtopics, concepts []string
	for _, st := range topic.Subtopics {
		subtopics = append(subtopics, st.Name)
		limit := len(st.Concepts)
		if limit > 3 {
			limit = 3
		}
		concepts = append(concepts, st.Concepts[:limit]...)
	}

	return fmt.Sprintf(`Generate exactly %[1]d multiple choice questions about %[2]s at %[3]s difficulty level.

TOPICS TO COVER: %[4]s
KEY CONCEPTS: %[5]s

STRICT FORMAT FOR EACH QUESTION:

Question 1: [Clear, specific question text here]
A) [First option - make it plausible]
B) [Second option - make it plausible]
C) [Third option - make it plausible]
D) [Fourth option - make it plausible]
Correct: [A/B/C/D]
Explanation: [2-3 sentences explaining why the correct answer is right and why others are wrong]

Question 2: [Next question...]
[Same format as above]

IMPORTANT RULES:
1. Use EXACT format shown above with "Question X:", "A)", "B)", "C)", "D)", "Correct:", "Explanation:"
2. Each question MUST have exactly 4 options labeled A, B, C, D
3. Questions should be practical and test understanding, not just memorization
4. Include code snippets where relevant
5. Make sure "Correct:" clearly states which option (A, B, C, or D) is correct
6. For code questions, put code in triple backticks with actual newlines, NOT inline
7. Explanations should teach the concept
8. Do not use markdown formatting like ** or ##
9. Ensure options are complete sentences or code, not single words when possible

Generate %[1]d questions now following this exact format:`,
		n, topic.Title, difficulty, strings.Join(subtopics, ", "), strings.Join(concepts, ", "))
}
