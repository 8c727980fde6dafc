package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"dsa-quiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// DefaultTimePerQuestion is the per-question budget in minutes when a template sets none.
const DefaultTimePerQuestion = 3

// Template customizes generated quizzes for a topic.
type Template struct {
	Title           string `yaml:"title"`
	TimePerQuestion int    `yaml:"time_per_question"`
}

// FallbackQuiz is a canned quiz used when generation is unavailable.
type FallbackQuiz struct {
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	TimeLimit   int               `yaml:"time_limit"`
	Questions   []domain.Question `yaml:"questions"`
}

// Catalog is the set of topics, quiz templates and offline fallbacks.
type Catalog struct {
	Topics    []domain.Topic           `yaml:"topics"`
	Templates map[string]Template      `yaml:"templates"`
	Fallbacks map[string]FallbackQuiz  `yaml:"fallback_quizzes"`
	Practice  []domain.PracticeProblem `yaml:"practice_problems"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for _, p := range c.Practice {
		if _, ok := c.Topic(p.TopicID); !ok {
			return nil, fmt.Errorf("parse catalog: practice problem %q: unknown topic %q", p.ID, p.TopicID)
		}
	}
	return &c, nil
}

// Topic looks a topic up by id.
func (c *Catalog) Topic(id string) (domain.Topic, bool) {
	for _, t := range c.Topics {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Topic{}, false
}

// Template returns the topic's template with defaults filled in.
func (c *Catalog) Template(topic domain.Topic) Template {
	t := c.Templates[topic.ID]
	if t.Title == "" {
		t.Title = topic.Title + " Quiz"
	}
	if t.TimePerQuestion <= 0 {
		t.TimePerQuestion = DefaultTimePerQuestion
	}
	return t
}

func (c *Catalog) Fallback(topicID string) (FallbackQuiz, bool) {
	f, ok := c.Fallbacks[topicID]
	return f, ok
}

// PracticeProblems lists the problems for topicID, or all of them when topicID is empty.
func (c *Catalog) PracticeProblems(topicID string) []domain.PracticeProblem {
	out := make([]domain.PracticeProblem, 0, len(c.Practice))
	for _, p := range c.Practice {
		if topicID == "" || p.TopicID == topicID {
			out = append(out, p)
		}
	}
	return out
}
