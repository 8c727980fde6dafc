package quiz

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"dsa-quiz-service/internal/domain"
)

// Band is the qualitative grade of a score.
type Band string

const (
	BandExcellent    Band = "excellent"
	BandGood         Band = "good"
	BandKeepLearning Band = "keep_learning"
)

// BandOf grades a 0-100 score.
func BandOf(score float64) Band {
	switch {
	case score >= 80:
		return BandExcellent
	case score >= 60:
		return BandGood
	default:
		return BandKeepLearning
	}
}

// Message is the headline shown for a band.
func (b Band) Message() string {
	switch b {
	case BandExcellent:
		return "Excellent! Mastery achieved!"
	case BandGood:
		return "Good job! Keep practicing!"
	default:
		return "Keep learning! Review the topic."
	}
}

// OptionMark highlights an option in the review.
type OptionMark string

const (
	MarkNone        OptionMark = ""
	MarkCorrect     OptionMark = "correct"
	MarkWrongChoice OptionMark = "your_answer"
)

type ReviewOption struct {
	Key  string     `json:"key"`
	Text string     `json:"text"`
	Mark OptionMark `json:"mark,omitempty"`
}

// Review is one reviewed question.
type Review struct {
	Number      int            `json:"number"`
	Question    string         `json:"question"`
	Correct     bool           `json:"correct"`
	Options     []ReviewOption `json:"options"`
	Explanation string         `json:"explanation,omitempty"`
}

// ResultsView is everything the surface needs to show the results screen.
type ResultsView struct {
	Score     int      `json:"score"`
	ScoreText string   `json:"score_text"`
	Correct   int      `json:"correct"`
	Wrong     int      `json:"wrong"`
	Total     int      `json:"total"`
	Elapsed   string   `json:"elapsed"`
	Band      Band     `json:"band"`
	Message   string   `json:"message"`
	Badge     string   `json:"badge,omitempty"`
	Reviews   []Review `json:"reviews"`
}

// RenderResults turns a scoring payload into a results view. It does no scoring of its own.
func RenderResults(res domain.ScoreResult, elapsed time.Duration) (ResultsView, error) {
	if res.Total < 0 || res.Correct < 0 || res.Correct > res.Total {
		return ResultsView{}, fmt.Errorf("%w: correct=%d total=%d", domain.ErrMalformedResult, res.Correct, res.Total)
	}

	score := int(math.Round(res.Score))
	band := BandOf(res.Score)
	view := ResultsView{
		Score:     score,
		ScoreText: strconv.Itoa(score) + "%",
		Correct:   res.Correct,
		Wrong:     res.Total - res.Correct,
		Total:     res.Total,
		Elapsed:   FormatClock(int(elapsed / time.Second)),
		Band:      band,
		Message:   band.Message(),
		Reviews:   make([]Review, 0, len(res.Results)),
	}
	if res.Improved {
		view.Badge = fmt.Sprintf("New Personal Best! (Previous: %s%%)", strconv.FormatFloat(res.PreviousBest, 'f', -1, 64))
	}

	for i, item := range res.Results {
		view.Reviews = append(view.Reviews, Review{
			Number:      i + 1,
			Question:    item.Question,
			Correct:     item.IsCorrect,
			Options:     reviewOptions(item),
			Explanation: item.Explanation,
		})
	}
	return view, nil
}

func reviewOptions(item domain.QuestionResult) []ReviewOption {
	keys := make([]string, 0, len(item.Options))
	for k := range item.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]ReviewOption, 0, len(keys))
	for _, k := range keys {
		opt := ReviewOption{Key: k, Text: item.Options[k]}
		switch {
		case k == item.CorrectAnswer:
			opt.Mark = MarkCorrect
		case k == item.UserAnswer && !item.IsCorrect:
			opt.Mark = MarkWrongChoice
		}
		out = append(out, opt)
	}
	return out
}
