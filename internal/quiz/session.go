package quiz

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"dsa-quiz-service/internal/domain"
)

// SubmitOutcome tells the coordinator what a submit request resolved to.
type SubmitOutcome int

const (
	// SubmitNeedsConfirm means unanswered questions remain and the user must confirm.
	SubmitNeedsConfirm SubmitOutcome = iota
	// SubmitProceed means the session entered the submitted state and answers must be scored.
	SubmitProceed
	// SubmitAlreadyDone means the session was already submitted; nothing to do.
	SubmitAlreadyDone
)

// SubmitDecision is the result of Session.BeginSubmit.
type SubmitDecision struct {
	Outcome  SubmitOutcome
	Answered int
	Total    int
	Answers  map[string]string
	Elapsed  time.Duration
}

// Session tracks one user's progress through one quiz attempt.
type Session struct {
	mu        sync.Mutex
	total     int
	current   int
	answers   map[string]string
	timer     Timer
	startedAt time.Time
	now       func() time.Time
	submitted bool
}

// NewSession starts a session over total questions. timerText is the "M:SS" budget shown
// to the user; when empty or unparsable the budget is SecondsPerQuestion per question.
func NewSession(total int, timerText string) (*Session, error) {
	return NewSessionWithClock(total, timerText, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(total int, timerText string, now func() time.Time) (*Session, error) {
	if total <= 0 {
		return nil, domain.ErrNoQuestions
	}

	budget := total * SecondsPerQuestion
	if strings.TrimSpace(timerText) != "" {
		seconds, err := ParseClock(timerText)
		if err != nil {
			slog.Warn("invalid timer text, using derived budget", "text", timerText, "error", err)
		} else {
			budget = seconds
		}
	}

	return &Session{
		total:     total,
		answers:   make(map[string]string),
		timer:     newTimer(budget),
		startedAt: now(),
		now:       now,
	}, nil
}

// SelectOption records option as the answer for question, replacing any previous answer,
// and returns the number of distinct answered questions.
func (s *Session) SelectOption(question, option string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return len(s.answers), domain.ErrSessionClosed
	}
	s.answers[question] = option
	return len(s.answers), nil
}

// Advance moves to the next question unless already at the last one.
func (s *Session) Advance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < s.total-1 {
		s.current++
	}
	return s.current
}

// Retreat moves to the previous question unless already at the first one.
func (s *Session) Retreat() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current > 0 {
		s.current--
	}
	return s.current
}

// Tick advances the countdown by one second and reports whether it just expired.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return false
	}
	return s.timer.Tick()
}

// BeginSubmit applies the submission rules. Without force and with unanswered questions it
// asks for confirmation; otherwise it moves the session into the terminal submitted state
// exactly once and hands back the answers snapshot.
func (s *Session) BeginSubmit(force bool) SubmitDecision {
	s.mu.Lock()
	defer s.mu.Unlock()

	decision := SubmitDecision{Answered: len(s.answers), Total: s.total}
	if s.submitted {
		decision.Outcome = SubmitAlreadyDone
		return decision
	}
	if !force && len(s.answers) < s.total {
		decision.Outcome = SubmitNeedsConfirm
		return decision
	}

	s.submitted = true
	s.timer.Stop()
	decision.Outcome = SubmitProceed
	decision.Answers = s.answersLocked()
	decision.Elapsed = s.now().Sub(s.startedAt)
	return decision
}

// Active reports whether the session still accepts input and ticks.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.submitted && s.timer.State() == TimerRunning
}

func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

func (s *Session) Total() int { return s.total }

func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Progress is the display fraction (current+1)/total.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.current+1) / float64(s.total)
}

func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// Answers returns a copy of the recorded answers.
func (s *Session) Answers() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answersLocked()
}

func (s *Session) TimeLeft() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer.Left()
}

func (s *Session) TimerState() TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer.State()
}

func (s *Session) StartedAt() time.Time { return s.startedAt }

func (s *Session) answersLocked() map[string]string {
	out := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}
