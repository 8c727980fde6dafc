package quiz

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"dsa-quiz-service/internal/domain"
)

// Scorer grades an answers snapshot. It is the scoring backend as seen by a session.
type Scorer interface {
	Score(ctx context.Context, answers map[string]string) (domain.ScoreResult, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, answers map[string]string) (domain.ScoreResult, error)

func (f ScorerFunc) Score(ctx context.Context, answers map[string]string) (domain.ScoreResult, error) {
	return f(ctx, answers)
}

// Explainer returns an HTML explanation of a concept.
type Explainer interface {
	Explain(ctx context.Context, req domain.ExplainRequest) (string, error)
}

// ExplainerFunc adapts a function to Explainer.
type ExplainerFunc func(ctx context.Context, req domain.ExplainRequest) (string, error)

func (f ExplainerFunc) Explain(ctx context.Context, req domain.ExplainRequest) (string, error) {
	return f(ctx, req)
}

// View is the render surface of a controller. Results and explanation callbacks arrive
// from background goroutines, so implementations must be safe for concurrent use.
type View interface {
	Progress(index, total int, fraction float64)
	Answered(count int)
	Timer(text string, severity Severity)
	ConfirmSubmit(answered, total int)
	Results(ResultsView)
	SubmitFailed(err error)
	Explanation(index int, html string)
	ExplanationFailed(index int, err error)
}

// Action is a semantic UI action.
type Action int

const (
	ActionSelect Action = iota + 1
	ActionNext
	ActionPrev
	ActionSubmit
	ActionConfirm
	ActionExplain
)

// Event carries an action and the structured identifiers it needs.
// An ActionSelect without Question, or an ActionExplain with a negative Index,
// targets the question the session is on when the loop handles the event.
type Event struct {
	Action   Action
	Question string // ActionSelect
	Option   string // ActionSelect
	Index    int    // ActionExplain
	Concept  string // ActionExplain
}

// Ticker delivers timer ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop() { s.t.Stop() }

func newStdTicker(d time.Duration) Ticker { return stdTicker{t: time.NewTicker(d)} }

var errAlreadyRunning = errors.New("controller already running")

// Controller owns a session and serializes every mutation through one event loop.
type Controller struct {
	session   *Session
	scorer    Scorer
	explainer Explainer
	view      View
	newTicker func(time.Duration) Ticker
	prompts   []string

	events  chan Event
	done    chan struct{}
	started atomic.Bool
	wg      sync.WaitGroup

	ticker Ticker
	ticks  <-chan time.Time
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithTicker replaces the one-second ticker, e.g. with a manual one in tests.
func WithTicker(newTicker func(time.Duration) Ticker) ControllerOption {
	return func(c *Controller) { c.newTicker = newTicker }
}

// WithQuestions gives the controller the question texts, used as the concept of
// explanation requests that do not carry one.
func WithQuestions(prompts []string) ControllerOption {
	return func(c *Controller) { c.prompts = prompts }
}

func NewController(session *Session, scorer Scorer, explainer Explainer, view View, opts ...ControllerOption) *Controller {
	c := &Controller{
		session:   session,
		scorer:    scorer,
		explainer: explainer,
		view:      view,
		newTicker: newStdTicker,
		events:    make(chan Event, 32),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Session() *Session { return c.session }

// Dispatch queues an event for the loop. It reports false once the loop has exited.
func (c *Controller) Dispatch(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// Submit queues a submit request; force bypasses the fully-answered check.
func (c *Controller) Submit(force bool) bool {
	if force {
		return c.Dispatch(Event{Action: ActionConfirm})
	}
	return c.Dispatch(Event{Action: ActionSubmit})
}

// Run processes events and timer ticks until ctx is done, then waits for in-flight
// scoring and explanation requests. It may be called once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}
	defer close(c.done)
	defer c.wg.Wait()
	defer c.stopTicker()

	c.renderAll()
	if c.session.Active() {
		c.ticker = c.newTicker(time.Second)
		c.ticks = c.ticker.C()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.events:
			c.handle(ctx, ev)
		case <-c.ticks:
			c.tick(ctx)
		}
		if !c.session.Active() {
			c.stopTicker()
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	switch ev.Action {
	case ActionSelect:
		if ev.Question == "" {
			ev.Question = strconv.Itoa(c.session.CurrentIndex())
		}
		count, err := c.session.SelectOption(ev.Question, ev.Option)
		if err != nil {
			slog.Debug("answer ignored", "question", ev.Question, "error", err)
			return
		}
		c.view.Answered(count)
	case ActionNext:
		if c.session.Active() {
			c.session.Advance()
			c.renderProgress()
		}
	case ActionPrev:
		if c.session.Active() {
			c.session.Retreat()
			c.renderProgress()
		}
	case ActionSubmit:
		c.submit(ctx, false)
	case ActionConfirm:
		c.submit(ctx, true)
	case ActionExplain:
		c.explain(ctx, ev)
	default:
		slog.Warn("unknown quiz action", "action", int(ev.Action))
	}
}

func (c *Controller) tick(ctx context.Context) {
	expired := c.session.Tick()
	c.renderTimer()
	if expired {
		c.stopTicker()
		c.submit(ctx, true)
	}
}

func (c *Controller) submit(ctx context.Context, force bool) {
	decision := c.session.BeginSubmit(force)
	switch decision.Outcome {
	case SubmitNeedsConfirm:
		c.view.ConfirmSubmit(decision.Answered, decision.Total)
	case SubmitAlreadyDone:
		slog.Debug("duplicate submit ignored")
	case SubmitProceed:
		c.stopTicker()
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.score(ctx, decision)
		}()
	}
}

func (c *Controller) score(ctx context.Context, decision SubmitDecision) {
	slog.Info("submitting answers", "answered", decision.Answered, "total", decision.Total)
	result, err := c.scorer.Score(ctx, decision.Answers)
	if err != nil {
		slog.Error("submit quiz failed", "error", err)
		c.view.SubmitFailed(err)
		return
	}
	view, err := RenderResults(result, decision.Elapsed)
	if err != nil {
		slog.Error("render results failed", "error", err)
		c.view.SubmitFailed(err)
		return
	}
	c.view.Results(view)
}

func (c *Controller) explain(ctx context.Context, ev Event) {
	if ev.Index < 0 {
		ev.Index = c.session.CurrentIndex()
	}
	if ev.Concept == "" && ev.Index < len(c.prompts) {
		ev.Concept = c.prompts[ev.Index]
	}
	if c.explainer == nil {
		c.view.ExplanationFailed(ev.Index, domain.ErrAIUnavailable)
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		html, err := c.explainer.Explain(ctx, domain.ExplainRequest{
			Concept:    ev.Concept,
			Context:    "Quiz Question",
			Difficulty: "intermediate",
		})
		if err != nil {
			c.view.ExplanationFailed(ev.Index, err)
			return
		}
		c.view.Explanation(ev.Index, html)
	}()
}

func (c *Controller) stopTicker() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	c.ticks = nil
}

func (c *Controller) renderAll() {
	c.renderProgress()
	c.view.Answered(c.session.AnsweredCount())
	c.renderTimer()
}

func (c *Controller) renderProgress() {
	c.view.Progress(c.session.CurrentIndex(), c.session.Total(), c.session.Progress())
}

func (c *Controller) renderTimer() {
	left := c.session.TimeLeft()
	c.view.Timer(FormatClock(left), SeverityOf(left))
}
