package quiz

import (
	"fmt"
	"strconv"
	"strings"
)

// SecondsPerQuestion is the time budget per question when no explicit budget is given.
const SecondsPerQuestion = 180

// TimerState is the countdown state.
type TimerState int

const (
	TimerRunning TimerState = iota
	// TimerExpired is entered when the countdown reaches zero.
	TimerExpired
	// TimerStopped is entered when the session is submitted before expiry.
	TimerStopped
)

func (s TimerState) String() string {
	switch s {
	case TimerRunning:
		return "running"
	case TimerExpired:
		return "expired"
	case TimerStopped:
		return "stopped"
	}
	return "unknown"
}

// Severity is a display hint derived from the seconds left.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SeverityOf bands the remaining time for display styling.
func SeverityOf(seconds int) Severity {
	switch {
	case seconds < 60:
		return SeverityCritical
	case seconds < 180:
		return SeverityWarning
	default:
		return SeverityNormal
	}
}

// Timer counts down once per Tick. Expired and Stopped are terminal.
type Timer struct {
	left  int
	state TimerState
}

func newTimer(seconds int) Timer {
	if seconds < 0 {
		seconds = 0
	}
	return Timer{left: seconds, state: TimerRunning}
}

// Tick decrements the countdown and reports whether this tick expired it.
// Ticks outside the running state are ignored.
func (t *Timer) Tick() bool {
	if t.state != TimerRunning {
		return false
	}
	t.left--
	if t.left <= 0 {
		t.left = 0
		t.state = TimerExpired
		return true
	}
	return false
}

// Stop halts a running timer. It is a no-op once the timer left the running state.
func (t *Timer) Stop() {
	if t.state == TimerRunning {
		t.state = TimerStopped
	}
}

func (t *Timer) Left() int         { return t.left }
func (t *Timer) State() TimerState { return t.state }

// FormatClock renders seconds as M:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// ParseClock parses a "minutes:seconds" display string into seconds.
func ParseClock(text string) (int, error) {
	minutes, seconds, ok := strings.Cut(strings.TrimSpace(text), ":")
	if !ok {
		return 0, fmt.Errorf("parse clock %q: missing ':'", text)
	}
	m, err := strconv.Atoi(strings.TrimSpace(minutes))
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", text, err)
	}
	s, err := strconv.Atoi(strings.TrimSpace(seconds))
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", text, err)
	}
	if m < 0 || s < 0 {
		return 0, fmt.Errorf("parse clock %q: negative value", text)
	}
	return m*60 + s, nil
}
