package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"dsa-quiz-service/internal/client"
	"dsa-quiz-service/internal/quiz"
	"github.com/spf13/cobra"
)

type playOptions struct {
	server     string
	topic      string
	difficulty string
	questions  int
}

// NewPlayCmd plays a quiz in the terminal against a running server.
func NewPlayCmd(port *string) *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a timed quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.server == "" {
				p := *port
				if p == "" {
					p = "8080"
				}
				opts.server = "http://localhost:" + p
			}
			return runPlay(cmd.Context(), os.Stdin, cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.server, "server", "", "quiz server base URL (default http://localhost:<port>)")
	cmd.Flags().StringVar(&opts.topic, "topic", "arrays-strings", "topic id")
	cmd.Flags().StringVar(&opts.difficulty, "difficulty", "mixed", "difficulty")
	cmd.Flags().IntVar(&opts.questions, "questions", 5, "number of questions")
	return cmd
}

const playHelp = `commands: <letter> answer current, a <n> <letter> answer question n, n next, p prev,
          s submit, y confirm submit, e explain current, q quit`

func runPlay(ctx context.Context, in io.Reader, out io.Writer, opts playOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	api := client.New(opts.server, nil)
	if _, err := api.NewSession(ctx); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	qv, err := api.StartQuiz(ctx, opts.topic, opts.difficulty, opts.questions)
	if err != nil {
		return fmt.Errorf("start quiz: %w", err)
	}
	session, err := quiz.NewSession(len(qv.Questions), qv.Timer)
	if err != nil {
		return err
	}

	view := newTermView(out, qv)
	view.printf("%s\n%s\n%s\n\n", qv.Title, qv.Description, playHelp)
	prompts := make([]string, len(qv.Questions))
	for i, q := range qv.Questions {
		prompts[i] = q.Question
	}
	ctrl := quiz.NewController(session, api, api, view, quiz.WithQuestions(prompts))

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = ctrl.Run(ctx)
	}()
	defer func() {
		cancel()
		<-runDone
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	total := len(qv.Questions)
	pendingSubmit := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-view.finished:
			return nil
		case line, ok := <-lines:
			if !ok {
				if !pendingSubmit {
					return nil
				}
				// input closed after a submit: wait for its outcome
				select {
				case <-view.finished:
				case <-view.confirms:
				case <-ctx.Done():
				}
				return nil
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			switch cmd := fields[0]; {
			case cmd == "q":
				return nil
			case cmd == "n":
				ctrl.Dispatch(quiz.Event{Action: quiz.ActionNext})
			case cmd == "p":
				ctrl.Dispatch(quiz.Event{Action: quiz.ActionPrev})
			case cmd == "s":
				pendingSubmit = true
				ctrl.Submit(false)
			case cmd == "y":
				pendingSubmit = true
				ctrl.Submit(true)
			case cmd == "e":
				ctrl.Dispatch(quiz.Event{Action: quiz.ActionExplain, Index: -1})
			case cmd == "a" && len(fields) == 3:
				n, err := strconv.Atoi(fields[1])
				if err != nil || n < 1 || n > total {
					view.printf("no question %q\n", fields[1])
					continue
				}
				ctrl.Dispatch(quiz.Event{Action: quiz.ActionSelect, Question: strconv.Itoa(n - 1), Option: strings.ToUpper(fields[2])})
			case len(cmd) == 1 && strings.ContainsAny(strings.ToUpper(cmd), "ABCD"):
				ctrl.Dispatch(quiz.Event{Action: quiz.ActionSelect, Option: strings.ToUpper(cmd)})
			default:
				view.printf("%s\n", playHelp)
			}
		}
	}
}

// termView prints controller output as plain text.
type termView struct {
	mu  sync.Mutex
	out io.Writer
	qv  client.QuizView

	lastSeverity quiz.Severity
	finishOnce   sync.Once
	finished     chan struct{}
	confirms     chan struct{}
}

func newTermView(out io.Writer, qv client.QuizView) *termView {
	return &termView{
		out:      out,
		qv:       qv,
		finished: make(chan struct{}),
		confirms: make(chan struct{}, 1),
	}
}

func (v *termView) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, format, args...)
}

func (v *termView) finish() { v.finishOnce.Do(func() { close(v.finished) }) }

func (v *termView) Progress(index, total int, fraction float64) {
	q := v.qv.Questions[index]
	keys := make([]string, 0, len(q.Options))
	for k := range q.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "\nQuestion %d of %d (%.0f%%)\n%s\n", index+1, total, fraction*100, q.Question)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s) %s\n", k, q.Options[k])
	}
	v.printf("%s", b.String())
}

func (v *termView) Answered(count int) {
	v.printf("answered %d/%d\n", count, len(v.qv.Questions))
}

// Timer prints on severity changes and whole minutes only.
func (v *termView) Timer(text string, severity quiz.Severity) {
	v.mu.Lock()
	changed := severity != v.lastSeverity
	v.lastSeverity = severity
	v.mu.Unlock()
	if changed || strings.HasSuffix(text, ":00") {
		v.printf("[%s left]\n", text)
	}
}

func (v *termView) ConfirmSubmit(answered, total int) {
	v.printf("You have answered %d of %d questions. Submit anyway? (y to confirm)\n", answered, total)
	select {
	case v.confirms <- struct{}{}:
	default:
	}
}

func (v *termView) Results(r quiz.ResultsView) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s  %s\n", r.ScoreText, r.Message)
	fmt.Fprintf(&b, "correct %d, wrong %d, time %s\n", r.Correct, r.Wrong, r.Elapsed)
	if r.Badge != "" {
		fmt.Fprintf(&b, "%s\n", r.Badge)
	}
	for _, rev := range r.Reviews {
		mark := "x"
		if rev.Correct {
			mark = "ok"
		}
		fmt.Fprintf(&b, "\n%d. [%s] %s\n", rev.Number, mark, rev.Question)
		for _, o := range rev.Options {
			switch o.Mark {
			case quiz.MarkCorrect:
				fmt.Fprintf(&b, "  * %s) %s\n", o.Key, o.Text)
			case quiz.MarkWrongChoice:
				fmt.Fprintf(&b, "  ! %s) %s\n", o.Key, o.Text)
			default:
				fmt.Fprintf(&b, "    %s) %s\n", o.Key, o.Text)
			}
		}
		if rev.Explanation != "" {
			fmt.Fprintf(&b, "  %s\n", rev.Explanation)
		}
	}
	v.printf("%s", b.String())
	v.finish()
}

func (v *termView) SubmitFailed(err error) {
	v.printf("Error submitting quiz: %v\n", err)
	v.finish()
}

func (v *termView) Explanation(index int, html string) {
	v.printf("\nExplanation for question %d:\n%s\n", index+1, html)
}

func (v *termView) ExplanationFailed(index int, err error) {
	v.printf("Error loading explanation for question %d: %v\n", index+1, err)
}
