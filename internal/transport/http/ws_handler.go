package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"dsa-quiz-service/internal/app"
	"dsa-quiz-service/internal/domain"
	"dsa-quiz-service/internal/quiz"
	"github.com/gorilla/websocket"
)

// WSHandler runs one quiz controller per websocket connection.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	opts     []quiz.ControllerOption
}

func NewWSHandler(service *app.QuizService, opts ...quiz.ControllerOption) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		opts: opts,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Question string `json:"question"`
	Option   string `json:"option"`
}

type keyPayload struct {
	Key  string `json:"key"`
	Ctrl bool   `json:"ctrl"`
}

type explainPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type progressPayload struct {
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	Fraction float64 `json:"fraction"`
}

type answeredPayload struct {
	Count int `json:"count"`
}

type timerPayload struct {
	Text     string        `json:"text"`
	Severity quiz.Severity `json:"severity"`
}

type confirmPayload struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

type explanationPayload struct {
	Index int    `json:"index"`
	HTML  string `json:"html,omitempty"`
	Error string `json:"error,omitempty"`
}

// wsView renders controller output as typed messages on the connection's send queue.
type wsView struct {
	send       chan<- outboundMessage[any]
	writerDone <-chan struct{}
}

func (v wsView) emit(typ string, payload any) {
	select {
	case v.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-v.writerDone:
	}
}

func (v wsView) Progress(index, total int, fraction float64) {
	v.emit("progress", progressPayload{Index: index, Total: total, Fraction: fraction})
}

func (v wsView) Answered(count int) { v.emit("answered", answeredPayload{Count: count}) }

func (v wsView) Timer(text string, severity quiz.Severity) {
	v.emit("timer", timerPayload{Text: text, Severity: severity})
}

func (v wsView) ConfirmSubmit(answered, total int) {
	v.emit("confirm", confirmPayload{Answered: answered, Total: total})
}

func (v wsView) Results(r quiz.ResultsView) { v.emit("results", r) }

func (v wsView) SubmitFailed(err error) {
	v.emit("error", errorPayload{Message: "Error submitting quiz: " + err.Error()})
}

func (v wsView) Explanation(index int, html string) {
	v.emit("explanation", explanationPayload{Index: index, HTML: html})
}

func (v wsView) ExplanationFailed(index int, err error) {
	v.emit("explanation", explanationPayload{Index: index, Error: "Error loading explanation: " + err.Error()})
}

// ServeWS upgrades HTTP requests to websockets and drives a quiz session over them.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())
	current, err := h.service.CurrentQuiz(r.Context(), userID, r.URL.Query().Get("topic_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	session, err := quiz.NewSession(len(current.Questions), TimerText(current))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				slog.Warn("ws write error", "error", err)
				return
			}
		}
	}()

	view := wsView{send: send, writerDone: writerDone}
	view.emit("quiz", NewQuizView(current))

	scorer := quiz.ScorerFunc(func(ctx context.Context, answers map[string]string) (domain.ScoreResult, error) {
		return h.service.SubmitQuiz(ctx, userID, answers)
	})
	ctrl := quiz.NewController(session, scorer, quiz.ExplainerFunc(h.service.Explain), view, h.opts...)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = ctrl.Run(ctx)
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		ev, msg := h.event(current, inbound)
		if msg != "" {
			view.emit("error", errorPayload{Message: msg})
			continue
		}
		ctrl.Dispatch(ev)
	}

	cancel()
	<-runDone
	close(send)
	<-writerDone
}

// event translates an inbound message into a controller event, or returns an error message.
func (h *WSHandler) event(current domain.Quiz, in inboundMessage) (quiz.Event, string) {
	switch in.Type {
	case "select":
		var p selectPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil || p.Option == "" {
			return quiz.Event{}, "invalid select payload"
		}
		idx, err := strconv.Atoi(p.Question)
		if err != nil || idx < 0 || idx >= len(current.Questions) || strconv.Itoa(idx) != p.Question {
			return quiz.Event{}, "unknown question " + strconv.Quote(p.Question)
		}
		return quiz.Event{Action: quiz.ActionSelect, Question: p.Question, Option: p.Option}, ""
	case "next":
		return quiz.Event{Action: quiz.ActionNext}, ""
	case "prev":
		return quiz.Event{Action: quiz.ActionPrev}, ""
	case "submit":
		return quiz.Event{Action: quiz.ActionSubmit}, ""
	case "confirm":
		return quiz.Event{Action: quiz.ActionConfirm}, ""
	case "key":
		var p keyPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return quiz.Event{}, "invalid key payload"
		}
		action, ok := quiz.KeyAction(p.Key, p.Ctrl)
		if !ok {
			return quiz.Event{}, "unbound key " + strconv.Quote(p.Key)
		}
		return quiz.Event{Action: action}, ""
	case "explain":
		var p explainPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil || p.Index < 0 || p.Index >= len(current.Questions) {
			return quiz.Event{}, "invalid explain payload"
		}
		return quiz.Event{Action: quiz.ActionExplain, Index: p.Index, Concept: current.Questions[p.Index].Prompt}, ""
	default:
		return quiz.Event{}, "unsupported message type"
	}
}
