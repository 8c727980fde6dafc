package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketQuizFlow(t *testing.T) {
	server := newTestServer(t)
	token := newToken(t, server)

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?topic_id=arrays-strings&token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload := readNext(t, conn, "quiz")
	var view QuizView
	if err := json.Unmarshal(payload, &view); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}
	if len(view.Questions) != 5 || view.Timer != "6:00" {
		t.Fatalf("unexpected quiz view: %d questions, timer %q", len(view.Questions), view.Timer)
	}
	// the first timer message closes the initial render
	readNext(t, conn, "timer")

	send(t, conn, "select", map[string]string{"question": "0", "option": "A"})
	var answered answeredPayload
	mustDecode(t, readNext(t, conn, "answered"), &answered)
	if answered.Count != 1 {
		t.Fatalf("expected 1 answered, got %d", answered.Count)
	}

	send(t, conn, "key", map[string]any{"key": "ArrowRight"})
	var progress progressPayload
	mustDecode(t, readNext(t, conn, "progress"), &progress)
	if progress.Index != 1 || progress.Total != 5 {
		t.Fatalf("unexpected progress %+v", progress)
	}

	send(t, conn, "submit", nil)
	var confirm confirmPayload
	mustDecode(t, readNext(t, conn, "confirm"), &confirm)
	if confirm.Answered != 1 || confirm.Total != 5 {
		t.Fatalf("unexpected confirm %+v", confirm)
	}

	send(t, conn, "confirm", nil)
	var results struct {
		Score   int    `json:"score"`
		Correct int    `json:"correct"`
		Band    string `json:"band"`
		Badge   string `json:"badge"`
	}
	mustDecode(t, readNext(t, conn, "results"), &results)
	if results.Score != 20 || results.Correct != 1 || results.Band != "keep_learning" {
		t.Fatalf("unexpected results %+v", results)
	}
	if results.Badge != "New Personal Best! (Previous: 0%)" {
		t.Fatalf("unexpected badge %q", results.Badge)
	}
}

func TestWebSocketRejectsUnknownMessages(t *testing.T) {
	server := newTestServer(t)
	token := newToken(t, server)

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?topic_id=trees&token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(t, conn, "quiz")

	send(t, conn, "dance", nil)
	var e errorPayload
	mustDecode(t, readNext(t, conn, "error"), &e)
	if e.Message != "unsupported message type" {
		t.Fatalf("unexpected error %q", e.Message)
	}

	send(t, conn, "explain", map[string]int{"index": 0})
	var ex explanationPayload
	mustDecode(t, readNext(t, conn, "explanation"), &ex)
	if ex.Error == "" || ex.HTML != "" {
		t.Fatalf("expected explanation failure without an LLM, got %+v", ex)
	}
}

func TestWebSocketSelectRejectsUnknownQuestions(t *testing.T) {
	server := newTestServer(t)
	token := newToken(t, server)

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?topic_id=linked-lists&token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(t, conn, "quiz")
	readNext(t, conn, "timer")

	for _, question := range []string{"99", "5", "-1", "01", "x"} {
		send(t, conn, "select", map[string]string{"question": question, "option": "A"})
		var e errorPayload
		mustDecode(t, readNext(t, conn, "error"), &e)
		if !strings.HasPrefix(e.Message, "unknown question") {
			t.Fatalf("question %q: unexpected error %q", question, e.Message)
		}
	}

	// None of the rejected answers count, so submitting still asks for confirmation.
	send(t, conn, "select", map[string]string{"question": "4", "option": "A"})
	var answered answeredPayload
	mustDecode(t, readNext(t, conn, "answered"), &answered)
	if answered.Count != 1 {
		t.Fatalf("expected 1 answered, got %d", answered.Count)
	}
	send(t, conn, "submit", nil)
	var confirm confirmPayload
	mustDecode(t, readNext(t, conn, "confirm"), &confirm)
	if confirm.Answered != 1 || confirm.Total != 5 {
		t.Fatalf("unexpected confirm %+v", confirm)
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	server := newTestServer(t)
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?topic_id=trees"
	_, res, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial failure")
	}
	if res == nil || res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", res)
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ, "payload": payload}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func mustDecode(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

// readNext skips messages until one of the wanted type arrives.
func readNext(t *testing.T, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read while waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Payload
		}
	}
}
