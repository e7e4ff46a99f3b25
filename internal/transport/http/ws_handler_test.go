package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"cabao-quiz-service/internal/app"
	"cabao-quiz-service/internal/domain"
	"cabao-quiz-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

type testEnv struct {
	server  *httptest.Server
	ranking *memory.RankingStore
	board   *app.RankingBoard
	byID    map[string]domain.Question
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	auth, err := app.NewAuthenticator("ADMIN", "cabao")
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	ranking := memory.NewRankingStore()
	remote := app.NewRemote(ranking, nil, auth.AdminNickname(), time.Second)
	catalog := app.NewCatalog(sampleQuestions(), remote)
	board := app.NewRankingBoard(remote, 10, time.Hour, nil)
	users := memory.NewUserDirectory()

	policy := app.DefaultPolicy()
	policy.SettleDelay = 10 * time.Millisecond

	ws := NewWSHandler(WSDeps{
		Policy:  policy,
		Users:   func(device string) app.UserStore { return users.ForDevice(device) },
		Auth:    auth,
		Remote:  remote,
		Catalog: catalog,
		Board:   board,
		Players: memory.NewPlayerRegistry(),
	})
	api := &API{Auth: auth, Remote: remote, Catalog: catalog, Board: board}

	server := httptest.NewServer(NewRouter(api, ws))
	t.Cleanup(func() {
		server.Close()
		board.Close()
		remote.Wait()
	})

	byID := make(map[string]domain.Question)
	for _, q := range sampleQuestions() {
		byID[q.ID] = q
	}
	return &testEnv{server: server, ranking: ranking, board: board, byID: byID}
}

func TestWebSocketGameFlow(t *testing.T) {
	env := newTestEnv(t)

	u := "ws" + env.server.URL[len("http"):] + "/ws?device=phone-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the idle state first.
	var snap domain.Snapshot
	readNext(t, conn, "state", &snap)
	if snap.State != domain.StateIdle || snap.Nickname != "" {
		t.Fatalf("expected anonymous idle state, got %+v", snap)
	}

	send(t, conn, "login", map[string]string{"nickname": "ab", "phone": "11999998888"})
	var verr errorPayload
	readNext(t, conn, "error", &verr)
	if verr.Field != "nickname" {
		t.Fatalf("expected nickname validation error, got %+v", verr)
	}

	send(t, conn, "login", map[string]string{"nickname": "alpha", "phone": "11999998888"})
	readNext(t, conn, "state", &snap)
	if snap.Nickname != "ALPHA" || snap.Rank != domain.DefaultRanks[0] {
		t.Fatalf("unexpected login state %+v", snap)
	}

	send(t, conn, "start", nil)
	readNext(t, conn, "state", &snap)
	if snap.State != domain.StateRunning || snap.Question == nil {
		t.Fatalf("expected running session, got %+v", snap)
	}

	first := env.byID[snap.Question.ID]
	send(t, conn, "answer", map[string]int{"option": first.CorrectAnswer})
	var res domain.AnswerResult
	got := readSet(t, conn, "answer", "advanced")
	decode(t, got["answer"], &res)
	decode(t, got["advanced"], &snap)
	if !res.Correct || res.Prize != domain.PrizeLevel(0) {
		t.Fatalf("expected correct answer, got %+v", res)
	}
	if snap.Index != 1 || snap.Score != domain.PrizeLevel(0) {
		t.Fatalf("unexpected advanced state %+v", snap)
	}

	second := env.byID[snap.Question.ID]
	send(t, conn, "answer", map[string]int{"option": (second.CorrectAnswer + 1) % len(second.Options)})
	got = readSet(t, conn, "answer", "correction")
	decode(t, got["answer"], &res)
	decode(t, got["correction"], &snap)
	if !res.Ended {
		t.Fatalf("expected session end, got %+v", res)
	}
	if snap.Correction == nil || snap.Correction.QuestionID != second.ID {
		t.Fatalf("unexpected correction %+v", snap.Correction)
	}
	var fb feedbackPayload
	readNext(t, conn, "feedback", &fb)
	if fb.Message != app.FallbackFeedback {
		t.Fatalf("expected fallback feedback, got %q", fb.Message)
	}

	waitFor(t, func() bool {
		entries, _ := env.ranking.FetchRanking(context.Background(), 10)
		return len(entries) == 1 && entries[0].Score == domain.PrizeLevel(0)
	})
}

func TestWebSocketRequiresDevice(t *testing.T) {
	env := newTestEnv(t)
	u := "ws" + env.server.URL[len("http"):] + "/ws"
	if _, _, err := websocket.DefaultDialer.Dial(u, nil); err == nil {
		t.Fatalf("expected dial without device to fail")
	}
}

func TestWebSocketRejectsUnknownMessage(t *testing.T) {
	env := newTestEnv(t)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+env.server.URL[len("http"):]+"/ws?device=d2", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readNext(t, conn, "state", nil)
	send(t, conn, "start", nil)
	var e errorPayload
	readNext(t, conn, "error", &e)
	if e.Message != domain.ErrNoActiveUser.Error() {
		t.Fatalf("expected no active user error, got %+v", e)
	}

	send(t, conn, "salute", nil)
	readNext(t, conn, "error", &e)
	if e.Message != "unsupported message type" {
		t.Fatalf("unexpected error %+v", e)
	}
}

func TestWebSocketLoginElsewhereDetachesOldConnection(t *testing.T) {
	env := newTestEnv(t)
	base := "ws" + env.server.URL[len("http"):] + "/ws?device="

	old, _, err := websocket.DefaultDialer.Dial(base+"tablet", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer old.Close()
	readNext(t, old, "state", nil)
	send(t, old, "login", map[string]string{"nickname": "charlie", "phone": "11999998888"})
	readNext(t, old, "state", nil)

	fresh, _, err := websocket.DefaultDialer.Dial(base+"phone", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer fresh.Close()
	readNext(t, fresh, "state", nil)
	send(t, fresh, "login", map[string]string{"nickname": "charlie", "phone": "11999998888"})
	readNext(t, fresh, "state", nil)

	var snap domain.Snapshot
	readNext(t, old, "state", &snap)
	if snap.Nickname != "" || snap.State != domain.StateIdle {
		t.Fatalf("expected old connection detached, got %+v", snap)
	}
	readNext(t, old, "error", nil)

	send(t, old, "start", nil)
	var e errorPayload
	readNext(t, old, "error", &e)
	if e.Message != domain.ErrNoActiveUser.Error() {
		t.Fatalf("old connection still able to play: %+v", e)
	}

	send(t, fresh, "start", nil)
	readNext(t, fresh, "state", &snap)
	if snap.State != domain.StateRunning {
		t.Fatalf("expected new connection to play, got %+v", snap)
	}
}

func TestPushDoesNotBlockAfterShutdown(t *testing.T) {
	c := &wsConn{
		send:   make(chan outboundMessage[any], 1),
		closed: make(chan struct{}),
	}
	c.push("state", nil)
	c.shutdown()
	c.shutdown()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			c.push("state", nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("push blocked on a full queue after shutdown")
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readNext skips ranking pushes, which may arrive at any point.
func readNext(t *testing.T, conn *websocket.Conn, expect string, into any) {
	t.Helper()
	for {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if msg.Type == "ranking" && expect != "ranking" {
			continue
		}
		if msg.Type != expect {
			t.Fatalf("expected type %s, got %s (%s)", expect, msg.Type, msg.Payload)
		}
		if into != nil {
			if err := json.Unmarshal(msg.Payload, into); err != nil {
				t.Fatalf("decode %s payload: %v", expect, err)
			}
		}
		return
	}
}

// readSet reads one message of each type, in any order.
func readSet(t *testing.T, conn *websocket.Conn, types ...string) map[string]json.RawMessage {
	t.Helper()
	want := make(map[string]bool, len(types))
	for _, typ := range types {
		want[typ] = true
	}
	got := make(map[string]json.RawMessage, len(types))
	for len(got) < len(types) {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if msg.Type == "ranking" && !want["ranking"] {
			continue
		}
		if !want[msg.Type] {
			t.Fatalf("unexpected message %s (%s)", msg.Type, msg.Payload)
		}
		got[msg.Type] = msg.Payload
	}
	return got
}

func decode(t *testing.T, raw json.RawMessage, into any) {
	t.Helper()
	if err := json.Unmarshal(raw, into); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Text: "Qual o lema?", Options: []string{"Ad Sumus", "Sempre Alerta", "Avante"}, CorrectAnswer: 0, Category: "Tradições"},
		{ID: "q2", Text: "Quarto das 04h às 08h?", Options: []string{"Quarto de vigília", "Quarto d'alva"}, CorrectAnswer: 1, Category: "Tradições"},
		{ID: "q3", Text: "Estabilidade após?", Options: []string{"5 anos", "10 anos", "20 anos"}, CorrectAnswer: 1, Category: "Estatuto"},
	}
}
