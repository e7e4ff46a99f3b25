package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"cabao-quiz-service/internal/app"
	"cabao-quiz-service/internal/domain"
	"cabao-quiz-service/internal/logger"
	"github.com/gorilla/websocket"
)

// WSDeps is everything a game connection needs. Remote, Hints and Feedback are optional.
type WSDeps struct {
	Policy   app.Policy
	Users    func(device string) app.UserStore
	Auth     *app.Authenticator
	Remote   *app.Remote
	Hints    app.HintProvider
	Feedback app.FeedbackProvider
	Catalog  *app.Catalog
	Board    *app.RankingBoard
	Players  app.PlayerRegistry
}

type WSHandler struct {
	deps     WSDeps
	upgrader websocket.Upgrader
}

func NewWSHandler(deps WSDeps) *WSHandler {
	return &WSHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type loginPayload struct {
	Nickname   string `json:"nickname"`
	Phone      string `json:"phone"`
	Passphrase string `json:"passphrase"`
}

type answerPayload struct {
	Option *int `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type feedbackPayload struct {
	Message string `json:"message"`
	Score   int    `json:"score"`
}

// wsConn serializes writes: every producer goes through push, one writer drains send.
type wsConn struct {
	send      chan outboundMessage[any]
	closed    chan struct{}
	closeOnce sync.Once
	workers   sync.WaitGroup
}

// shutdown stops every producer. Safe to call from the writer and the cleanup path.
func (c *wsConn) shutdown() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *wsConn) push(typ string, payload any) {
	select {
	case c.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-c.closed:
	}
}

func (c *wsConn) pushError(err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.push("error", errorPayload{Message: verr.Message, Field: verr.Field})
		return
	}
	c.push("error", errorPayload{Message: err.Error()})
}

// ServeWS upgrades HTTP requests to websockets and runs one game engine per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	device := r.URL.Query().Get("device")
	if device == "" {
		http.Error(w, "missing device", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := h.newEngine(device)
	events, cancelEvents := engine.Subscribe()
	defer cancelEvents()
	rankings, cancelRankings := h.deps.Board.Subscribe()
	defer cancelRankings()

	c := &wsConn{
		send:   make(chan outboundMessage[any], 16),
		closed: make(chan struct{}),
	}
	writerDone := make(chan struct{})
	forwardDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn("ws write error: %v", err)
				c.shutdown()
				// unblocks the read loop
				conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(forwardDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				h.forwardEvent(ctx, c, ev)
			case entries, ok := <-rankings:
				if !ok {
					return
				}
				c.push("ranking", publicEntries(entries, 0))
			case <-c.closed:
				return
			}
		}
	}()

	if user, ok, err := engine.Resume(ctx); err != nil {
		logger.Warn("resume device %s: %v", device, err)
	} else if ok {
		app.ClaimPlayer(ctx, h.deps.Players, user.Nickname, engine)
	}
	c.push("state", engine.Snapshot())

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handle(ctx, engine, c, inbound)
	}

	// bank whatever the player earned and drop pending continuations
	if user, ok := engine.User(); ok {
		h.deps.Players.Release(user.Nickname, engine)
	}
	engine.ReturnToMenu(ctx)

	c.shutdown()
	<-forwardDone
	c.workers.Wait()
	close(c.send)
	<-writerDone
}

func (h *WSHandler) newEngine(device string) *app.Engine {
	deps := app.EngineDeps{
		Users: h.deps.Users(device),
		Auth:  h.deps.Auth,
		Hints: h.deps.Hints,
	}
	if h.deps.Remote != nil {
		deps.Sync = h.deps.Remote
	}
	return app.NewEngine(h.deps.Policy, deps)
}

func (h *WSHandler) forwardEvent(ctx context.Context, c *wsConn, ev domain.Event) {
	switch ev.Type {
	case domain.EventStarted, domain.EventReset:
		c.push("state", ev.Snapshot)
	case domain.EventAdvanced:
		c.push("advanced", ev.Snapshot)
		h.deps.Board.RequestRefresh()
	case domain.EventPromoted:
		c.push("promoted", ev.Snapshot)
		h.deps.Board.RequestRefresh()
	case domain.EventHint:
		c.push("hint", ev.Snapshot)
	case domain.EventSuperseded:
		c.push("state", ev.Snapshot)
		c.push("error", errorPayload{Message: "player signed in on another connection"})
	case domain.EventEnded:
		c.push("correction", ev.Snapshot)
		h.deps.Board.RequestRefresh()

		c.workers.Add(1)
		go func(score int) {
			defer c.workers.Done()
			msg := app.MissionFeedback(ctx, h.deps.Feedback, score, false)
			c.push("feedback", feedbackPayload{Message: msg, Score: score})
		}(ev.Snapshot.Score)
	}
}

func (h *WSHandler) handle(ctx context.Context, engine *app.Engine, c *wsConn, inbound inboundMessage) {
	switch inbound.Type {
	case "login":
		var payload loginPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.push("error", errorPayload{Message: "invalid login payload"})
			return
		}
		if prev, ok := engine.User(); ok {
			h.deps.Players.Release(prev.Nickname, engine)
		}
		user, err := engine.Login(ctx, payload.Nickname, payload.Phone, payload.Passphrase)
		if err != nil {
			c.pushError(err)
			return
		}
		app.ClaimPlayer(ctx, h.deps.Players, user.Nickname, engine)
		c.push("state", engine.Snapshot())

	case "resume":
		user, ok, err := engine.Resume(ctx)
		if err != nil {
			c.pushError(err)
			return
		}
		if ok {
			app.ClaimPlayer(ctx, h.deps.Players, user.Nickname, engine)
		}
		c.push("state", engine.Snapshot())

	case "start":
		if _, err := engine.StartGame(ctx, h.deps.Catalog.Pool()); err != nil {
			c.pushError(err)
		}

	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Option == nil {
			c.push("error", errorPayload{Message: "invalid answer payload"})
			return
		}
		res, err := engine.SubmitAnswer(ctx, *payload.Option)
		if err != nil {
			c.pushError(err)
			return
		}
		c.push("answer", res)

	case "skip":
		if _, err := engine.Skip(ctx); err != nil {
			c.pushError(err)
		}

	case "sergeant":
		if _, err := engine.Sergeant(ctx); err != nil {
			c.pushError(err)
		}

	case "meta":
		if _, err := engine.Meta(); err != nil {
			c.pushError(err)
			return
		}
		c.push("state", engine.Snapshot())

	case "menu":
		c.push("state", engine.ReturnToMenu(ctx))

	case "logout":
		if prev, ok := engine.User(); ok {
			h.deps.Players.Release(prev.Nickname, engine)
		}
		if err := engine.Logout(ctx); err != nil {
			logger.Error("logout: %v", err)
		}
		c.push("state", engine.Snapshot())

	case "ranking":
		entries, _ := h.deps.Board.Latest()
		c.push("ranking", publicEntries(entries, 0))
		h.deps.Board.RequestRefresh()

	default:
		c.push("error", errorPayload{Message: "unsupported message type"})
	}
}
