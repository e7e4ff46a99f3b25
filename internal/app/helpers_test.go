package app_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"cabao-quiz-service/internal/app"
	"cabao-quiz-service/internal/domain"
	"cabao-quiz-service/internal/infra/memory"
)

// manualScheduler only runs callbacks when the test says so.
type manualScheduler struct {
	mu         sync.Mutex
	timers     []*manualTimer
	ignoreStop bool
}

type manualTimer struct {
	sched   *manualScheduler
	f       func()
	delay   time.Duration
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	if t.sched.ignoreStop {
		return false
	}
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) app.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{sched: s, f: f, delay: d}
	s.timers = append(s.timers, t)
	return t
}

// FireAll runs every callback that has not been stopped.
func (s *manualScheduler) FireAll() int {
	s.mu.Lock()
	timers := s.timers
	s.timers = nil
	var due []*manualTimer
	for _, t := range timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type syncCall struct {
	Nickname string
	Score    int
	Rank     string
}

type recordingSync struct {
	mu    sync.Mutex
	calls []syncCall
}

func (r *recordingSync) SyncScore(nickname string, score int, rank, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, syncCall{Nickname: nickname, Score: score, Rank: rank})
}

func (r *recordingSync) Calls() []syncCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]syncCall{}, r.calls...)
}

type harness struct {
	engine *app.Engine
	users  *memory.UserStore
	sched  *manualScheduler
	sync   *recordingSync
}

func newHarness(policy app.Policy, hints app.HintProvider) *harness {
	return newDeviceHarness(memory.NewUserDirectory(), "device-1", policy, hints)
}

// newDeviceHarness builds an engine for one device over a shared profile directory.
func newDeviceHarness(dir *memory.UserDirectory, device string, policy app.Policy, hints app.HintProvider) *harness {
	h := &harness{
		users: dir.ForDevice(device),
		sched: &manualScheduler{},
		sync:  &recordingSync{},
	}
	h.engine = app.NewEngine(policy, app.EngineDeps{
		Users:     h.users,
		Sync:      h.sync,
		Hints:     hints,
		Scheduler: h.sched,
		Rand:      rand.New(rand.NewSource(7)),
	})
	return h
}

func makeQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:            fmt.Sprintf("q%03d", i),
			Text:          fmt.Sprintf("Pergunta %d?", i),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: i % 4,
			Difficulty:    domain.DifficultyRecruta,
			Category:      "Geral",
		}
	}
	return qs
}

func indexByID(qs []domain.Question) map[string]domain.Question {
	out := make(map[string]domain.Question, len(qs))
	for _, q := range qs {
		out[q.ID] = q
	}
	return out
}

// current returns the full question behind the snapshot's view.
func current(e *app.Engine, byID map[string]domain.Question) domain.Question {
	snap := e.Snapshot()
	if snap.Question == nil {
		return domain.Question{}
	}
	return byID[snap.Question.ID]
}

func wrongOption(q domain.Question) int {
	return (q.CorrectAnswer + 1) % len(q.Options)
}

func login(h *harness, nickname string) error {
	_, err := h.engine.Login(context.Background(), nickname, "11 99999-8888", "")
	return err
}

// answerCorrectly answers the current question right and lets it settle.
func answerCorrectly(t *testing.T, h *harness, byID map[string]domain.Question) {
	t.Helper()
	q := current(h.engine, byID)
	if _, err := h.engine.SubmitAnswer(context.Background(), q.CorrectAnswer); err != nil {
		t.Fatalf("answer %s: %v", q.ID, err)
	}
	h.sched.FireAll()
}

func storedUser(t *testing.T, h *harness, nickname string) domain.User {
	t.Helper()
	all, err := h.users.LoadAllUsers(context.Background())
	if err != nil {
		t.Fatalf("load users: %v", err)
	}
	for _, u := range all {
		if u.Nickname == domain.NormalizeNickname(nickname) {
			return u
		}
	}
	t.Fatalf("user %s not stored", nickname)
	return domain.User{}
}
