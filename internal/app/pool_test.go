package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cabao-quiz-service/internal/app"
	"cabao-quiz-service/internal/domain"
)

func TestMergePoolDeduplicatesByText(t *testing.T) {
	local := []domain.Question{
		{ID: "l1", Text: "Hino?", Options: []string{"a", "b"}},
		{ID: "l2", Text: "Lema?", Options: []string{"a", "b"}},
	}
	remote := []domain.Question{
		{ID: "r1", Text: "Lema?", Options: []string{"x", "y"}},
		{ID: "l1", Text: "Outra?", Options: []string{"x", "y"}},
		{ID: "r3", Text: "Patrono?", Options: []string{"x", "y"}},
	}

	merged := app.MergePool(local, remote)
	if len(merged) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(merged))
	}
	if merged[1].ID != "l2" || merged[1].Options[0] != "a" {
		t.Fatalf("local entry must win on conflict, got %+v", merged[1])
	}
	if merged[2].ID != "r3" {
		t.Fatalf("expected remote question appended, got %+v", merged[2])
	}
}

func TestCandidatesExcludeSeen(t *testing.T) {
	pool := makeQuestions(5)
	seen := domain.NewIDSet(pool[1].ID, pool[3].ID)

	got := app.Candidates(pool, seen)
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	for _, q := range got {
		if seen.Has(q.ID) {
			t.Fatalf("candidate %s already seen", q.ID)
		}
	}
}

type stubSource struct {
	questions []domain.Question
	err       error
}

func (s stubSource) FetchQuestions(context.Context) ([]domain.Question, error) {
	return s.questions, s.err
}

func TestCatalogRefreshMergesValidRemoteQuestions(t *testing.T) {
	local := makeQuestions(2)
	source := stubSource{questions: []domain.Question{
		{ID: "r1", Text: "Remota?", Options: []string{"a", "b", "c"}, CorrectAnswer: 2, Category: "Remoto"},
		{ID: "bad", Text: "Sem opções?", Options: []string{"a"}},
	}}
	catalog := app.NewCatalog(local, app.NewRemote(nil, source, "ADMIN", 0))

	pool := catalog.Refresh(context.Background())
	if len(pool) != 3 {
		t.Fatalf("expected 3 questions after merge, got %d", len(pool))
	}
	stats := catalog.Stats()
	if stats.Total != 3 || stats.Categories["Remoto"] != 1 || stats.Categories["Geral"] != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCatalogRefreshFallsBackToLocal(t *testing.T) {
	local := makeQuestions(4)
	catalog := app.NewCatalog(local, app.NewRemote(nil, stubSource{err: errors.New("offline")}, "ADMIN", 0))

	if pool := catalog.Refresh(context.Background()); len(pool) != 4 {
		t.Fatalf("expected local pool on failure, got %d", len(pool))
	}
}

type changingSource struct {
	mu        sync.Mutex
	questions []domain.Question
}

func (s *changingSource) FetchQuestions(context.Context) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Question(nil), s.questions...), nil
}

func (s *changingSource) set(qs []domain.Question) {
	s.mu.Lock()
	s.questions = qs
	s.mu.Unlock()
}

func TestCatalogWatchPicksUpNewRemoteQuestions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := &changingSource{}
	catalog := app.NewCatalog(makeQuestions(2), app.NewRemote(nil, source, "ADMIN", 0))
	catalog.Refresh(ctx)

	done := make(chan struct{})
	go func() {
		catalog.Watch(ctx, 5*time.Millisecond)
		close(done)
	}()

	source.set([]domain.Question{{ID: "seeded", Text: "Nova?", Options: []string{"a", "b"}, CorrectAnswer: 1}})
	deadline := time.Now().Add(5 * time.Second)
	for len(catalog.Pool()) != 3 {
		if time.Now().After(deadline) {
			t.Fatalf("catalog never picked up the seeded question")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("watch did not stop on cancel")
	}
}
