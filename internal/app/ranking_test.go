package app_test

import (
	"context"
	"testing"
	"time"

	"cabao-quiz-service/internal/app"
	"cabao-quiz-service/internal/domain"
)

type countingFetcher struct {
	calls   int
	entries []domain.RankingEntry
}

func (c *countingFetcher) FetchRanking(context.Context, int) []domain.RankingEntry {
	c.calls++
	return c.entries
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	sched := &manualScheduler{}
	runs := 0
	d := app.NewDebouncer(300*time.Millisecond, sched, func() { runs++ })

	for i := 0; i < 10; i++ {
		d.Trigger()
	}
	if fired := sched.FireAll(); fired != 1 {
		t.Fatalf("expected only the last trigger to survive, got %d", fired)
	}
	if runs != 1 {
		t.Fatalf("expected one run, got %d", runs)
	}

	d.Trigger()
	d.Stop()
	if sched.FireAll() != 0 {
		t.Fatalf("expected stopped debouncer not to fire")
	}
}

func TestRankingBoardRefreshesOncePerBurst(t *testing.T) {
	sched := &manualScheduler{}
	fetcher := &countingFetcher{entries: []domain.RankingEntry{{Nickname: "ALPHA", Score: 1500, Rank: "Bronze"}}}
	board := app.NewRankingBoard(fetcher, 10, 300*time.Millisecond, sched)
	defer board.Close()

	updates, cancel := board.Subscribe()
	defer cancel()

	for i := 0; i < 5; i++ {
		board.RequestRefresh()
	}
	sched.FireAll()

	if fetcher.calls != 1 || board.Fetches() != 1 {
		t.Fatalf("expected a single fetch, got %d", fetcher.calls)
	}
	got := <-updates
	if len(got) != 1 || got[0].Nickname != "ALPHA" {
		t.Fatalf("unexpected published ranking %+v", got)
	}
	latest, at := board.Latest()
	if len(latest) != 1 || at.IsZero() {
		t.Fatalf("expected cached ranking, got %+v at %v", latest, at)
	}
}
