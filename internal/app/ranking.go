package app

import (
	"context"
	"sync"
	"time"

	"cabao-quiz-service/internal/domain"
)

// Debouncer coalesces bursts of Trigger calls into a single run of fn that
// happens once no new trigger arrived for wait.
type Debouncer struct {
	wait  time.Duration
	sched Scheduler
	fn    func()

	mu    sync.Mutex
	timer Timer
}

func NewDebouncer(wait time.Duration, sched Scheduler, fn func()) *Debouncer {
	if sched == nil {
		sched = SystemScheduler
	}
	return &Debouncer{wait: wait, sched: sched, fn: fn}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.sched.AfterFunc(d.wait, d.fire)
}

// Stop cancels a pending run.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}

// RankingFetcher is satisfied by *Remote.
type RankingFetcher interface {
	FetchRanking(ctx context.Context, limit int) []domain.RankingEntry
}

// RankingBoard caches the remote ranking. RequestRefresh is safe to call on
// every high-frequency event; the fetches it causes are debounced.
type RankingBoard struct {
	remote RankingFetcher
	limit  int
	now    func() time.Time
	bounce *Debouncer

	mu          sync.RWMutex
	entries     []domain.RankingEntry
	updatedAt   time.Time
	fetches     int
	subscribers map[chan []domain.RankingEntry]struct{}
}

func NewRankingBoard(remote RankingFetcher, limit int, debounce time.Duration, sched Scheduler) *RankingBoard {
	if limit <= 0 {
		limit = 50
	}
	b := &RankingBoard{
		remote:      remote,
		limit:       limit,
		now:         time.Now,
		subscribers: make(map[chan []domain.RankingEntry]struct{}),
	}
	b.bounce = NewDebouncer(debounce, sched, func() {
		b.Refresh(context.Background())
	})
	return b
}

// RequestRefresh schedules a debounced fetch.
func (b *RankingBoard) RequestRefresh() {
	b.bounce.Trigger()
}

// Refresh fetches immediately and publishes the result. A failed fetch
// publishes an empty ranking, mirroring the remote contract.
func (b *RankingBoard) Refresh(ctx context.Context) []domain.RankingEntry {
	entries := b.remote.FetchRanking(ctx, b.limit)

	b.mu.Lock()
	b.entries = entries
	b.updatedAt = b.now()
	b.fetches++
	out := append([]domain.RankingEntry{}, entries...)
	for ch := range b.subscribers {
		select {
		case ch <- out:
		default:
		}
	}
	b.mu.Unlock()
	return out
}

// Latest returns the cached ranking and when it was fetched.
func (b *RankingBoard) Latest() ([]domain.RankingEntry, time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.RankingEntry{}, b.entries...), b.updatedAt
}

// Fetches counts remote fetches performed so far.
func (b *RankingBoard) Fetches() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fetches
}

// Subscribe receives every published ranking.
// The caller must invoke the returned cancel function to avoid leaks.
func (b *RankingBoard) Subscribe() (<-chan []domain.RankingEntry, func()) {
	ch := make(chan []domain.RankingEntry, 1)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Close stops any pending debounced fetch.
func (b *RankingBoard) Close() {
	b.bounce.Stop()
}
