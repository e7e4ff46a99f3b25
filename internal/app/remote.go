package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"cabao-quiz-service/internal/domain"
	"cabao-quiz-service/internal/logger"
)

// Remote wraps the remote ranking and question stores with best-effort
// semantics: failed reads return empty results, failed writes are logged and
// dropped, nothing is retried.
type Remote struct {
	ranking   RankingStore
	questions QuestionSource
	admin     string
	timeout   time.Duration

	inflight sync.WaitGroup
	mu       sync.Mutex
	queues   map[string][]pendingSync
}

type pendingSync struct {
	score int
	rank  string
	phone string
}

// NewRemote accepts nil stores; the matching calls then behave as offline.
func NewRemote(ranking RankingStore, questions QuestionSource, adminNickname string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Remote{
		ranking:   ranking,
		questions: questions,
		admin:     domain.NormalizeNickname(adminNickname),
		timeout:   timeout,
		queues:    make(map[string][]pendingSync),
	}
}

// FetchQuestions returns the valid remote questions. Records that fail
// validation are dropped and logged.
func (r *Remote) FetchQuestions(ctx context.Context) []domain.Question {
	if r.questions == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.questions.FetchQuestions(ctx)
	if err != nil {
		logger.Warn("remote questions unavailable: %v", err)
		return nil
	}
	out := make([]domain.Question, 0, len(raw))
	for _, q := range raw {
		if err := q.Validate(); err != nil {
			logger.Warn("dropping remote question: %v", err)
			continue
		}
		out = append(out, q)
	}
	return out
}

// FetchRanking returns at most limit entries ordered by score descending.
func (r *Remote) FetchRanking(ctx context.Context, limit int) []domain.RankingEntry {
	if r.ranking == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	entries, err := r.ranking.FetchRanking(ctx, limit)
	if err != nil {
		logger.Warn("remote ranking unavailable: %v", err)
		return nil
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// FetchAllSubscribers is the admin listing.
func (r *Remote) FetchAllSubscribers(ctx context.Context) []domain.Subscriber {
	if r.ranking == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	subs, err := r.ranking.FetchAllSubscribers(ctx)
	if err != nil {
		logger.Warn("remote subscribers unavailable: %v", err)
		return nil
	}
	return subs
}

// UpsertScore writes synchronously and swallows failures. The admin identity is never ranked.
func (r *Remote) UpsertScore(ctx context.Context, nickname string, score int, rank, phone string) {
	nick := domain.NormalizeNickname(nickname)
	if r.ranking == nil || nick == "" || nick == r.admin {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.ranking.UpsertScore(ctx, nick, score, rank, phone); err != nil {
		logger.Error("score sync for %s dropped: %v", nick, err)
	}
}

// SyncScore runs UpsertScore in the background. Syncs for one nickname are
// applied in call order by a single worker, so a later rank is never
// overwritten by an earlier one.
func (r *Remote) SyncScore(nickname string, score int, rank, phone string) {
	nick := domain.NormalizeNickname(nickname)
	if r.ranking == nil || nick == "" || nick == r.admin {
		return
	}
	r.mu.Lock()
	queue, running := r.queues[nick]
	r.queues[nick] = append(queue, pendingSync{score: score, rank: rank, phone: phone})
	if !running {
		r.inflight.Add(1)
		go r.drain(nick)
	}
	r.mu.Unlock()
}

func (r *Remote) drain(nick string) {
	defer r.inflight.Done()
	for {
		r.mu.Lock()
		jobs := r.queues[nick]
		if len(jobs) == 0 {
			delete(r.queues, nick)
			r.mu.Unlock()
			return
		}
		r.queues[nick] = nil // still running
		r.mu.Unlock()

		for _, job := range jobs {
			r.UpsertScore(context.Background(), nick, job.score, job.rank, job.phone)
		}
	}
}

// Wait blocks until background syncs finish. Used on shutdown and in tests.
func (r *Remote) Wait() {
	r.inflight.Wait()
}
