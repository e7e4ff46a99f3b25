package app

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"cabao-quiz-service/internal/domain"
	"cabao-quiz-service/internal/logger"
)

// MergePool appends remote questions whose text is not already present.
// Local entries keep their position and win on conflicts. A remote question
// reusing a known ID is dropped so IDs stay unique.
func MergePool(local, remote []domain.Question) []domain.Question {
	merged := make([]domain.Question, 0, len(local)+len(remote))
	texts := make(map[string]struct{}, len(local)+len(remote))
	ids := make(map[string]struct{}, len(local)+len(remote))

	for _, q := range local {
		merged = append(merged, q)
		texts[q.Text] = struct{}{}
		ids[q.ID] = struct{}{}
	}
	for _, q := range remote {
		if _, dup := texts[q.Text]; dup {
			continue
		}
		if _, dup := ids[q.ID]; dup {
			logger.Warn("remote question %s reuses a known id, skipped", q.ID)
			continue
		}
		merged = append(merged, q)
		texts[q.Text] = struct{}{}
		ids[q.ID] = struct{}{}
	}
	return merged
}

// Candidates returns the pool questions not yet seen, in pool order.
func Candidates(pool []domain.Question, seen domain.IDSet) []domain.Question {
	out := make([]domain.Question, 0, len(pool))
	for _, q := range pool {
		if seen.Has(q.ID) {
			continue
		}
		out = append(out, q)
	}
	return out
}

// ShuffledCandidates is Candidates followed by a Fisher–Yates shuffle.
func ShuffledCandidates(rnd *rand.Rand, pool []domain.Question, seen domain.IDSet) []domain.Question {
	out := Candidates(pool, seen)
	domain.Shuffle(rnd, out)
	return out
}

// Catalog holds the merged question pool: the static set plus whatever the
// remote store returned on the last refresh.
type Catalog struct {
	local  []domain.Question
	remote *Remote

	mu   sync.RWMutex
	pool []domain.Question
}

func NewCatalog(local []domain.Question, remote *Remote) *Catalog {
	pool := make([]domain.Question, len(local))
	copy(pool, local)
	return &Catalog{local: local, remote: remote, pool: pool}
}

// Refresh re-fetches remote questions and rebuilds the pool. A failed fetch
// leaves the pool as the local set.
func (c *Catalog) Refresh(ctx context.Context) []domain.Question {
	var remote []domain.Question
	if c.remote != nil {
		remote = c.remote.FetchQuestions(ctx)
	}
	merged := MergePool(c.local, remote)

	c.mu.Lock()
	changed := len(c.pool) != len(merged)
	c.pool = merged
	c.mu.Unlock()

	if changed {
		logger.Info("question pool ready: %d local, %d total", len(c.local), len(merged))
	} else {
		logger.Debug("question pool refreshed: %d total", len(merged))
	}
	return c.Pool()
}

// Watch refreshes the pool every interval until ctx is done. The remote
// question caches decide how often the backing store is actually read.
func (c *Catalog) Watch(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Pool returns a copy of the current pool.
func (c *Catalog) Pool() []domain.Question {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Question, len(c.pool))
	copy(out, c.pool)
	return out
}

// CatalogStats summarizes the pool by category.
type CatalogStats struct {
	Total      int            `json:"total"`
	Categories map[string]int `json:"categories"`
	Names      []string       `json:"names"`
}

func (c *Catalog) Stats() CatalogStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := CatalogStats{Total: len(c.pool), Categories: map[string]int{}}
	for _, q := range c.pool {
		stats.Categories[q.Category]++
	}
	for name := range stats.Categories {
		stats.Names = append(stats.Names, name)
	}
	sort.Strings(stats.Names)
	return stats
}
