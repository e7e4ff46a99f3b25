package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cabao-quiz-service/internal/domain"
)

// RankingStore is the offline fallback for the remote ranking (data is lost on restart).
type RankingStore struct {
	mu      sync.RWMutex
	clock   func() time.Time
	entries map[string]domain.Subscriber
}

func NewRankingStore() *RankingStore {
	return &RankingStore{
		clock:   time.Now,
		entries: make(map[string]domain.Subscriber),
	}
}

// UpsertScore keeps the best score seen for nickname; rank and phone follow the latest write.
func (s *RankingStore) UpsertScore(_ context.Context, nickname string, score int, rank, phone string) error {
	key := domain.NormalizeNickname(nickname)
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.entries[key]
	if ok && current.Score > score {
		score = current.Score
	}
	if phone == "" {
		phone = current.Phone
	}
	s.entries[key] = domain.Subscriber{
		Nickname:  key,
		Phone:     phone,
		Score:     score,
		Rank:      rank,
		UpdatedAt: s.clock(),
	}
	return nil
}

func (s *RankingStore) FetchRanking(_ context.Context, limit int) ([]domain.RankingEntry, error) {
	subs := s.sorted()
	if limit > 0 && limit < len(subs) {
		subs = subs[:limit]
	}
	out := make([]domain.RankingEntry, len(subs))
	for i, sub := range subs {
		out[i] = domain.RankingEntry{Nickname: sub.Nickname, Score: sub.Score, Rank: sub.Rank, Phone: sub.Phone}
	}
	return out, nil
}

func (s *RankingStore) FetchAllSubscribers(_ context.Context) ([]domain.Subscriber, error) {
	return s.sorted(), nil
}

func (s *RankingStore) sorted() []domain.Subscriber {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Subscriber, 0, len(s.entries))
	for _, sub := range s.entries {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Nickname < out[j].Nickname
	})
	return out
}
