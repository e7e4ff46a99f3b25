package postgres

import (
	"context"
	"fmt"

	"cabao-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// RankingStore is the ranking table behind app.RankingStore.
type RankingStore struct {
	pool *pgxpool.Pool
}

func NewRankingStore(pool *pgxpool.Pool) *RankingStore {
	return &RankingStore{pool: pool}
}

// UpsertScore inserts or updates the row for nickname. The stored score is
// GREATEST(old, new), so concurrent writers can never lower it.
func (s *RankingStore) UpsertScore(ctx context.Context, nickname string, score int, rank, phone string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ranking (nickname, phone, score, rank, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (nickname) DO UPDATE SET
			score = GREATEST(ranking.score, EXCLUDED.score),
			rank = EXCLUDED.rank,
			phone = COALESCE(NULLIF(EXCLUDED.phone, ''), ranking.phone),
			updated_at = now()`,
		domain.NormalizeNickname(nickname), phone, score, rank)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

func (s *RankingStore) FetchRanking(ctx context.Context, limit int) ([]domain.RankingEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT nickname, score, rank, phone FROM ranking
		ORDER BY score DESC, nickname LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch ranking: %w", err)
	}
	defer rows.Close()

	var out []domain.RankingEntry
	for rows.Next() {
		var e domain.RankingEntry
		if err := rows.Scan(&e.Nickname, &e.Score, &e.Rank, &e.Phone); err != nil {
			return nil, fmt.Errorf("scan ranking: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *RankingStore) FetchAllSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT nickname, phone, score, rank, updated_at FROM ranking
		ORDER BY score DESC, nickname`)
	if err != nil {
		return nil, fmt.Errorf("fetch subscribers: %w", err)
	}
	defer rows.Close()

	var out []domain.Subscriber
	for rows.Next() {
		var sub domain.Subscriber
		if err := rows.Scan(&sub.Nickname, &sub.Phone, &sub.Score, &sub.Rank, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
