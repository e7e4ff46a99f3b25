package redis

import (
	"context"
	"fmt"
	"time"

	"cabao-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RankingStore keeps scores in a sorted set and player details in a hash per nickname:
//
//	ZADD ranking:score GT {score} {nickname}
//	HSET ranking:player:{nickname} rank {rank} phone {phone} updated_at {unix}
type RankingStore struct {
	client *redis.Client
	clock  func() time.Time
}

func NewRankingStore(client *redis.Client) *RankingStore {
	return &RankingStore{client: client, clock: time.Now}
}

const scoresKey = "ranking:score"

func playerKey(nickname string) string {
	return "ranking:player:" + nickname
}

// UpsertScore only ever raises the stored score (ZADD GT); rank and phone follow the latest write.
func (s *RankingStore) UpsertScore(ctx context.Context, nickname string, score int, rank, phone string) error {
	nick := domain.NormalizeNickname(nickname)
	fields := map[string]interface{}{
		"rank":       rank,
		"updated_at": s.clock().Unix(),
	}
	if phone != "" {
		fields["phone"] = phone
	}

	pipe := s.client.TxPipeline()
	pipe.ZAddArgs(ctx, scoresKey, redis.ZAddArgs{
		GT:      true,
		Members: []redis.Z{{Score: float64(score), Member: nick}},
	})
	pipe.HSet(ctx, playerKey(nick), fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert score %s: %w", nick, err)
	}
	return nil
}

func (s *RankingStore) FetchRanking(ctx context.Context, limit int) ([]domain.RankingEntry, error) {
	subs, err := s.fetch(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RankingEntry, len(subs))
	for i, sub := range subs {
		out[i] = domain.RankingEntry{Nickname: sub.Nickname, Score: sub.Score, Rank: sub.Rank, Phone: sub.Phone}
	}
	return out, nil
}

func (s *RankingStore) FetchAllSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	return s.fetch(ctx, 0)
}

func (s *RankingStore) fetch(ctx context.Context, limit int) ([]domain.Subscriber, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, scoresKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking: %w", err)
	}

	pipe := s.client.Pipeline()
	details := make([]*redis.MapStringStringCmd, len(zs))
	for i, z := range zs {
		details[i] = pipe.HGetAll(ctx, playerKey(z.Member.(string)))
	}
	if len(zs) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("read players: %w", err)
		}
	}

	out := make([]domain.Subscriber, len(zs))
	for i, z := range zs {
		d := details[i].Val()
		sub := domain.Subscriber{
			Nickname: z.Member.(string),
			Score:    int(z.Score),
			Rank:     d["rank"],
			Phone:    d["phone"],
		}
		var unix int64
		if _, err := fmt.Sscan(d["updated_at"], &unix); err == nil {
			sub.UpdatedAt = time.Unix(unix, 0)
		}
		out[i] = sub
	}
	return out, nil
}
