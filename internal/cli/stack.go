package cli

import (
	"context"
	"fmt"
	"time"

	"cabao-quiz-service/internal/app"
	"cabao-quiz-service/internal/config"
	"cabao-quiz-service/internal/domain"
	"cabao-quiz-service/internal/infra/advisor"
	"cabao-quiz-service/internal/infra/memory"
	"cabao-quiz-service/internal/infra/postgres"
	infraredis "cabao-quiz-service/internal/infra/redis"
	"cabao-quiz-service/internal/infra/sqlite"
	"cabao-quiz-service/internal/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// stack is the set of backends selected by config. Every backend is
// optional; missing ones fall back to in-memory implementations.
type stack struct {
	cfg       config.Config
	redis     *redis.Client
	pool      *pgxpool.Pool
	db        *sqlite.DB
	users     func(device string) app.UserStore
	ranking   app.RankingStore
	questions app.QuestionSource
	players   app.PlayerRegistry
}

func openStack(ctx context.Context, cfg config.Config) (*stack, error) {
	s := &stack{cfg: cfg}

	if cfg.Redis.Addr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.pool = pool
	}

	if cfg.SQLite.Path != "" {
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.db = db
		s.users = func(device string) app.UserStore { return db.ForDevice(device) }
	} else {
		dir := memory.NewUserDirectory()
		s.users = func(device string) app.UserStore { return dir.ForDevice(device) }
		logger.Warn("sqlite path not configured, profiles are kept in memory")
	}

	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)
	switch {
	case s.pool != nil:
		s.ranking = postgres.NewRankingStore(s.pool)
	case s.redis != nil:
		s.ranking = infraredis.NewRankingStore(s.redis)
	default:
		s.ranking = memory.NewRankingStore()
		logger.Warn("no remote ranking configured, using in-memory ranking")
	}

	if s.pool != nil {
		loader := postgres.NewQuestionStore(s.pool)
		quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
		if s.redis != nil {
			s.questions = infraredis.NewQuestionRepository(s.redis, loader, quizTTL)
		} else {
			s.questions = memory.NewQuestionRepository(loader, quizTTL)
		}
	}

	if s.redis != nil {
		s.players = infraredis.NewPlayerRegistry(s.redis, redisTTL)
	} else {
		s.players = memory.NewPlayerRegistry()
	}
	return s, nil
}

func (s *stack) remote(adminNickname string) *app.Remote {
	return app.NewRemote(s.ranking, s.questions, adminNickname, config.Duration(s.cfg.Quiz.SyncTimeout, 5*time.Second))
}

// advisor returns nil providers unless an API key is configured.
func (s *stack) advisor() (app.HintProvider, app.FeedbackProvider) {
	if s.cfg.Advisor.APIKey == "" {
		return nil, nil
	}
	c := advisor.NewClient(s.cfg.Advisor.URL, s.cfg.Advisor.APIKey, s.cfg.Advisor.Model, config.Duration(s.cfg.Advisor.Timeout, 10*time.Second))
	return c, c
}

func (s *stack) Close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Warn("close sqlite: %v", err)
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

func policyFromConfig(q config.Quiz) app.Policy {
	def := app.DefaultPolicy()
	return app.Policy{
		PromotionStreak: config.IntOr(q.PromotionStreak, def.PromotionStreak),
		Ladder:          domain.NewLadder(q.Ranks),
		Lifelines: domain.Lifelines{
			Skip:     config.IntOr(q.Lifelines.Skip, def.Lifelines.Skip),
			Sergeant: config.IntOr(q.Lifelines.Sergeant, def.Lifelines.Sergeant),
			Meta:     config.IntOr(q.Lifelines.Meta, def.Lifelines.Meta),
		},
		SettleDelay: config.Duration(q.SettleDelay, def.SettleDelay),
	}
}
