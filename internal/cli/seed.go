package cli

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"cabao-quiz-service/internal/config"
	"cabao-quiz-service/internal/content"
	"cabao-quiz-service/internal/domain"
	"cabao-quiz-service/internal/infra/postgres"
	infraredis "cabao-quiz-service/internal/infra/redis"
	"cabao-quiz-service/internal/logger"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads questions into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert questions into Postgres (built-in set unless --file is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML file with a top-level questions list")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	var questions []domain.Question
	if file == "" {
		questions, err = content.Load(rnd)
	} else {
		var data []byte
		data, err = os.ReadFile(file)
		if err == nil {
			questions, err = content.Parse(data, rnd)
		}
	}
	if err != nil {
		return err
	}

	st, err := openStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := postgres.NewQuestionStore(st.pool).SaveQuestions(ctx, questions); err != nil {
		return err
	}
	if st.redis != nil {
		if err := infraredis.NewQuestionRepository(st.redis, nil, 0).Invalidate(ctx); err != nil {
			logger.Warn("invalidate question cache: %v", err)
		}
	}
	logger.Info("seeded %d questions", len(questions))
	return nil
}
