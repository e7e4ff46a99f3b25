package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"cabao-quiz-service/internal/config"
	"cabao-quiz-service/internal/domain"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewRankingCmd prints the top of the remote ranking.
func NewRankingCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Print the ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStack(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			printRanking(os.Stdout, st.remote(cfg.Admin.Nickname).FetchRanking(ctx, limit))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of entries")
	return cmd
}

func printRanking(w io.Writer, entries []domain.RankingEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "ranking is empty")
		return
	}
	header := color.New(color.FgYellow, color.Bold)
	header.Fprintf(w, "%-4s %-20s %-20s %8s\n", "#", "NICKNAME", "RANK", "SCORE")
	for i, e := range entries {
		line := fmt.Sprintf("%-4d %-20s %-20s %8d\n", i+1, e.Nickname, e.Rank, e.Score)
		if i == 0 {
			color.New(color.FgGreen).Fprint(w, line)
			continue
		}
		fmt.Fprint(w, line)
	}
}
