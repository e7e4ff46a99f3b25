package cli

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cabao-quiz-service/internal/app"
	"cabao-quiz-service/internal/config"
	"cabao-quiz-service/internal/content"
	"cabao-quiz-service/internal/logger"
	transport "cabao-quiz-service/internal/transport/http"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	st, err := openStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	local, err := content.Load(rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return err
	}

	auth, err := app.NewAuthenticator(cfg.Admin.Nickname, cfg.Admin.Passphrase)
	if err != nil {
		return err
	}
	if cfg.Admin.Passphrase == "" {
		logger.Warn("admin passphrase not configured, admin login disabled")
	}

	remote := st.remote(auth.AdminNickname())
	catalog := app.NewCatalog(local, remote)
	board := app.NewRankingBoard(remote,
		config.IntOr(cfg.Quiz.RankingLimit, 50),
		config.Duration(cfg.Quiz.RankingDebounce, 300*time.Millisecond),
		nil)
	defer board.Close()

	warm, warmCtx := errgroup.WithContext(ctx)
	warm.Go(func() error {
		catalog.Refresh(warmCtx)
		return nil
	})
	warm.Go(func() error {
		entries := board.Refresh(warmCtx)
		logger.Info("ranking loaded with %d entries", len(entries))
		return nil
	})
	_ = warm.Wait()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go catalog.Watch(watchCtx, config.Duration(cfg.Quiz.CatalogRefresh, time.Minute))

	hints, feedback := st.advisor()
	ws := transport.NewWSHandler(transport.WSDeps{
		Policy:   policyFromConfig(cfg.Quiz),
		Users:    st.users,
		Auth:     auth,
		Remote:   remote,
		Hints:    hints,
		Feedback: feedback,
		Catalog:  catalog,
		Board:    board,
		Players:  st.players,
	})
	api := &transport.API{Auth: auth, Remote: remote, Catalog: catalog, Board: board}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(api, ws),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server...")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	remote.Wait()
	return err
}
