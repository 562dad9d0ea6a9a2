package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jokebattles/backend/internal/arena"
	"github.com/jokebattles/backend/internal/config"
	"github.com/jokebattles/backend/internal/database"
	"github.com/jokebattles/backend/internal/generator"
	"github.com/jokebattles/backend/internal/logging"
	"github.com/jokebattles/backend/internal/server"
	"github.com/jokebattles/backend/internal/session"
)

const batchSweepInterval = 5 * time.Minute

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jokebattles-api",
		Short: "Joke Battles voting backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Int("batch-ttl-minutes", defaults.GetInt("batch.ttl_minutes"), "Joke batch lifetime in minutes")
	cmd.PersistentFlags().Int("generation-timeout-seconds", defaults.GetInt("generation.timeout_seconds"), "Joke generation timeout in seconds")
	cmd.PersistentFlags().String("openai-model", defaults.GetString("openai.model"), "OpenAI chat model")
	cmd.PersistentFlags().String("anthropic-model", defaults.GetString("anthropic.model"), "Anthropic chat model")
	cmd.PersistentFlags().String("gemini-model", defaults.GetString("gemini.model"), "Gemini model")
	cmd.PersistentFlags().String("ollama-base-url", defaults.GetString("ollama.base_url"), "Ollama server base URL")
	cmd.PersistentFlags().String("ollama-model", defaults.GetString("ollama.model"), "Ollama chat model")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "batch.ttl_minutes", "batch-ttl-minutes")
	bindFlag(cmd, "generation.timeout_seconds", "generation-timeout-seconds")
	bindFlag(cmd, "openai.model", "openai-model")
	bindFlag(cmd, "anthropic.model", "anthropic-model")
	bindFlag(cmd, "gemini.model", "gemini-model")
	bindFlag(cmd, "ollama.base_url", "ollama-base-url")
	bindFlag(cmd, "ollama.model", "ollama-model")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ensemble, err := generator.BuildEnsemble(signalCtx, appConfig, logger)
	if err != nil {
		return err
	}

	ledger, err := arena.NewLedger(db)
	if err != nil {
		return err
	}
	batches := arena.NewBatchStore(appConfig.BatchTTL, time.Now)
	dispatcher := server.NewScoreDispatcher()

	arenaService, err := arena.NewService(arena.ServiceConfig{
		Ledger:            ledger,
		Batches:           batches,
		Tokens:            session.NewRandomIssuer(),
		Generator:         ensemble,
		GenerationTimeout: appConfig.GenerationTimeout,
		Publisher:         dispatcher,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		ArenaService: arenaService,
		Realtime:     dispatcher,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	// Expired batches are evicted lazily on access; the sweep keeps the store
	// from accumulating abandoned sessions.
	go func() {
		ticker := time.NewTicker(batchSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-signalCtx.Done():
				return
			case <-ticker.C:
				if evicted := batches.Sweep(); evicted > 0 {
					logger.Info("expired joke batches evicted", zap.Int("count", evicted))
				}
			}
		}
	}()

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
