package main

import (
	"ClinicHub/assistant"
	"ClinicHub/cache"
	"ClinicHub/config"
	"ClinicHub/database"
	"ClinicHub/realtime"
	"ClinicHub/routes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const redisStatsInterval = 5 * time.Minute

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinichub",
		Short:         "ClinicHub dashboard backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(mcpCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, realtime listener and WebSocket hub",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations, seed roles and install change triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(os.Stdout)
			if err != nil {
				return err
			}
			db, err := database.InitDB(cmd.Context(), cfg.DBURL, cfg.IsDev())
			if err != nil {
				return err
			}
			defer closeDB(db)

			if err := database.Migrate(db); err != nil {
				return err
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo appointments for the oldest patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(os.Stdout)
			if err != nil {
				return err
			}
			app, cleanup, err := bootstrap(cmd.Context(), cfg, cfg.IsDev())
			if err != nil {
				return err
			}
			defer cleanup()

			count, err := app.Seed.SeedDemoAppointments(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d demo appointments\n", count)
			return nil
		},
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the assistant tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol, logs go to stderr
			cfg, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			// gorm's SQL logger writes to stdout, keep it off
			app, cleanup, err := bootstrap(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer cleanup()

			tools := assistant.NewTools(app.Board, app.Patients, app.Messaging)
			return server.ServeStdio(assistant.NewServer(tools))
		},
	}
}

// loadConfig sets up the global logger and reads the configuration.
func loadConfig(out io.Writer) (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	log.Logger = logger

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// bootstrap connects PostgreSQL and Redis, migrates and wires the services.
func bootstrap(ctx context.Context, cfg *config.AppConfig, logSQL bool) (*routes.App, func(), error) {
	db, err := database.InitDB(ctx, cfg.DBURL, logSQL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		closeDB(db)
		return nil, nil, err
	}

	client, err := database.NewRedisClient(ctx, database.DefaultRedisConfig(cfg.RedisAddress))
	if err != nil {
		closeDB(db)
		return nil, nil, err
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis client")
		}
		closeDB(db)
	}

	c, err := cache.NewCache(client, cfg.CacheTTL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	app, err := routes.NewApp(cfg, db, c, database.NewLocker(client), nil)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	go monitorRedis(ctx, client)
	return app, cleanup, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func monitorRedis(ctx context.Context, client *redis.Client) {
	ticker := time.NewTicker(redisStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			database.MonitorRedisPool(client)
		}
	}
}

func runServer(parent context.Context) error {
	cfg, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := bootstrap(ctx, cfg, cfg.IsDev())
	if err != nil {
		return err
	}
	defer cleanup()

	var wg sync.WaitGroup

	// Row changes feed both the WebSocket hub and the server-side board.
	listener := realtime.NewListener(realtime.PGDialer(cfg.DBURL, database.NotifyChannel))
	wg.Add(2)
	go func() {
		defer wg.Done()
		listener.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		realtime.Forward(ctx, listener, app.Hub, app.InvalidateChange)
	}()

	if err := app.Board.Load(ctx); err != nil {
		log.Error().Err(err).Msg("initial pipeline load failed, retrying on first request")
	}
	stopWatch := listener.Watch(ctx, realtime.Filter{Table: "patients"}, app.Board.Refresh)
	defer stopWatch()

	srv := &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        routes.SetupRoutes(app),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
		IdleTimeout:    30 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("listen and serve: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	log.Info().Msg("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	wg.Wait()
	log.Info().Msg("server exited gracefully")
	return nil
}
