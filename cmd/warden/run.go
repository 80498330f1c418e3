package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/wardenbot/warden/internal/config"
	"github.com/wardenbot/warden/internal/runtime"
	"github.com/wardenbot/warden/internal/store"
	"github.com/wardenbot/warden/internal/telemetry"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot core until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCore()
		},
	}
}

func runCore() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	level := parseLevel(cfg.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	log := telemetry.NewLogger(os.Stdout, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	persist, err := newPersistence(ctx, cfg.Persistence)
	if err != nil {
		return err
	}

	rt := runtime.New(cfg, log, telemetry.NewMetrics(), runtime.NopGateway{}, nil, persist)
	log.Info("warden starting", "owner", cfg.OwnerID, "persistence", cfg.Persistence.Driver)
	return rt.Run(ctx)
}

func newPersistence(ctx context.Context, cfg config.Persistence) (store.Persistence, error) {
	switch cfg.Driver {
	case "file":
		return store.NewPersistence(ctx, "file", store.WithFilePath(cfg.Path))

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return store.NewPersistence(ctx, "redis", store.WithRedisClient(client))

	case "postgres":
		pool, err := store.NewPostgresPool(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		return store.NewPersistence(ctx, "postgres", store.WithPostgresPool(pool))

	default:
		return nil, fmt.Errorf("unknown persistence driver %q", cfg.Driver)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
