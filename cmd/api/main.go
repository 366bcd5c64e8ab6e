package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"plus-api/internal/cache"
	"plus-api/internal/config"
	"plus-api/internal/repository"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := newServeCommand()

	root := &cobra.Command{
		Use:          "plus-api",
		Short:        "Cosmetic entitlement API for Tebex purchases",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.AddCommand(serve, newMigrateCommand(), newTokenCommand())
	return root
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.App.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// setup loads configuration and builds the logger shared by every command.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger = logger.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Environment))
	return cfg, logger, nil
}

// openRepository connects to the configured backend. The schema is created
// as part of construction.
func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.SQLRepository, error) {
	switch cfg.Database.Type {
	case "postgres":
		return repository.NewPostgresRepository(ctx, cfg.Database.PostgresDSN(), logger)
	case "mysql":
		return repository.NewMySQLRepository(ctx, cfg.Database.MySQLDSN(), logger)
	default:
		return repository.NewSQLiteRepository(ctx, cfg.Database.Path, logger)
	}
}

func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	if cfg.Cache.Type == "redis" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.RedisPrefix,
		}, logger.Named("redis"))
	}
	return cache.NewMemoryCache(5 * time.Minute), nil
}
