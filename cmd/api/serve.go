package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"plus-api/internal/assets"
	"plus-api/internal/handler"
	"plus-api/internal/middleware"
	"plus-api/internal/queue"
	"plus-api/internal/router"
	"plus-api/internal/service"
	"plus-api/internal/tebex"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting plus-api", zap.String("version", cfg.App.Version))

	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize repository", zap.String("db_type", cfg.Database.Type), zap.Error(err))
		return err
	}
	defer repo.Close()

	metaCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize cache", zap.String("cache_type", cfg.Cache.Type), zap.Error(err))
		return err
	}
	defer metaCache.Close()

	var store assets.Store
	if cfg.Assets.BaseURL != "" {
		httpStore, err := assets.NewHTTPStore(cfg.Assets.BaseURL, cfg.Assets.Timeout)
		if err != nil {
			return fmt.Errorf("invalid ASSET_BASE_URL: %w", err)
		}
		store = httpStore
	} else {
		logger.Warn("no asset host configured, cosmetics report the default hash")
	}

	var publisher service.GrantPublisher
	if cfg.Queue.URL != "" {
		p := queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Name, logger)
		defer p.Close()
		publisher = p
	}

	if cfg.Tebex.WebhookSecret == "" {
		logger.Warn("TEBEX_WEBHOOK_SECRET is not set, webhooks will be rejected")
	}
	if cfg.Tebex.GameServerSecret == "" {
		logger.Warn("TEBEX_GAME_SERVER_SECRET is not set, restores will fail")
	}
	plugin := tebex.NewPluginClient(cfg.Tebex.PluginURL, cfg.Tebex.GameServerSecret, cfg.Tebex.Timeout)

	var tokens *service.TokenService
	if cfg.Auth.TokenSecret != "" {
		tokens, err = service.NewTokenService(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("invalid AUTH_TOKEN_SECRET: %w", err)
		}
	} else {
		logger.Warn("AUTH_TOKEN_SECRET is not set, player token routes are disabled")
	}

	cosmetics := service.NewCosmeticService(repo, metaCache, store, cfg.Cache.TTL, logger)
	entitlements := service.NewEntitlementService(repo, plugin, publisher, logger)
	defer entitlements.Wait()
	selection := service.NewSelectionService(repo, logger)

	warmer := service.NewCacheWarmer(cosmetics, service.WarmerConfig{Interval: cfg.Assets.WarmInterval}, logger)
	warmer.Start()
	defer warmer.Stop()

	r := router.New(router.Config{
		Handler:          handler.New(repo, cfg.App.Version),
		PaymentsHandler:  handler.NewPaymentsHandler(entitlements, cfg.Tebex.WebhookSecret, logger),
		CosmeticsHandler: handler.NewCosmeticsHandler(cosmetics, selection, logger),
		AdminHandler:     handler.NewAdminHandler(cosmetics, cfg.Database.Type, cfg.Cache.Type, logger),
		Auth: middleware.NewAuth(middleware.AuthConfig{
			TokenService: tokens,
			AdminKeyHash: cfg.Auth.AdminKeyHash,
			Logger:       logger,
		}),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}
