package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WarmerConfig holds configuration for the cache warmer.
type WarmerConfig struct {
	// Interval is how often metadata is refreshed. Default: 15 minutes.
	Interval time.Duration

	// StartDelay postpones the first run after Start. Default: 5 seconds.
	StartDelay time.Duration
}

// CacheWarmer periodically refreshes cached metadata for every cosmetic so
// player reads rarely hit the asset host.
type CacheWarmer struct {
	cosmetics *CosmeticService
	config    WarmerConfig
	logger    *zap.Logger

	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewCacheWarmer creates a warmer.
func NewCacheWarmer(cosmetics *CosmeticService, config WarmerConfig, logger *zap.Logger) *CacheWarmer {
	if config.Interval <= 0 {
		config.Interval = 15 * time.Minute
	}
	if config.StartDelay <= 0 {
		config.StartDelay = 5 * time.Second
	}

	return &CacheWarmer{
		cosmetics: cosmetics,
		config:    config,
		logger:    logger.Named("warmer"),
		stopCh:    make(chan struct{}),
	}
}

// Start begins the refresh loop.
func (w *CacheWarmer) Start() {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = true
	w.ticker = time.NewTicker(w.config.Interval)
	w.mu.Unlock()

	w.logger.Info("cache warmer started", zap.Duration("interval", w.config.Interval))

	go func() {
		select {
		case <-time.After(w.config.StartDelay):
			w.RunNow()
		case <-w.stopCh:
		}
	}()

	go w.run()
}

func (w *CacheWarmer) run() {
	for {
		select {
		case <-w.ticker.C:
			w.RunNow()
		case <-w.stopCh:
			w.logger.Info("cache warmer stopped")
			return
		}
	}
}

// RunNow refreshes every cosmetic and returns how many were refreshed.
func (w *CacheWarmer) RunNow() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cosmetics, err := w.cosmetics.repo.ListCosmetics(ctx, nil)
	if err != nil {
		w.logger.Error("failed to list cosmetics", zap.Error(err))
		return 0
	}

	refreshed := 0
	for _, c := range cosmetics {
		if err := w.cosmetics.Refresh(ctx, c); err != nil {
			w.logger.Warn("failed to refresh cosmetic", zap.Int64("cosmetic_id", c.ID), zap.Error(err))
			continue
		}
		refreshed++
	}

	w.logger.Debug("cache warmed", zap.Int("refreshed", refreshed), zap.Int("total", len(cosmetics)))
	return refreshed
}

// Stop stops the warmer. Safe to call more than once.
func (w *CacheWarmer) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		defer w.mu.Unlock()

		if w.ticker != nil {
			w.ticker.Stop()
		}
		close(w.stopCh)
		w.isRunning = false
	})
}
