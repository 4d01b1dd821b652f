package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"market-ticker/internal/api"
	"market-ticker/internal/config"
	"market-ticker/internal/indicator"
	"market-ticker/internal/logging"
	"market-ticker/internal/market"
	"market-ticker/internal/poller"
	"market-ticker/internal/schedule"
	"market-ticker/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/app.yaml", "path to config file")
	flag.Parse()

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("poller exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kv, err := store.Open(ctx, store.Options{
		Driver:     cfg.Store.Driver,
		SQLitePath: cfg.Store.Sqlite.Path,
		RedisAddr:  cfg.Store.Redis.Addr,
		RedisDB:    cfg.Store.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Warn("store close error", zap.Error(err))
		}
	}()

	providers := make([]market.QuoteProvider, 0, len(cfg.Provider.BaseURLs))
	for _, u := range cfg.Provider.BaseURLs {
		providers = append(providers, market.NewYahooProvider(u, cfg.Provider.Timeout()))
	}

	board := indicator.NewBoard()
	p := poller.New(poller.Config{
		PollInterval:   cfg.Poller.PollInterval(),
		RotateInterval: cfg.Poller.RotateInterval(),
		FetchTimeout:   2 * cfg.Provider.Timeout(),
	}, market.Instruments, market.NewFallbackProvider(providers...), store.NewMarketData(kv), board, logger)

	addr := fmt.Sprintf(":%d", cfg.Poller.Port)
	h := server.Default(server.WithHostPorts(addr))
	api.RegisterPollerRoutes(h, p, board, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", zap.String("addr", addr), zap.String("store", cfg.Store.Driver))
		if err := h.Run(); err != nil && gctx.Err() == nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return p.Run(gctx, schedule.New(logger))
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return h.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("poller stopped")
	return err
}
