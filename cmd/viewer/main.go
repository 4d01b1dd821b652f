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
	"market-ticker/internal/logging"
	"market-ticker/internal/market"
	"market-ticker/internal/store"
	"market-ticker/internal/viewer"
)

func main() {
	configPath := flag.String("config", "configs/app.yaml", "path to config file")
	flag.Parse()

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
		logger.Fatal("viewer exited", zap.Error(err))
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

	data := store.NewMarketData(kv)
	page := viewer.NewPage(cfg.Viewer.RefreshInterval())
	v := viewer.New(viewer.Config{
		RefreshInterval: cfg.Viewer.RefreshInterval(),
		RetryDelay:      cfg.Viewer.RetryDelay(),
	}, market.Instruments, data, page, logger)

	addr := fmt.Sprintf(":%d", cfg.Viewer.Port)
	h := server.Default(server.WithHostPorts(addr))
	api.RegisterViewerRoutes(h, page, data, market.Instruments, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", zap.String("addr", addr), zap.String("store", cfg.Store.Driver))
		if err := h.Run(); err != nil && gctx.Err() == nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		v.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return h.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("viewer stopped")
	return err
}
