// Package main запускает HTTP-сервер сервиса FORMA+.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/formaplus/internal/config"
	"github.com/mmeshcher/formaplus/internal/handler"
	"github.com/mmeshcher/formaplus/internal/ledger"
	"github.com/mmeshcher/formaplus/internal/logger"
	"github.com/mmeshcher/formaplus/internal/middleware"
	"github.com/mmeshcher/formaplus/internal/repository"
	"github.com/mmeshcher/formaplus/internal/service"
)

// storage объединяет хранилище сервиса и журнала баллов.
type storage interface {
	service.Repository
	ledger.Repository
}

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	sugar := log.Sugar()

	repo, err := openStorage(cfg, sugar)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	l := ledger.New(repo, log.Named("ledger"))
	svc := service.NewService(repo, l)
	defer func() {
		if err := svc.Close(); err != nil {
			sugar.Errorw("close service", "error", err)
		}
	}()

	if cfg.JWTSecret == "" {
		sugar.Warn("JWT_SECRET is not set, using a random key: sessions will not survive restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, cfg.CookieName, cfg.Production())

	h := handler.NewHandler(svc, log, authMiddleware, handler.Options{
		Env:            cfg.AppEnv,
		AllowedOrigins: cfg.AllowedOrigins(),
	})

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting FORMA+ API", "addr", cfg.RunAddress, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Errorw("application terminated with error", "error", err)
	}
}

func openStorage(cfg *config.Config, sugar *zap.SugaredLogger) (storage, error) {
	if cfg.DatabaseURI == "" {
		sugar.Warn("DATABASE_URI is not set, using in-memory storage")
		return repository.NewMemoryRepository(), nil
	}
	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
