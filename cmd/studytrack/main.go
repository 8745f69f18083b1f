package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/noah-isme/studytrack-api/api/swagger"
	"github.com/noah-isme/studytrack-api/pkg/config"
	"github.com/noah-isme/studytrack-api/pkg/database"
	"github.com/noah-isme/studytrack-api/pkg/kv"
	"github.com/noah-isme/studytrack-api/pkg/logger"
)

// @title StudyTrack API
// @version 1.0.0
// @description Personal attendance and study tracker.
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Fatal("failed to open database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close() //nolint:errcheck
	if err := database.Migrate(ctx, db, logr); err != nil {
		logr.Fatal("failed to migrate database", zap.Error(err))
	}

	store, err := kv.Open(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open kv store", zap.String("driver", cfg.KV.Driver), zap.Error(err))
	}
	defer store.Close() //nolint:errcheck

	application, err := newApp(cfg, db, store, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}
	application.start(ctx)
	defer application.stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           application.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
