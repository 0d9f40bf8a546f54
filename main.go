package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"blockify-backend/config"
	"blockify-backend/internal/api"
	"blockify-backend/internal/database"
	"blockify-backend/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.InitLogger(&logger.Config{
		Service:    "blockify-backend",
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	}); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("failed to connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("failed to migrate database", zap.Error(err))
	}
	redisClient, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	srv, err := api.NewRouter(cfg, db, redisClient)
	if err != nil {
		logger.Log.Fatal("failed to create router", zap.Error(err))
	}
	defer srv.Close()

	created, err := srv.Identity.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		logger.Log.Fatal("failed to seed admin user", zap.Error(err))
	}
	if created {
		logger.Log.Info("admin user created", zap.String("username", cfg.AdminUsername))
	}

	httpServer := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           srv.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("server shutdown", zap.Error(err))
		}
	}()

	logger.Log.Info("server listening", zap.String("addr", cfg.ServerAddr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatal("failed to run server", zap.Error(err))
	}
}
