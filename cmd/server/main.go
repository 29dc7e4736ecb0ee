package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/flameapp/flame-backend/internal/app"
	"github.com/flameapp/flame-backend/internal/cache"
	"github.com/flameapp/flame-backend/internal/config"
	"github.com/flameapp/flame-backend/internal/db"
	"github.com/flameapp/flame-backend/internal/logger"
	"github.com/flameapp/flame-backend/internal/platform"
	"github.com/flameapp/flame-backend/internal/repository"
	"github.com/flameapp/flame-backend/internal/server"
	"github.com/flameapp/flame-backend/internal/service/auth"
	"github.com/flameapp/flame-backend/internal/service/chat"
	"github.com/flameapp/flame-backend/internal/service/discovery"
	"github.com/flameapp/flame-backend/internal/service/swipe"
	"github.com/flameapp/flame-backend/internal/service/user"
	"github.com/flameapp/flame-backend/internal/token"
	"github.com/flameapp/flame-backend/internal/ws"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log, cfg)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	tokenSvc := token.NewService(cfg)
	storage := platform.NewDiskStorage(cfg.Media.StorageDir, cfg.Media.PublicBaseURL)
	mailer := &platform.LogMailer{Logger: log}

	hub := ws.NewHub(
		repository.NewUserRepository(database),
		repository.NewConversationRepository(database),
		redisCache,
		log,
	)

	srv := server.New(appCtx, tokenSvc, hub, server.Services{
		Auth:      auth.NewService(appCtx, tokenSvc, mailer),
		Users:     user.NewService(appCtx, storage, platform.NoopGeocoder{}),
		Swipes:    swipe.NewService(appCtx),
		Discovery: discovery.NewService(appCtx),
		Chat:      chat.NewService(appCtx),
	})

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting http server", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "err", err)
	}
}
