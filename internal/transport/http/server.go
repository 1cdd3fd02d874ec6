// Package http assembles the application: configuration, storage,
// cache, queue, workers, services, handlers, and the HTTP server.
package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pinboard/internal/cache"
	"pinboard/internal/config"
	"pinboard/internal/database"
	"pinboard/internal/handler"
	"pinboard/internal/queue"
	appredis "pinboard/internal/redis"
	"pinboard/internal/repository"
	"pinboard/internal/service"
	"pinboard/internal/worker"
)

// Run starts the server and blocks until shutdown.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Println("[Server] Database connected")

	redisClient, err := appredis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	log.Println("[Server] Redis connected")

	mediaService, err := service.NewMediaService(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to init media service: %w", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	pinRepo := repository.NewPinRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)

	// Cache and queue
	feedCache := cache.NewFeedCache(redisClient.Client)
	publisher := queue.NewPublisher(redisClient.Client)
	consumer := queue.NewConsumer(redisClient.Client)

	// Background workers keep the feed cache in sync with pin events.
	workerHandler := worker.NewHandler(feedCache)
	workerManager := worker.NewManager(consumer, workerHandler, worker.DefaultManagerConfig())
	if err := workerManager.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer workerManager.Stop()

	// Services
	userService := service.NewUserService(userRepo)
	authService := service.NewAuthService(refreshTokenRepo, cfg.JWTSecret, cfg.AccessTokenMaxAge, cfg.RefreshTokenMaxAge)
	profileService := service.NewProfileService(profileRepo, mediaService)
	pinService := service.NewPinService(pinRepo, userRepo, profileRepo, engagementRepo, mediaService, publisher)
	feedService := service.NewFeedService(feedCache, pinRepo, profileRepo, engagementRepo)
	engagementService := service.NewEngagementService(db, engagementRepo, pinRepo, profileRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(userService, authService)
	profileHandler := handler.NewProfileHandler(profileService)
	pinHandler := handler.NewPinHandler(pinService)
	feedHandler := handler.NewFeedHandler(feedService)
	engagementHandler := handler.NewEngagementHandler(engagementService)

	router := NewRouter(cfg.JWTSecret, authHandler, profileHandler, pinHandler, feedHandler, engagementHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Printf("[Server] Received %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("[Server] Shutdown complete")
	return nil
}
