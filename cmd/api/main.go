package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"studyhub/internal/adapter/api"
	"studyhub/internal/adapter/api/handler"
	apimiddleware "studyhub/internal/adapter/api/middleware"
	"studyhub/internal/adapter/api/router"
	"studyhub/internal/domain/service"
	"studyhub/internal/infrastructure/events"
	"studyhub/internal/infrastructure/ratelimit"
	"studyhub/internal/infrastructure/tracing"
	"studyhub/internal/infrastructure/websocket"
	"studyhub/internal/usecase"
	"studyhub/pkg/config"
	"studyhub/pkg/logger"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(logger.Config{Development: cfg.IsDevelopment(), Level: cfg.LogLevel}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	repos, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer repos.Close()

	presenceStore, closePresence, err := openPresenceStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize presence store: %v", err)
	}
	defer closePresence()

	var publisher service.EventPublisher = service.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, events.BreakerConfig{
			MaxFailures: cfg.Kafka.BreakerMaxFailures,
			Timeout:     cfg.Kafka.BreakerTimeout,
		})
		defer kafka.Close()
		publisher = kafka
		logger.Info("Publishing doubt events to %v topic %s", cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}

	directory, err := usecase.NewDirectory(repos.users, cfg.DirectoryCacheSize, cfg.DirectoryCacheTTL)
	if err != nil {
		log.Fatalf("Failed to initialize directory: %v", err)
	}

	rateLimiter := ratelimit.NewRateLimiter(cfg.MessagesPerMinute)
	rateLimiter.StartCleanupRoutine(ctx)

	messageUseCase := usecase.NewMessageUseCase(repos.messages, repos.conversations, repos.doubts, directory, publisher, rateLimiter)
	conversationUseCase := usecase.NewConversationUseCase(repos.conversations, directory)
	doubtUseCase := usecase.NewDoubtUseCase(repos.doubts, messageUseCase, directory, service.FixedWindowPolicy{Window: cfg.SLAWindow}, publisher, rateLimiter)
	ratingUseCase := usecase.NewRatingUseCase(repos.ratings, directory, publisher)
	pollUseCase := usecase.NewPollUseCase(repos.polls, messageUseCase, directory, rateLimiter)
	faqUseCase := usecase.NewFAQUseCase(repos.faqs, repos.messages, directory)
	presenceTracker := usecase.NewPresenceTracker(presenceStore, repos.settings, usecase.NewPresenceCache())

	wsManager := websocket.NewManager(messageUseCase, doubtUseCase, presenceTracker)
	wsManager.Start(ctx)

	handler.Setup(messageUseCase, conversationUseCase, doubtUseCase, ratingUseCase, pollUseCase, faqUseCase, presenceTracker, repos.blobs, wsManager)
	handler.SetupHealthHandler(wsManager)
	if repos.setSettings != nil {
		handler.SetupDevHandler(repos.users, repos.setSettings)
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(apimiddleware.Metrics())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(repos.verifiers...)
	staffMiddleware := apimiddleware.NewStaffMiddleware(directory)

	router.Setup(e, authMiddleware, staffMiddleware, rateLimiter)
	router.SetupDevRouter(e, cfg.Environment)

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Tracing shutdown: %v", err)
	}
}
