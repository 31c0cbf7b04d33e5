package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/isomap/service-isochrone/internal/application"
	"github.com/isomap/service-isochrone/internal/config"
	"github.com/isomap/service-isochrone/internal/domain/isochrone"
	leadEvents "github.com/isomap/service-isochrone/internal/events"
	"github.com/isomap/service-isochrone/internal/handler"
	"github.com/isomap/service-isochrone/internal/health"
	"github.com/isomap/service-isochrone/internal/httpclient"
	"github.com/isomap/service-isochrone/internal/integration/postmark"
	"github.com/isomap/service-isochrone/internal/integration/sheets"
	"github.com/isomap/service-isochrone/internal/kafka"
	"github.com/isomap/service-isochrone/internal/logger"
	"github.com/isomap/service-isochrone/internal/middleware"
	"github.com/isomap/service-isochrone/internal/ratelimit"
	"github.com/isomap/service-isochrone/internal/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, application.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-isochrone",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
	)

	// Load the precomputed store. A missing document leaves every request to scaling
	// and generation.
	store, err := repository.LoadFileIsochroneRepository(cfg.Store.Path, isochrone.DemoLocations(), log)
	if err != nil {
		log.Fatal("failed to load precomputed isochrones", zap.String("path", cfg.Store.Path), zap.Error(err))
	}

	approximator := isochrone.NewApproximator(
		isochrone.WithLookup(store),
		isochrone.WithReferenceMinutes(cfg.Store.ReferenceMinutes),
	)
	isochroneService := application.NewIsochroneService(approximator, store, log)

	var checks []health.Check

	// Initialize rate limiting
	var isochroneLimit, leadLimit gin.HandlerFunc
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = redisClient.Close() }()

		limiter, err := ratelimit.NewRedisLimiter(redisClient, "isomap:ratelimit", cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			log.Fatal("invalid rate limit configuration", zap.Error(err))
		}
		isochroneLimit = middleware.RateLimitMiddleware(limiter, "isochrone", log)
		leadLimit = middleware.RateLimitMiddleware(limiter, "lead", log)
		checks = append(checks, health.RedisCheck(redisClient))
	} else {
		log.Warn("redis not configured, rate limiting disabled")
	}

	// Initialize lead collaborators
	hc := httpclient.New(cfg.Lead.HTTPTimeout)

	var sheet application.SheetAppender
	if cfg.Lead.SheetsWebhookURL != "" {
		sheetClient, err := sheets.New(cfg.Lead.SheetsWebhookURL, hc)
		if err != nil {
			log.Fatal("failed to create sheets client", zap.Error(err))
		}
		sheet = sheetClient
	} else {
		log.Warn("GOOGLE_SHEETS_WEBHOOK_URL not configured")
	}

	var mailer application.EmailSender
	if cfg.Lead.PostmarkToken != "" {
		postmarkClient, err := postmark.New(cfg.Lead.PostmarkBaseURL, cfg.Lead.PostmarkToken, hc)
		if err != nil {
			log.Fatal("failed to create postmark client", zap.Error(err))
		}
		mailer = postmarkClient
	} else {
		log.Warn("POSTMARK_API_TOKEN not configured, welcome emails disabled")
	}

	leadDelivery := application.NewLeadDeliveryService(
		sheet,
		mailer,
		cfg.Lead.WelcomeFrom,
		!cfg.IsDevelopment(),
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the lead event pipeline. Without brokers leads are delivered inline.
	var publisher application.EventPublisher
	if cfg.Kafka.Enabled() {
		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()
		publisher = kafkaProducer

		groupID := cfg.Kafka.GroupPrefix + "isochrone-service"
		leadConsumer := leadEvents.NewLeadEventConsumer(
			cfg.Kafka.Brokers,
			groupID,
			leadDelivery,
			log,
		)
		defer func() { _ = leadConsumer.Close() }()

		go func() {
			log.Info("starting lead event consumer")
			if err := leadConsumer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("lead event consumer error", zap.Error(err))
			}
		}()

		checks = append(checks, health.KafkaCheck(cfg.Kafka.Brokers))
	} else {
		log.Info("kafka not configured, delivering leads inline")
	}

	leadService := application.NewLeadService(publisher, leadDelivery, log)

	// Initialize HTTP handlers
	isochroneHandler := handler.NewIsochroneHandler(isochroneService)
	storeHandler := handler.NewStoreHandler(isochroneService)
	leadHandler := handler.NewLeadHandler(leadService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(application.ServiceName, checks...)
	healthHandler.RegisterRoutes(router)

	// Register routes
	isochroneHandler.RegisterRoutes(&router.RouterGroup, isochroneLimit)
	storeHandler.RegisterRoutes(&router.RouterGroup)
	leadHandler.RegisterRoutes(&router.RouterGroup, leadLimit)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting",
			zap.String("addr", cfg.Port),
			zap.Int("precomputed", store.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-isochrone...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-isochrone stopped")
}
