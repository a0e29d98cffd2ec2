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
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/app"
	"github.com/GTDGit/storefront_api/internal/config"
	"github.com/GTDGit/storefront_api/internal/events"
	"github.com/GTDGit/storefront_api/internal/handler"
	"github.com/GTDGit/storefront_api/internal/middleware"
	"github.com/GTDGit/storefront_api/internal/sse"
	"github.com/GTDGit/storefront_api/internal/utils"
	"github.com/GTDGit/storefront_api/internal/worker"
)

const maxUploadBytes = 20 << 20

// main is the application entrypoint for the storefront API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("store_mode", cfg.StoreMode).Msg("starting storefront api")
	utils.SetJWTSecret(cfg.JWTSecret)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect store
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("store connection failed")
		fmt.Fprintf(os.Stderr, "store connection failed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// 4. Change events: log, admin SSE stream and optional Kafka topic
	hub := sse.NewHub()
	bus := events.NewBus(events.LogPublisher{}, sse.NewHubPublisher(hub))
	var kafkaPublisher *events.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), 256)
		bus.Subscribe(kafkaPublisher)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka change events enabled")
	}

	// 5. Services
	svc, err := app.NewServices(ctx, cfg, store, bus)
	if err != nil {
		log.Error().Err(err).Msg("catalog load failed")
		fmt.Fprintf(os.Stderr, "catalog load failed: %v\n", err)
		os.Exit(1)
	}

	// 6. Handlers
	handlers := &handler.Handlers{
		Health:    handler.NewHealthHandler(store.Gateway, store.Gateway, svc.Catalog, svc.Outbox),
		Catalog:   handler.NewCatalogHandler(svc.Catalog),
		Cart:      handler.NewCartHandler(svc.Carts, svc.Orders),
		Discount:  handler.NewDiscountHandler(svc.Catalog),
		Order:     handler.NewOrderHandler(svc.Orders),
		Import:    handler.NewImportHandler(svc.Imports, maxUploadBytes),
		Sync:      handler.NewSyncHandler(svc.Outbox),
		SSE:       handler.NewSSEHandler(hub),
		Assistant: handler.NewAssistantHandler(svc.Assistant),
	}

	// 7. Middleware
	rateLimiter := middleware.NewInvalidAuthRateLimiter(5, time.Minute)
	go rateLimiter.Cleanup(ctx, 5*time.Minute)
	jwtMiddleware := middleware.NewJWTMiddleware(rateLimiter)

	// 8. Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	handler.SetupRoutes(router, handlers, jwtMiddleware)

	// 9. Background workers
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.NewOutboxWorker(svc.Outbox, svc.Catalog, cfg.Outbox.Interval).Start(ctx)
	}()
	log.Info().Dur("interval", cfg.Outbox.Interval).Msg("outbox worker started")

	// 10. Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// 11. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	// 12. Stop workers
	cancel()
	<-workerDone

	// 13. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// 14. Flush what the outbox can still deliver
	if res, err := svc.Outbox.Drain(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("final outbox drain failed")
	} else if res.Retrying+res.Failed > 0 {
		log.Warn().Int("retrying", res.Retrying).Int("failed", res.Failed).Msg("pending writes left in outbox")
	}

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka publisher")
		}
	}

	log.Info().Msg("server exited")
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
