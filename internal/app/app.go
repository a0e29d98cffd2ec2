// Package app assembles the storefront from configuration. The API server and
// the import tool share it so both run against the same store.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/cache"
	"github.com/GTDGit/storefront_api/internal/config"
	"github.com/GTDGit/storefront_api/internal/database"
	"github.com/GTDGit/storefront_api/internal/events"
	"github.com/GTDGit/storefront_api/internal/gateway"
	"github.com/GTDGit/storefront_api/internal/service"
)

// Store is the persistence stack: the Store Gateway behind its breaker plus
// the cart, idempotency and outbox stores.
type Store struct {
	DB    *sqlx.DB
	Redis *cache.RedisClient

	Gateway     *gateway.BreakerGateway
	Carts       cache.CartStore
	Idempotency cache.IdempotencyStore
	Outbox      cache.OutboxQueue
}

// OpenStore connects the gateway selected by cfg.StoreMode and the Redis
// backed stores. Without Redis the stores live in process memory.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	s := &Store{}

	gw, err := s.openGateway(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.Gateway = gateway.NewBreakerGateway(gw, cfg.Breaker.Failures, cfg.Breaker.Timeout)

	if cfg.Redis.Host == "" {
		log.Warn().Msg("REDIS_HOST not set, carts and pending writes are kept in memory")
		s.useMemory(cfg)
		return s, nil
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		if cfg.StoreMode == config.ModeOnline {
			s.Close()
			return nil, err
		}
		log.Warn().Err(err).Msg("redis unavailable, carts and pending writes are kept in memory")
		s.useMemory(cfg)
		return s, nil
	}
	log.Info().Msg("redis connected successfully")

	s.Redis = redisClient
	s.Carts = cache.NewRedisCartStore(redisClient, cfg.Store.CartTTL)
	s.Idempotency = cache.NewRedisIdempotencyStore(redisClient, cfg.Store.IdempotencyTTL)
	s.Outbox = cache.NewRedisOutboxQueue(redisClient)
	return s, nil
}

func (s *Store) openGateway(ctx context.Context, cfg *config.Config) (gateway.Gateway, error) {
	switch cfg.StoreMode {
	case config.ModeOffline:
		log.Info().Msg("offline store mode, serving fixtures")
		return offlineGateway(cfg), nil

	case config.ModeOnline:
		db, err := database.Connect(ctx, &cfg.DB, database.DefaultAttempts)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db.DB, cfg.Store.MigrationsPath); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Msg("migrations completed successfully")
		s.DB = db
		return gateway.NewSQLGateway(db), nil
	}

	if !cfg.DB.Configured() {
		log.Warn().Msg("database not configured, serving fixtures")
		return offlineGateway(cfg), nil
	}

	db, err := database.Connect(ctx, &cfg.DB, 1)
	if err != nil {
		// Keep a lazy handle so the catalog can leave demo mode once the store
		// answers; demo writes stay local meanwhile.
		log.Warn().Err(err).Msg("database unreachable, continuing in degraded mode")
		db, err = database.Open(&cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.DB = db
		return gateway.NewSQLGateway(db), nil
	}
	if err := database.Migrate(db.DB, cfg.Store.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info().Msg("migrations completed successfully")
	s.DB = db
	return gateway.NewSQLGateway(db), nil
}

func offlineGateway(cfg *config.Config) gateway.Gateway {
	seed := gateway.Fixtures()
	seed.Settings.ShippingFee = cfg.Store.ShippingFee
	return gateway.NewMemoryGateway(seed)
}

func (s *Store) useMemory(cfg *config.Config) {
	s.Carts = cache.NewMemoryCartStore()
	s.Idempotency = cache.NewMemoryIdempotencyStore(cfg.Store.IdempotencyTTL)
	s.Outbox = cache.NewMemoryOutboxQueue()
}

// Close releases the database and Redis connections.
func (s *Store) Close() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis")
		}
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}
}

// Services are the storefront's domain services.
type Services struct {
	Outbox    *service.OutboxService
	Catalog   *service.CatalogService
	Discounts *service.DiscountEngine
	Carts     *service.CartService
	Orders    *service.OrderService
	Imports   *service.ImportService
	Assistant *service.AssistantService
}

// NewServices wires the services over store and loads the catalog.
func NewServices(ctx context.Context, cfg *config.Config, store *Store, bus events.Publisher) (*Services, error) {
	maxImage := int(cfg.Import.MaxImageBytes)

	outbox := service.NewOutboxService(store.Outbox, store.Gateway, bus, cfg.Outbox.MaxAttempts, cfg.Outbox.BatchSize)
	catalog := service.NewCatalogService(store.Gateway, outbox, bus, maxImage)
	if err := catalog.Load(ctx); err != nil {
		return nil, err
	}
	discounts := service.NewDiscountEngine(catalog)
	carts := service.NewCartService(store.Carts, catalog, discounts)

	return &Services{
		Outbox:    outbox,
		Catalog:   catalog,
		Discounts: discounts,
		Carts:     carts,
		Orders:    service.NewOrderService(catalog, carts, discounts, outbox, store.Idempotency, bus),
		Imports: service.NewImportService(catalog,
			service.NewHTTPImageEmbedder(cfg.Import.ImageTimeout, maxImage), bus, cfg.Import.ImageConcurrency),
		Assistant: service.NewAssistantService(catalog),
	}, nil
}
