package main

import (
	"context"
	"time"

	"sentinal-social/config"
	"sentinal-social/internal/events"
	"sentinal-social/internal/provisioning"
	"sentinal-social/internal/proxy"
	"sentinal-social/internal/redis"
	"sentinal-social/internal/repository"
	"sentinal-social/internal/repository/memory"
	"sentinal-social/internal/repository/postgres"
	"sentinal-social/internal/server"
	"sentinal-social/internal/services"
	"sentinal-social/pkg/database"
	"sentinal-social/pkg/logger"

	"go.uber.org/zap"
)

// httpRequestsPerMinute is the per-client budget for the whole API.
const httpRequestsPerMinute = 600

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.AppMode)
	defer l.Sync()
	logger.SetGlobalLogger(l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		store  repository.Store
		health server.Pinger
	)
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := database.Connect(cfg)
		if err != nil {
			l.Logger.Fatal("database connection failed", zap.Error(err))
		}
		defer database.Close(db)
		if err := postgres.Migrate(db); err != nil {
			l.Logger.Fatal("migration failed", zap.Error(err))
		}
		store = postgres.NewStore(db)
		health = database.Pinger{DB: db}
	default:
		store = memory.NewStore()
	}
	l.Infof("Using %s store", cfg.StoreBackend)

	var (
		publisher events.Publisher
		cache     services.UnreadCache
		limiter   *redis.RateLimiter
	)
	if cfg.RedisEnabled {
		client, err := redis.Connect(ctx, redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, 5*time.Second)
		if err != nil {
			l.Logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer client.Close()
		publisher = events.NewRedisEventBus(client, events.NewUserChannelResolver())
		cache = redis.NewUnreadCache(client, time.Duration(cfg.UnreadCacheTTLSec)*time.Second)
		limiter = redis.NewRateLimiter(client, redis.RateLimitConfig{
			RequestLimit:  cfg.RequestRateLimit,
			RequestWindow: time.Duration(cfg.RequestRateWindowSec) * time.Second,
		})
	} else {
		bus := events.NewLocalBus()
		logEvent := events.HandlerFunc(func(ctx context.Context, event events.Event) error {
			l.WithContext(ctx).Debug("notification", zap.String("event_type", string(event.Type())))
			return nil
		})
		bus.Subscribe(events.EventRequestReceived, logEvent)
		bus.Subscribe(events.EventRequestAccepted, logEvent)
		bus.Subscribe(events.EventMessageReceived, logEvent)
		publisher = bus
	}
	notifier := events.NewNotifier(publisher, l)

	relationships := services.NewRelationshipService(store)
	requests := services.NewConnectionRequestService(store, relationships, notifier, l)
	if limiter != nil {
		requests.SetLimiter(limiter)
	}
	threads := services.NewThreadService(store)
	messages := services.NewMessageService(store, cache, l)
	access := proxy.NewAccessControl(store)

	processor := provisioning.NewProcessor(store, threads, l, 100,
		time.Duration(cfg.ProvisionRetryIntervalSec)*time.Second, cfg.ProvisionMaxAttempts)
	provisioning.NewRunner(processor).Start(ctx)

	messaging := services.NewMessagingService(relationships, requests, threads, messages, access, processor, notifier, l)
	identity := services.NewIdentityService(cfg.JWTSecret)

	srv := server.New(cfg, l)
	opts := server.RouteOptions{
		Identity: identity,
		Health:   health,
	}
	if limiter != nil {
		opts.Limiter = limiter
		opts.RateLimit = httpRequestsPerMinute
		opts.RateWindow = time.Minute
	}
	srv.SetupRoutes(server.NewHandlers(messaging), opts)

	if err := srv.Start(); err != nil {
		l.Errorf("server stopped with error: %v", err)
	}
}
