package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/seatrips/internal/apiclient"
	"github.com/diagnosis/seatrips/internal/booking"
	"github.com/diagnosis/seatrips/internal/loginguard"
	"github.com/diagnosis/seatrips/internal/pricing"
	"github.com/diagnosis/seatrips/internal/promo"
	"github.com/diagnosis/seatrips/internal/session"
	"github.com/diagnosis/seatrips/pkg/config"
	"github.com/diagnosis/seatrips/pkg/database"
	"github.com/diagnosis/seatrips/pkg/events"
	"github.com/diagnosis/seatrips/pkg/logger"
	mw "github.com/diagnosis/seatrips/pkg/middleware"
	"github.com/diagnosis/seatrips/services/gateway/internal/handlers"
	"github.com/diagnosis/seatrips/services/gateway/internal/proxy"
)

func main() {
	cfg := config.Load()
	logger.SetDefault(logger.New(os.Stdout, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := apiclient.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)

	var redisClient *redis.Client
	if cfg.Session.Backend == "redis" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("Invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		opts.DB = cfg.Redis.DB
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	var store session.Store
	switch cfg.Session.Backend {
	case "redis":
		store = session.NewRedisStore(redisClient, cfg.Auth.SessionTTL)
	case "postgres":
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := session.NewPostgresStore(pool, cfg.Auth.SessionTTL)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("Failed to prepare session schema", "error", err)
			os.Exit(1)
		}
		go cleanupSessions(ctx, pg)
		store = pg
	default:
		logger.Warn("Using in-memory sessions", "backend", cfg.Session.Backend)
		store = session.NewMemoryStore(cfg.Auth.SessionTTL)
	}

	var bus events.Publisher = events.NoopBus{}
	if cfg.NATS.Enabled {
		nb, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Warn("NATS unavailable, events disabled", "error", err)
		} else {
			defer nb.Close()
			bus = nb
		}
	}

	h := handlers.New(
		api,
		store,
		loginguard.New(store, cfg.Login.MaxAttempts, cfg.Login.BlockDuration),
		promo.NewPreviewer(),
		pricing.NewCalculator(cfg.Booking.DepositPerPerson),
		proxy.NewServiceProxy(api),
		bus,
		handlers.Options{
			SessionSecret: cfg.Auth.SessionSecret,
			SessionTTL:    cfg.Auth.SessionTTL,
			Limits:        booking.Limits{MinPeople: cfg.Booking.MinPeople, MaxPeople: cfg.Booking.MaxPeople},
		},
	)

	limiter := mw.NewRateLimiter(cfg.RateLimit.PreviewPerSecond, cfg.RateLimit.PreviewBurst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Sweep(10 * time.Minute)
			}
		}
	}()

	routeOpts := handlers.RouteOptions{
		IdempotencyTTL: cfg.Booking.IdempotencyTTL,
		Limiter:        limiter,
	}
	if redisClient != nil {
		routeOpts.Idempotency = mw.NewRedisIdempotencyStore(redisClient)
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("gateway"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "Idempotency-Key"},
		ExposedHeaders:   []string{"Retry-After", "Idempotent-Replayed", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)

	h.Routes(r, routeOpts)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down gateway service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Gateway shutdown error", "error", err)
		}
	}()

	logger.Info("Starting gateway service", "port", cfg.Server.Port, "upstream", cfg.Upstream.BaseURL, "sessions", cfg.Session.Backend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Gateway server error", "error", err)
		os.Exit(1)
	}
}

func cleanupSessions(ctx context.Context, store *session.PostgresStore) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.CleanupExpired(ctx)
			if err != nil {
				logger.Warn("Session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("Expired sessions removed", "count", n)
			}
		}
	}
}
