package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-scheduler/internal/config"
	appointmentHandler "github.com/jwalitptl/clinic-scheduler/internal/handler/appointment"
	availabilityHandler "github.com/jwalitptl/clinic-scheduler/internal/handler/availability"
	calendarHandler "github.com/jwalitptl/clinic-scheduler/internal/handler/calendar"
	catalogHandler "github.com/jwalitptl/clinic-scheduler/internal/handler/catalog"
	"github.com/jwalitptl/clinic-scheduler/internal/handler/health"
	"github.com/jwalitptl/clinic-scheduler/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-scheduler/internal/lock"
	"github.com/jwalitptl/clinic-scheduler/internal/middleware"
	"github.com/jwalitptl/clinic-scheduler/internal/repository/postgres"
	"github.com/jwalitptl/clinic-scheduler/internal/router"
	"github.com/jwalitptl/clinic-scheduler/internal/service/appointment"
	"github.com/jwalitptl/clinic-scheduler/internal/service/availability"
	"github.com/jwalitptl/clinic-scheduler/internal/service/calendar"
	"github.com/jwalitptl/clinic-scheduler/internal/service/catalog"
	"github.com/jwalitptl/clinic-scheduler/internal/service/event"
	"github.com/jwalitptl/clinic-scheduler/pkg/auth"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
	"github.com/jwalitptl/clinic-scheduler/pkg/messaging"
	"github.com/jwalitptl/clinic-scheduler/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
	"github.com/jwalitptl/clinic-scheduler/pkg/validator"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.Format == "json",
	})

	if cfg.JWT.Secret == "" {
		log.Fatal(errors.New("jwt.secret is empty"), "refusing to start without a signing key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis
	rdb, err := redis.NewClient(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		log.Fatal(err, "failed to connect to Redis")
	}

	promHandler := prometheus.New()
	m := metrics.NewMetrics(cfg.Metrics.Namespace, "api", promHandler.Registry())

	// Initialize repositories
	base := postgres.NewBaseRepository(db, m)
	appointmentRepo := postgres.NewAppointmentRepository(base)
	blockedRepo := postgres.NewBlockedSlotRepository(base)
	catalogRepo := postgres.NewCatalogRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)

	// Closing the broker closes the Redis client.
	broker := messaging.NewBrokerAdapter(redis.NewRedisBroker(rdb, log), log)
	defer broker.Close()

	// Initialize services
	catalogSvc := catalog.NewService(catalogRepo)
	calendarSvc := calendar.NewService(
		appointmentRepo,
		blockedRepo,
		catalogSvc,
		calendar.NewCache(cfg.Cache.ProjectionTTL, cfg.Cache.CleanupInterval),
		broker,
		m,
		log,
	)
	if err := calendarSvc.Listen(ctx); err != nil {
		log.Fatal(err, "failed to subscribe to calendar invalidations")
	}

	appointmentSvc := appointment.NewService(
		appointmentRepo,
		catalogSvc,
		appointment.NewPolicy(validator.New()),
		newLocker(cfg.Lock, rdb, m),
		event.NewEventService(outboxRepo),
		calendarSvc,
		m,
		log,
	)
	availabilitySvc := availability.NewService(blockedRepo)

	// Setup router
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.Server.CORS.AllowOrigins,
		AllowHeaders:     cfg.Server.CORS.AllowHeaders,
		AllowCredentials: cfg.Server.CORS.AllowCredentials,
		MaxAge:           cfg.Server.CORS.MaxAge,
	}
	r := router.NewRouter(
		middleware.NewAuthMiddleware(auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)),
		catalogRepo,
		health.NewHandler(db, rdb),
		promHandler,
		router.RouterConfig{
			RateLimit:  rate.Limit(cfg.Server.RateLimit),
			RateBurst:  cfg.Server.RateBurst,
			CORSConfig: corsConfig,
			Timeout:    middleware.TimeoutConfig{Duration: cfg.Server.Timeout()},
			Logger:     log,
		},
		appointmentHandler.NewHandler(appointmentSvc, calendarSvc, log),
		calendarHandler.NewHandler(calendarSvc),
		catalogHandler.NewHandler(catalogSvc),
		availabilityHandler.NewHandler(availabilitySvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting server", "port", cfg.Server.Port, "lock_backend", cfg.Lock.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}
	log.Info("Server exited")
}

func newLocker(cfg config.LockConfig, rdb *goredis.Client, m *metrics.Metrics) lock.Locker {
	if cfg.Backend == "local" {
		return lock.NewLocalLocker(m)
	}
	return lock.NewRedisLocker(rdb, cfg.TTL, cfg.RetryInterval, m)
}
