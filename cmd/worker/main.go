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

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/clinic-scheduler/internal/config"
	"github.com/jwalitptl/clinic-scheduler/internal/email"
	"github.com/jwalitptl/clinic-scheduler/internal/repository/postgres"
	"github.com/jwalitptl/clinic-scheduler/internal/service/catalog"
	"github.com/jwalitptl/clinic-scheduler/internal/service/notification"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
	"github.com/jwalitptl/clinic-scheduler/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
	"github.com/jwalitptl/clinic-scheduler/pkg/worker"
)

// Settings are the outbox knobs, read from OUTBOX_* environment variables.
type Settings struct {
	BatchSize     int           `envconfig:"BATCH_SIZE" default:"100"`
	PollInterval  time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	Lease         time.Duration `envconfig:"LEASE" default:"1m"`
	RetryAttempts int           `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryDelay    time.Duration `envconfig:"RETRY_DELAY" default:"5s"`
	MaxDeliveries int           `envconfig:"MAX_DELIVERIES" default:"10"`
	Retention     time.Duration `envconfig:"RETENTION" default:"168h"`
	CleanupEvery  time.Duration `envconfig:"CLEANUP_EVERY" default:"1h"`
	HealthPort    int           `envconfig:"HEALTH_PORT" default:"8081"`
}

func (s Settings) processorConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:     s.BatchSize,
		PollInterval:  s.PollInterval,
		Lease:         s.Lease,
		RetryAttempts: s.RetryAttempts,
		RetryDelay:    s.RetryDelay,
		MaxDeliveries: s.MaxDeliveries,
		Retention:     s.Retention,
		CleanupEvery:  s.CleanupEvery,
	}
}

func setupHealthCheck(port int, reg *prometheus.Registry, ready func(context.Context) error, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	var settings Settings
	if err := envconfig.Process("outbox", &settings); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load outbox settings: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.Format == "json",
	}).WithFields(map[string]interface{}{"worker_id": generateWorkerID()})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis broker
	rdb, err := redis.NewClient(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		log.Fatal(err, "Failed to connect to Redis")
	}
	broker := redis.NewRedisBroker(rdb, log)
	defer broker.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.NewMetrics(cfg.Metrics.Namespace, "worker", reg)

	// Initialize repositories
	base := postgres.NewBaseRepository(db, m)
	outboxRepo := postgres.NewOutboxRepository(base)
	catalogSvc := catalog.NewService(postgres.NewCatalogRepository(base))

	notifier := notification.NewService(catalogSvc, email.NewService(cfg.Email, log), log)

	// Initialize and start outbox processor
	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		notifier,
		settings.processorConfig(),
		log,
		m,
	)

	healthSrv := setupHealthCheck(settings.HealthPort, reg, db.PingContext, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthSrv.Shutdown(shutdownCtx)
	}()

	log.Info("Worker started", "batch_size", settings.BatchSize, "poll_interval", settings.PollInterval)
	processor.Start(ctx)
	log.Info("Worker stopped")
}

func generateWorkerID() string {
	// Generate a unique worker ID using hostname and timestamp
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
}
