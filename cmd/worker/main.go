package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/medisched/clinic-api/internal/repository/postgres"
	"github.com/medisched/clinic-api/internal/worker"
	"github.com/medisched/clinic-api/pkg/logger"
	redisbroker "github.com/medisched/clinic-api/pkg/messaging/redis"
	"github.com/medisched/clinic-api/pkg/metrics"
	pkgworker "github.com/medisched/clinic-api/pkg/worker"
)

// Spec is the worker's environment configuration, prefixed WORKER_.
type Spec struct {
	DatabaseURL      string        `envconfig:"DATABASE_URL" required:"true"`
	RedisURL         string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	BatchSize        int           `envconfig:"BATCH_SIZE" default:"100"`
	PollInterval     time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	Channel          string        `envconfig:"CHANNEL" default:"appointments"`
	RetentionDays    int           `envconfig:"RETENTION_DAYS" default:"30"`
	CleanupInterval  time.Duration `envconfig:"CLEANUP_INTERVAL" default:"1h"`
	HealthListenAddr string        `envconfig:"HEALTH_LISTEN_ADDR" default:":8081"`
}

func setupHealthCheck(addr string, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			appLogger.Fatal(err, "health check server failed")
		}
	}()
}

func main() {
	var spec Spec
	if err := envconfig.Process("worker", &spec); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := sqlx.Connect("postgres", spec.DatabaseURL)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{URL: spec.RedisURL}, appLogger.Zerolog())
	if err != nil {
		appLogger.Fatal(err, "failed to connect to Redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)

	processor := pkgworker.NewOutboxProcessor(
		outboxRepo,
		broker,
		pkgworker.OutboxProcessorConfig{
			BatchSize:    spec.BatchSize,
			PollInterval: spec.PollInterval,
			Channel:      spec.Channel,
		},
		appLogger,
		metrics.NewMetrics("clinic", "worker"),
	)
	cleanup := worker.NewOutboxCleanupWorker(outboxRepo, spec.RetentionDays, spec.CleanupInterval, appLogger)

	setupHealthCheck(spec.HealthListenAddr, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down worker...")
		cancel()
	}()

	go cleanup.Start(ctx)
	processor.Start(ctx)
}
