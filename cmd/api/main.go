package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/medisched/clinic-api/internal/config"
	"github.com/medisched/clinic-api/internal/email"
	"github.com/medisched/clinic-api/internal/handler"
	adminHandler "github.com/medisched/clinic-api/internal/handler/admin"
	appointmentHandler "github.com/medisched/clinic-api/internal/handler/appointment"
	authHandler "github.com/medisched/clinic-api/internal/handler/auth"
	doctorHandler "github.com/medisched/clinic-api/internal/handler/doctor"
	medicalRecordHandler "github.com/medisched/clinic-api/internal/handler/medicalrecord"
	patientHandler "github.com/medisched/clinic-api/internal/handler/patient"
	"github.com/medisched/clinic-api/internal/middleware"
	"github.com/medisched/clinic-api/internal/repository/postgres"
	"github.com/medisched/clinic-api/internal/router"
	"github.com/medisched/clinic-api/internal/worker"
	appointmentService "github.com/medisched/clinic-api/internal/service/appointment"
	identityService "github.com/medisched/clinic-api/internal/service/identity"
	medicalService "github.com/medisched/clinic-api/internal/service/medical"
	"github.com/medisched/clinic-api/pkg/auth"
	"github.com/medisched/clinic-api/pkg/logger"
	redisbroker "github.com/medisched/clinic-api/pkg/messaging/redis"
	"github.com/medisched/clinic-api/pkg/metrics"
	pkgworker "github.com/medisched/clinic-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := postgres.EnsureSchema(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure database schema")
	}

	// Repositories
	accountRepo := postgres.NewAccountRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	adminRepo := postgres.NewAdminRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	medicalRecordRepo := postgres.NewMedicalRecordRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Collaborators
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	var emailSvc email.Service = email.NoopService{}
	if cfg.Email.Host != "" && cfg.Email.Username != "" {
		emailSvc = email.NewSMTPService(cfg.Email)
	}
	appMetrics := metrics.NewMetrics("clinic", "api")

	// Services
	identitySvc := identityService.NewService(accountRepo, doctorRepo, patientRepo, adminRepo, jwtSvc, appLogger)
	appointmentSvc := appointmentService.NewService(
		appointmentRepo,
		doctorRepo,
		emailSvc,
		appointmentService.Config{
			ConflictWindow:      cfg.Scheduler.ConflictWindow(),
			BlockCancelledSlots: cfg.Scheduler.BlockCancelledSlots,
		},
		appLogger,
		appMetrics,
	)
	medicalSvc := medicalService.NewService(medicalRecordRepo, patientRepo, doctorRepo)

	// HTTP
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)
	h := handler.NewHandler()

	r := router.NewRouter(
		authMiddleware,
		h,
		router.Config{
			RateLimit: rate.Limit(100),
			RateBurst: 200,
			CORS:      middleware.DefaultCORSConfig(),
		},
		authHandler.NewHandler(identitySvc),
		doctorHandler.NewHandler(identitySvc),
		patientHandler.NewHandler(identitySvc),
		adminHandler.NewHandler(identitySvc),
		appointmentHandler.NewHandler(appointmentSvc, identitySvc),
		medicalRecordHandler.NewHandler(medicalSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	// Outbox processor publishes appointment events to Redis
	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	outboxProcessor := pkgworker.NewOutboxProcessor(outboxRepo, broker, pkgworker.OutboxProcessorConfig{}, appLogger, appMetrics)
	go outboxProcessor.Start(workerCtx)

	cleanupWorker := worker.NewOutboxCleanupWorker(outboxRepo, 30, time.Hour, appLogger)
	go cleanupWorker.Start(workerCtx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
