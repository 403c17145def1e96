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

	_ "github.com/lib/pq"

	"github.com/meddoc/clinic-api/internal/ai"
	"github.com/meddoc/clinic-api/internal/config"
	"github.com/meddoc/clinic-api/internal/email"
	"github.com/meddoc/clinic-api/internal/handler"
	appointmentHandler "github.com/meddoc/clinic-api/internal/handler/appointment"
	auditHandler "github.com/meddoc/clinic-api/internal/handler/audit"
	authHandler "github.com/meddoc/clinic-api/internal/handler/auth"
	medicineHandler "github.com/meddoc/clinic-api/internal/handler/medicine"
	patientHandler "github.com/meddoc/clinic-api/internal/handler/patient"
	prescriptionHandler "github.com/meddoc/clinic-api/internal/handler/prescription"
	reportHandler "github.com/meddoc/clinic-api/internal/handler/report"
	taskHandler "github.com/meddoc/clinic-api/internal/handler/task"
	"github.com/meddoc/clinic-api/internal/middleware"
	"github.com/meddoc/clinic-api/internal/repository/postgres"
	"github.com/meddoc/clinic-api/internal/router"
	appointmentService "github.com/meddoc/clinic-api/internal/service/appointment"
	auditService "github.com/meddoc/clinic-api/internal/service/audit"
	medicineService "github.com/meddoc/clinic-api/internal/service/medicine"
	patientService "github.com/meddoc/clinic-api/internal/service/patient"
	practitionerService "github.com/meddoc/clinic-api/internal/service/practitioner"
	prescriptionService "github.com/meddoc/clinic-api/internal/service/prescription"
	reportService "github.com/meddoc/clinic-api/internal/service/report"
	safetyService "github.com/meddoc/clinic-api/internal/service/safety"
	taskService "github.com/meddoc/clinic-api/internal/service/task"
	"github.com/meddoc/clinic-api/internal/worker"
	"github.com/meddoc/clinic-api/pkg/auth"
	"github.com/meddoc/clinic-api/pkg/logger"
	"github.com/meddoc/clinic-api/pkg/messaging"
	redisbroker "github.com/meddoc/clinic-api/pkg/messaging/redis"
	"github.com/meddoc/clinic-api/pkg/metrics"
	"github.com/meddoc/clinic-api/pkg/security"
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

	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, appLogger.Zerolog())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()
	}

	medicineRepo := postgres.NewMedicineRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	taskRepo := postgres.NewTaskRepository(db)
	reportRepo := postgres.NewReportRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	practitionerRepo := postgres.NewPractitionerRepository(db)

	appMetrics := metrics.NewMetrics("meddoc")

	var classifier *ai.Client
	if cfg.AI.Enabled {
		classifier = ai.NewClient(cfg.AI, appLogger)
	}

	auditSvc := auditService.NewService(auditRepo, appLogger)
	medicineSvc := medicineService.NewService(medicineRepo, broker, appLogger)
	patientSvc := patientService.NewService(patientRepo, broker, appLogger)

	var prescriptionClassifier safetyService.Classifier
	var appointmentClassifier appointmentService.PriorityClassifier
	if classifier != nil {
		prescriptionClassifier = classifier
		appointmentClassifier = classifier
	}

	safetySvc := safetyService.NewService(cfg.Safety, cfg.AI, prescriptionClassifier, auditSvc, appMetrics, appLogger)
	prescriptionSvc := prescriptionService.NewService(prescriptionRepo, medicineSvc, patientSvc, safetySvc, broker, appLogger)
	appointmentSvc := appointmentService.NewService(appointmentRepo, appointmentClassifier, broker, appLogger)
	taskSvc := taskService.NewService(taskRepo, broker, appLogger)

	mailer := email.NewService(cfg.SMTP, cfg.Archive.EmailTo)
	var reportMailer reportService.ReportMailer
	if mailer != nil {
		reportMailer = mailer
	}
	reportSvc := reportService.NewService(reportRepo, prescriptionRepo, patientRepo, medicineRepo, appointmentRepo, taskRepo, reportMailer, broker, appLogger)

	tokenSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryMinutes)*time.Minute)
	practitionerSvc := practitionerService.NewService(
		practitionerRepo,
		security.NewBcryptHasher(0),
		tokenSvc,
		time.Duration(cfg.JWT.ExpiryMinutes)*time.Minute,
		appLogger,
	)

	authMiddleware := middleware.NewAuthMiddleware(tokenSvc, practitionerSvc)

	r := router.NewRouter(
		authMiddleware,
		handler.NewHandler(db),
		authHandler.NewHandler(practitionerSvc),
		router.Config{
			RateLimit:     rate.Limit(100),
			RateBurst:     200,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "meddoc_api",
		},
		medicineHandler.NewHandler(medicineSvc),
		patientHandler.NewHandler(patientSvc),
		prescriptionHandler.NewHandler(prescriptionSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		taskHandler.NewHandler(taskSvc),
		reportHandler.NewHandler(reportSvc),
		auditHandler.NewHandler(auditSvc),
	)
	r.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := medicineSvc.SeedDefaults(ctx); err != nil {
		appLogger.Error(err, "failed to seed medicine registry")
	}

	archiveWorker := worker.NewArchiveWorker(reportSvc, cfg.Archive.Hour, cfg.Archive.BackupDir, appLogger)
	go archiveWorker.Start(ctx)
	cleanupWorker := worker.NewAuditCleanupWorker(auditSvc, cfg.Archive.AuditRetentionDays, 24*time.Hour, appLogger)
	go cleanupWorker.Start(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		appLogger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "forced shutdown")
	}
}
