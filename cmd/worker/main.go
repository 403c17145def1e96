package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	_ "github.com/lib/pq"

	"github.com/meddoc/clinic-api/internal/config"
	"github.com/meddoc/clinic-api/internal/email"
	"github.com/meddoc/clinic-api/internal/repository/postgres"
	auditService "github.com/meddoc/clinic-api/internal/service/audit"
	reportService "github.com/meddoc/clinic-api/internal/service/report"
	"github.com/meddoc/clinic-api/internal/worker"
	"github.com/meddoc/clinic-api/pkg/logger"
)

// The worker binary runs the end-of-day archive and audit retention
// without the API server. It is configured from the environment so it
// can run as a bare cron-style container.
func main() {
	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	reportRepo := postgres.NewReportRepository(db)
	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	medicineRepo := postgres.NewMedicineRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	taskRepo := postgres.NewTaskRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	mailer := email.NewService(config.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, cfg.ReportEmailTo)
	var reportMailer reportService.ReportMailer
	if mailer != nil {
		reportMailer = mailer
	}

	reportSvc := reportService.NewService(reportRepo, prescriptionRepo, patientRepo, medicineRepo, appointmentRepo, taskRepo, reportMailer, nil, appLogger)
	auditSvc := auditService.NewService(auditRepo, appLogger)

	setupHealthAndMetrics(cfg.MetricsPort, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down")
		cancel()
	}()

	cleanup := worker.NewAuditCleanupWorker(auditSvc, cfg.AuditRetentionDays, 24*time.Hour, appLogger)
	go cleanup.Start(ctx)

	archive := worker.NewArchiveWorker(reportSvc, cfg.ArchiveHour, cfg.BackupDir, appLogger)
	archive.Start(ctx)
}

func setupHealthAndMetrics(port int, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			appLogger.Error(err, "health server failed")
		}
	}()
}
