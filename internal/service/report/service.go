package report

import (
	"context"
	"fmt"
	"time"

	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/repository"
	"github.com/meddoc/clinic-api/pkg/logger"
	"github.com/meddoc/clinic-api/pkg/messaging"
)

// ReportMailer sends the end-of-day summary to the practitioner.
type ReportMailer interface {
	SendDailyReport(report *model.DailyReport) error
}

// Service produces dashboard statistics, the end-of-day archive and the
// full-database backup document.
type Service struct {
	reports       repository.ReportRepository
	prescriptions repository.PrescriptionRepository
	patients      repository.PatientRepository
	medicines     repository.MedicineRepository
	appointments  repository.AppointmentRepository
	tasks         repository.TaskRepository
	mailer        ReportMailer
	broker        messaging.Broker
	logger        *logger.Logger
}

func NewService(
	reports repository.ReportRepository,
	prescriptions repository.PrescriptionRepository,
	patients repository.PatientRepository,
	medicines repository.MedicineRepository,
	appointments repository.AppointmentRepository,
	tasks repository.TaskRepository,
	mailer ReportMailer,
	broker messaging.Broker,
	log *logger.Logger,
) *Service {
	return &Service{
		reports:       reports,
		prescriptions: prescriptions,
		patients:      patients,
		medicines:     medicines,
		appointments:  appointments,
		tasks:         tasks,
		mailer:        mailer,
		broker:        broker,
		logger:        log,
	}
}

// Stats summarizes the dataset for the dashboard.
func (s *Service) Stats(ctx context.Context) (*model.DatabaseStats, error) {
	stats := &model.DatabaseStats{}
	var err error

	if stats.PatientCount, err = s.patients.Count(ctx); err != nil {
		return nil, err
	}
	if stats.PrescriptionCount, err = s.prescriptions.Count(ctx); err != nil {
		return nil, err
	}
	if stats.MedicineCount, err = s.medicines.Count(ctx); err != nil {
		return nil, err
	}
	if stats.AppointmentCount, err = s.appointments.Count(ctx); err != nil {
		return nil, err
	}
	if stats.LastBackup, err = s.reports.GetLastBackup(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

// ArchiveDay rolls the given day's prescriptions into a daily report,
// clears the waiting queue and mails the summary.
func (s *Service) ArchiveDay(ctx context.Context, day time.Time) (*model.DailyReport, error) {
	prescriptions, err := s.prescriptions.ListByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load day's prescriptions: %w", err)
	}

	report := &model.DailyReport{Date: day.Format("2006-01-02")}
	for _, p := range prescriptions {
		report.TotalRevenue += p.Amount
		report.PrescriptionsCount++
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	if err := s.patients.ClearQueue(ctx); err != nil {
		s.logger.Error(err, "failed to clear queue during archive")
	}

	if s.mailer != nil {
		if err := s.mailer.SendDailyReport(report); err != nil {
			s.logger.Error(err, "failed to mail daily report", "date", report.Date)
		}
	}

	s.publish(ctx, "archive", report)
	s.logger.Info("day archived",
		"date", report.Date,
		"prescriptions", report.PrescriptionsCount,
		"revenue", report.TotalRevenue,
	)
	return report, nil
}

func (s *Service) ListReports(ctx context.Context) ([]*model.DailyReport, error) {
	return s.reports.List(ctx)
}

// ExportBackup assembles every collection into one restorable document
// and records the backup time.
func (s *Service) ExportBackup(ctx context.Context) (*model.Backup, error) {
	backup := &model.Backup{ExportedAt: time.Now()}
	var err error

	if backup.Medicines, err = s.medicines.List(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to export medicines: %w", err)
	}
	if backup.Patients, err = s.patients.List(ctx); err != nil {
		return nil, fmt.Errorf("failed to export patients: %w", err)
	}
	if backup.Prescriptions, err = s.prescriptions.List(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to export prescriptions: %w", err)
	}
	if backup.Appointments, err = s.appointments.List(ctx); err != nil {
		return nil, fmt.Errorf("failed to export appointments: %w", err)
	}
	if backup.Tasks, err = s.tasks.List(ctx); err != nil {
		return nil, fmt.Errorf("failed to export tasks: %w", err)
	}
	if backup.Reports, err = s.reports.List(ctx); err != nil {
		return nil, fmt.Errorf("failed to export reports: %w", err)
	}

	if err := s.reports.SetLastBackup(ctx, backup.ExportedAt); err != nil {
		s.logger.Error(err, "failed to record backup time")
	}
	return backup, nil
}

// ImportBackup restores a backup document. Existing records with the
// same identity are overwritten; the import is best-effort per entity
// so one bad record does not abort the restore.
func (s *Service) ImportBackup(ctx context.Context, backup *model.Backup) error {
	for _, m := range backup.Medicines {
		if err := s.medicines.Create(ctx, m); err != nil {
			if updateErr := s.medicines.Update(ctx, m); updateErr != nil {
				s.logger.Error(updateErr, "failed to restore medicine", "name", m.Name)
			}
		}
	}
	for _, p := range backup.Patients {
		if err := s.patients.Upsert(ctx, p); err != nil {
			s.logger.Error(err, "failed to restore patient", "name", p.Name)
		}
	}
	for _, p := range backup.Prescriptions {
		if err := s.prescriptions.Create(ctx, p); err != nil {
			s.logger.Error(err, "failed to restore prescription", "id", p.ID.String())
		}
	}
	for _, a := range backup.Appointments {
		if err := s.appointments.Create(ctx, a); err != nil {
			if updateErr := s.appointments.Update(ctx, a); updateErr != nil {
				s.logger.Error(updateErr, "failed to restore appointment", "id", a.ID.String())
			}
		}
	}
	for _, t := range backup.Tasks {
		if err := s.tasks.Create(ctx, t); err != nil {
			if updateErr := s.tasks.Update(ctx, t); updateErr != nil {
				s.logger.Error(updateErr, "failed to restore task", "id", t.ID.String())
			}
		}
	}
	for _, r := range backup.Reports {
		if err := s.reports.Create(ctx, r); err != nil {
			s.logger.Error(err, "failed to restore report", "date", r.Date)
		}
	}
	s.logger.Info("backup imported", "exported_at", backup.ExportedAt.Format(time.RFC3339))
	return nil
}

func (s *Service) publish(ctx context.Context, operation string, payload interface{}) {
	if s.broker == nil {
		return
	}
	event := messaging.ChangeEvent{Resource: "report", Operation: operation, Payload: payload}
	if err := s.broker.Publish(ctx, messaging.ChannelReports, event); err != nil {
		s.logger.Warn("failed to publish report change", "operation", operation, "error", err.Error())
	}
}
