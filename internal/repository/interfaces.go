package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meddoc/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// MedicineRepository backs the medicine registry
	MedicineRepository interface {
		Create(ctx context.Context, medicine *model.Medicine) error
		Get(ctx context.Context, id uuid.UUID) (*model.Medicine, error)
		GetByName(ctx context.Context, name string) (*model.Medicine, error)
		Update(ctx context.Context, medicine *model.Medicine) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.MedicineFilters) ([]*model.Medicine, error)
		Count(ctx context.Context) (int, error)
	}

	// PatientRepository stores patient profiles and the daily waiting queue
	PatientRepository interface {
		Upsert(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByName(ctx context.Context, name string) (*model.Patient, error)
		Delete(ctx context.Context, id uuid.UUID) error
		Search(ctx context.Context, term string, limit int) ([]*model.Patient, error)
		List(ctx context.Context) ([]*model.Patient, error)
		Count(ctx context.Context) (int, error)

		AddToQueue(ctx context.Context, patientID uuid.UUID, date time.Time) error
		ListQueue(ctx context.Context, date time.Time) ([]*model.Patient, error)
		RemoveFromQueue(ctx context.Context, patientID uuid.UUID) error
		ClearQueue(ctx context.Context) error
	}

	// PrescriptionRepository stores saved, immutable prescriptions
	PrescriptionRepository interface {
		Create(ctx context.Context, prescription *model.Prescription) error
		Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
		List(ctx context.Context, filters *model.PrescriptionFilters) ([]*model.Prescription, error)
		ListByDate(ctx context.Context, date time.Time) ([]*model.Prescription, error)
		Count(ctx context.Context) (int, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Appointment, error)
		ListByDate(ctx context.Context, date string) ([]*model.Appointment, error)
		CountForDate(ctx context.Context, date string) (int, error)
		Count(ctx context.Context) (int, error)
		GetCapacity(ctx context.Context, date string) (int, error)
		SetCapacity(ctx context.Context, date string, limit int) error
	}

	TaskRepository interface {
		Create(ctx context.Context, task *model.Task) error
		Get(ctx context.Context, id uuid.UUID) (*model.Task, error)
		Update(ctx context.Context, task *model.Task) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Task, error)
	}

	ReportRepository interface {
		Create(ctx context.Context, report *model.DailyReport) error
		List(ctx context.Context) ([]*model.DailyReport, error)
		GetByDate(ctx context.Context, date string) (*model.DailyReport, error)
		GetLastBackup(ctx context.Context) (*time.Time, error)
		SetLastBackup(ctx context.Context, at time.Time) error
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error)
		Cleanup(ctx context.Context, before time.Time) (int64, error)
	}

	PractitionerRepository interface {
		Get(ctx context.Context) (*model.Practitioner, error)
		Upsert(ctx context.Context, practitioner *model.Practitioner) error
	}
)
