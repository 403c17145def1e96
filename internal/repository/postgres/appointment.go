package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/repository"
)

type appointmentRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (id, patient_name, phone, date, note, priority, status,
			ai_classification, booked_by_doctor, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientName,
		appointment.Phone,
		appointment.Date,
		appointment.Note,
		appointment.Priority,
		appointment.Status,
		appointment.AIClassification,
		appointment.BookedByDoctor,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT * FROM appointments WHERE id = $1`
	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET patient_name = $1, phone = $2, date = $3, note = $4, priority = $5, status = $6,
			ai_classification = $7, updated_at = $8
		WHERE id = $9
	`
	_, err := r.db.ExecContext(ctx, query,
		appointment.PatientName,
		appointment.Phone,
		appointment.Date,
		appointment.Note,
		appointment.Priority,
		appointment.Status,
		appointment.AIClassification,
		time.Now(),
		appointment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM appointments WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *appointmentRepository) List(ctx context.Context) ([]*model.Appointment, error) {
	query := `SELECT * FROM appointments ORDER BY date, created_at`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListByDate(ctx context.Context, date string) ([]*model.Appointment, error) {
	query := `SELECT * FROM appointments WHERE date = $1 ORDER BY created_at`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, date); err != nil {
		return nil, fmt.Errorf("failed to list appointments by date: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) CountForDate(ctx context.Context, date string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM appointments WHERE date = $1`, date); err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

func (r *appointmentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM appointments`); err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

func (r *appointmentRepository) GetCapacity(ctx context.Context, date string) (int, error) {
	var limit int
	err := r.db.GetContext(ctx, &limit, `SELECT capacity_limit FROM daily_capacities WHERE date = $1`, date)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultDailyCapacity, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get daily capacity: %w", err)
	}
	return limit, nil
}

func (r *appointmentRepository) SetCapacity(ctx context.Context, date string, limit int) error {
	query := `
		INSERT INTO daily_capacities (date, capacity_limit)
		VALUES ($1, $2)
		ON CONFLICT (date) DO UPDATE SET capacity_limit = EXCLUDED.capacity_limit
	`
	_, err := r.db.ExecContext(ctx, query, date, limit)
	if err != nil {
		return fmt.Errorf("failed to set daily capacity: %w", err)
	}
	return nil
}
