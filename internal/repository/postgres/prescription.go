package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/repository"
)

type prescriptionRepository struct {
	db *sqlx.DB
}

func NewPrescriptionRepository(db *sqlx.DB) repository.PrescriptionRepository {
	return &prescriptionRepository{db: db}
}

func (r *prescriptionRepository) Create(ctx context.Context, prescription *model.Prescription) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	prescription.CreatedAt = time.Now()
	prescription.UpdatedAt = prescription.CreatedAt

	query := `
		INSERT INTO prescriptions (id, patient_id, patient_name, date, amount, patient_type,
			patient_age, patient_weight, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.ExecContext(ctx, query,
		prescription.ID,
		prescription.PatientID,
		prescription.PatientName,
		prescription.Date,
		prescription.Amount,
		prescription.PatientType,
		prescription.PatientAge,
		prescription.PatientWeight,
		prescription.CreatedAt,
		prescription.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}

	itemQuery := `
		INSERT INTO prescription_items (id, prescription_id, position, medicine_name, dosage,
			timing, interaction_group, overridden_by_doctor, override_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i, item := range prescription.Items {
		_, err = tx.ExecContext(ctx, itemQuery,
			item.ID,
			prescription.ID,
			i,
			item.MedicineName,
			item.Dosage,
			item.Timing,
			item.InteractionGroup,
			item.OverriddenByDoctor,
			item.OverrideReason,
		)
		if err != nil {
			return fmt.Errorf("failed to create prescription item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prescription: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	query := `SELECT * FROM prescriptions WHERE id = $1`
	var prescription model.Prescription
	if err := r.db.GetContext(ctx, &prescription, query, id); err != nil {
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}
	if err := r.loadItems(ctx, &prescription); err != nil {
		return nil, err
	}
	return &prescription, nil
}

func (r *prescriptionRepository) loadItems(ctx context.Context, prescription *model.Prescription) error {
	query := `
		SELECT id, medicine_name, dosage, timing, interaction_group, overridden_by_doctor, override_reason
		FROM prescription_items
		WHERE prescription_id = $1
		ORDER BY position
	`
	if err := r.db.SelectContext(ctx, &prescription.Items, query, prescription.ID); err != nil {
		return fmt.Errorf("failed to load prescription items: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) List(ctx context.Context, filters *model.PrescriptionFilters) ([]*model.Prescription, error) {
	query := `SELECT * FROM prescriptions WHERE 1=1`
	args := []interface{}{}

	if filters != nil && filters.PatientID != uuid.Nil {
		args = append(args, filters.PatientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if filters != nil && filters.Date != "" {
		args = append(args, filters.Date)
		query += fmt.Sprintf(" AND date::date = $%d::date", len(args))
	}
	query += " ORDER BY date DESC"

	var prescriptions []*model.Prescription
	if err := r.db.SelectContext(ctx, &prescriptions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	for _, p := range prescriptions {
		if err := r.loadItems(ctx, p); err != nil {
			return nil, err
		}
	}
	return prescriptions, nil
}

func (r *prescriptionRepository) ListByDate(ctx context.Context, date time.Time) ([]*model.Prescription, error) {
	query := `SELECT * FROM prescriptions WHERE date::date = $1::date ORDER BY date`
	var prescriptions []*model.Prescription
	if err := r.db.SelectContext(ctx, &prescriptions, query, date); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions by date: %w", err)
	}
	for _, p := range prescriptions {
		if err := r.loadItems(ctx, p); err != nil {
			return nil, err
		}
	}
	return prescriptions, nil
}

func (r *prescriptionRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM prescriptions`); err != nil {
		return 0, fmt.Errorf("failed to count prescriptions: %w", err)
	}
	return count, nil
}
