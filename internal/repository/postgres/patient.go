package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/repository"
)

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Upsert(ctx context.Context, patient *model.Patient) error {
	// Profiles are keyed by case-insensitive name: a repeat visit under
	// the same name updates the existing record.
	query := `
		INSERT INTO patients (id, name, age, sex, type, phone, weight, allergies, pathologies,
			chronic_diseases, consultation_fee, registered_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (LOWER(name)) DO UPDATE
		SET age = EXCLUDED.age,
			sex = EXCLUDED.sex,
			type = EXCLUDED.type,
			phone = EXCLUDED.phone,
			weight = EXCLUDED.weight,
			allergies = EXCLUDED.allergies,
			pathologies = EXCLUDED.pathologies,
			chronic_diseases = EXCLUDED.chronic_diseases,
			consultation_fee = EXCLUDED.consultation_fee,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.Name,
		patient.Age,
		patient.Sex,
		patient.Type,
		patient.Phone,
		patient.Weight,
		patient.Allergies,
		patient.Pathologies,
		pq.StringArray(patient.ChronicDiseases),
		patient.ConsultationFee,
		patient.RegisteredDate,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1`
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByName(ctx context.Context, name string) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE LOWER(name) = LOWER($1)`
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, name); err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM patients WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *patientRepository) Search(ctx context.Context, term string, limit int) ([]*model.Patient, error) {
	if limit <= 0 {
		limit = 5
	}
	query := `
		SELECT * FROM patients
		WHERE name ILIKE $1 OR phone LIKE $2
		ORDER BY name
		LIMIT $3
	`
	var patients []*model.Patient
	err := r.db.SelectContext(ctx, &patients, query, "%"+term+"%", "%"+term+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	query := `SELECT * FROM patients ORDER BY name`
	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM patients`); err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return count, nil
}

func (r *patientRepository) AddToQueue(ctx context.Context, patientID uuid.UUID, date time.Time) error {
	query := `
		INSERT INTO queue_entries (patient_id, registered_date)
		VALUES ($1, $2)
		ON CONFLICT (patient_id) DO UPDATE SET registered_date = EXCLUDED.registered_date
	`
	_, err := r.db.ExecContext(ctx, query, patientID, date)
	if err != nil {
		return fmt.Errorf("failed to add patient to queue: %w", err)
	}
	return nil
}

func (r *patientRepository) ListQueue(ctx context.Context, date time.Time) ([]*model.Patient, error) {
	query := `
		SELECT p.* FROM patients p
		JOIN queue_entries q ON q.patient_id = p.id
		WHERE q.registered_date::date = $1::date
		ORDER BY q.registered_date
	`
	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, date); err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) RemoveFromQueue(ctx context.Context, patientID uuid.UUID) error {
	query := `DELETE FROM queue_entries WHERE patient_id = $1`
	_, err := r.db.ExecContext(ctx, query, patientID)
	return err
}

func (r *patientRepository) ClearQueue(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM queue_entries`)
	return err
}
