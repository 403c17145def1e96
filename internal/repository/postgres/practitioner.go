package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/repository"
)

type practitionerRepository struct {
	db *sqlx.DB
}

func NewPractitionerRepository(db *sqlx.DB) repository.PractitionerRepository {
	return &practitionerRepository{db: db}
}

// Get returns the single practitioner row, or sql.ErrNoRows before setup.
func (r *practitionerRepository) Get(ctx context.Context) (*model.Practitioner, error) {
	query := `SELECT * FROM practitioners LIMIT 1`
	var practitioner model.Practitioner
	if err := r.db.GetContext(ctx, &practitioner, query); err != nil {
		return nil, err
	}
	return &practitioner, nil
}

func (r *practitionerRepository) Upsert(ctx context.Context, practitioner *model.Practitioner) error {
	query := `
		INSERT INTO practitioners (id, name, name_arabic, specialty, address, phone, email,
			currency, pin_enabled, pin_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			name_arabic = EXCLUDED.name_arabic,
			specialty = EXCLUDED.specialty,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			currency = EXCLUDED.currency,
			pin_enabled = EXCLUDED.pin_enabled,
			pin_hash = EXCLUDED.pin_hash,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	if practitioner.CreatedAt.IsZero() {
		practitioner.CreatedAt = now
	}
	practitioner.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		practitioner.ID,
		practitioner.Name,
		practitioner.NameArabic,
		practitioner.Specialty,
		practitioner.Address,
		practitioner.Phone,
		practitioner.Email,
		practitioner.Currency,
		practitioner.PINEnabled,
		practitioner.PINHash,
		practitioner.CreatedAt,
		practitioner.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert practitioner: %w", err)
	}
	return nil
}
