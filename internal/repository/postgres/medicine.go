package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/repository"
)

type medicineRepository struct {
	db *sqlx.DB
}

func NewMedicineRepository(db *sqlx.DB) repository.MedicineRepository {
	return &medicineRepository{db: db}
}

// medicineRow flattens the optional restriction columns for scanning.
type medicineRow struct {
	model.Base
	Name              string                   `db:"name"`
	Category          model.MedicineCategory   `db:"category"`
	DefaultDosage     string                   `db:"default_dosage"`
	DefaultTiming     model.MealTiming         `db:"default_timing"`
	InteractionGroup  string                   `db:"interaction_group"`
	RestrictionStatus *model.RestrictionStatus `db:"restriction_status"`
	RestrictionMinAge *int                     `db:"restriction_min_age"`
	RestrictionMaxAge *int                     `db:"restriction_max_age"`
	RestrictionReason *string                  `db:"restriction_reason"`
	IncompatibleWith  pq.StringArray           `db:"incompatible_with"`
}

func (r medicineRow) toModel() *model.Medicine {
	m := &model.Medicine{
		Base:             r.Base,
		Name:             r.Name,
		Category:         r.Category,
		DefaultDosage:    r.DefaultDosage,
		DefaultTiming:    r.DefaultTiming,
		InteractionGroup: r.InteractionGroup,
		IncompatibleWith: r.IncompatibleWith,
	}
	if r.RestrictionStatus != nil {
		m.Restriction = &model.MedicineRestriction{
			Status: *r.RestrictionStatus,
			MinAge: r.RestrictionMinAge,
			MaxAge: r.RestrictionMaxAge,
		}
		if r.RestrictionReason != nil {
			m.Restriction.Reason = *r.RestrictionReason
		}
	}
	return m
}

func restrictionColumns(m *model.Medicine) (status *model.RestrictionStatus, minAge, maxAge *int, reason *string) {
	if m.Restriction == nil {
		return nil, nil, nil, nil
	}
	s := m.Restriction.Status
	re := m.Restriction.Reason
	return &s, m.Restriction.MinAge, m.Restriction.MaxAge, &re
}

func (r *medicineRepository) Create(ctx context.Context, medicine *model.Medicine) error {
	query := `
		INSERT INTO medicines (id, name, category, default_dosage, default_timing, interaction_group,
			restriction_status, restriction_min_age, restriction_max_age, restriction_reason,
			incompatible_with, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	medicine.CreatedAt = time.Now()
	medicine.UpdatedAt = time.Now()

	status, minAge, maxAge, reason := restrictionColumns(medicine)
	_, err := r.db.ExecContext(ctx, query,
		medicine.ID,
		medicine.Name,
		medicine.Category,
		medicine.DefaultDosage,
		medicine.DefaultTiming,
		medicine.InteractionGroup,
		status,
		minAge,
		maxAge,
		reason,
		pq.StringArray(medicine.IncompatibleWith),
		medicine.CreatedAt,
		medicine.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medicine: %w", err)
	}
	return nil
}

func (r *medicineRepository) Get(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	query := `SELECT * FROM medicines WHERE id = $1`
	var row medicineRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}
	return row.toModel(), nil
}

func (r *medicineRepository) GetByName(ctx context.Context, name string) (*model.Medicine, error) {
	query := `SELECT * FROM medicines WHERE LOWER(name) = LOWER($1)`
	var row medicineRow
	err := r.db.GetContext(ctx, &row, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medicine by name: %w", err)
	}
	return row.toModel(), nil
}

func (r *medicineRepository) Update(ctx context.Context, medicine *model.Medicine) error {
	query := `
		UPDATE medicines
		SET name = $1, category = $2, default_dosage = $3, default_timing = $4, interaction_group = $5,
			restriction_status = $6, restriction_min_age = $7, restriction_max_age = $8,
			restriction_reason = $9, incompatible_with = $10, updated_at = $11
		WHERE id = $12
	`
	status, minAge, maxAge, reason := restrictionColumns(medicine)
	_, err := r.db.ExecContext(ctx, query,
		medicine.Name,
		medicine.Category,
		medicine.DefaultDosage,
		medicine.DefaultTiming,
		medicine.InteractionGroup,
		status,
		minAge,
		maxAge,
		reason,
		pq.StringArray(medicine.IncompatibleWith),
		time.Now(),
		medicine.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update medicine: %w", err)
	}
	return nil
}

func (r *medicineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM medicines WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *medicineRepository) List(ctx context.Context, filters *model.MedicineFilters) ([]*model.Medicine, error) {
	query := `SELECT * FROM medicines WHERE 1=1`
	args := []interface{}{}

	if filters != nil && filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	if filters != nil && filters.Category != "" {
		args = append(args, filters.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	query += " ORDER BY name"
	if filters != nil && filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var rows []medicineRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list medicines: %w", err)
	}

	medicines := make([]*model.Medicine, 0, len(rows))
	for _, row := range rows {
		medicines = append(medicines, row.toModel())
	}
	return medicines, nil
}

func (r *medicineRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM medicines`); err != nil {
		return 0, fmt.Errorf("failed to count medicines: %w", err)
	}
	return count, nil
}
