package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/repository"
)

type reportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) repository.ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *model.DailyReport) error {
	// Archiving the same day twice replaces the earlier report.
	query := `
		INSERT INTO daily_reports (date, total_revenue, prescriptions_count, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (date) DO UPDATE
		SET total_revenue = EXCLUDED.total_revenue,
			prescriptions_count = EXCLUDED.prescriptions_count,
			created_at = EXCLUDED.created_at
	`
	report.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query, report.Date, report.TotalRevenue, report.PrescriptionsCount, report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create daily report: %w", err)
	}
	return nil
}

func (r *reportRepository) List(ctx context.Context) ([]*model.DailyReport, error) {
	query := `SELECT * FROM daily_reports ORDER BY date DESC`
	var reports []*model.DailyReport
	if err := r.db.SelectContext(ctx, &reports, query); err != nil {
		return nil, fmt.Errorf("failed to list daily reports: %w", err)
	}
	return reports, nil
}

func (r *reportRepository) GetByDate(ctx context.Context, date string) (*model.DailyReport, error) {
	query := `SELECT * FROM daily_reports WHERE date = $1`
	var report model.DailyReport
	if err := r.db.GetContext(ctx, &report, query, date); err != nil {
		return nil, fmt.Errorf("failed to get daily report: %w", err)
	}
	return &report, nil
}

func (r *reportRepository) GetLastBackup(ctx context.Context) (*time.Time, error) {
	var at time.Time
	err := r.db.GetContext(ctx, &at, `SELECT backed_up_at FROM backup_markers ORDER BY backed_up_at DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last backup: %w", err)
	}
	return &at, nil
}

func (r *reportRepository) SetLastBackup(ctx context.Context, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO backup_markers (backed_up_at) VALUES ($1)`, at)
	if err != nil {
		return fmt.Errorf("failed to record backup: %w", err)
	}
	return nil
}
