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

type auditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	log.CreatedAt = time.Now()

	query := `
		INSERT INTO audit_logs (id, action, entity_type, entity_id, changes, metadata, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.Action,
		log.EntityType,
		log.EntityID,
		log.Changes,
		log.Metadata,
		log.Reason,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	query := `SELECT * FROM audit_logs WHERE 1=1`
	args := []interface{}{}

	if v, ok := filters["entity_type"]; ok {
		args = append(args, v)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if v, ok := filters["entity_id"]; ok {
		args = append(args, v)
		query += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}
	if v, ok := filters["action"]; ok {
		args = append(args, v)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if v, ok := filters["limit"]; ok {
		args = append(args, v)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var logs []*model.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

func (r *auditRepository) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}
	return result.RowsAffected()
}
