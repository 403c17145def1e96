package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/repository"
	"github.com/meddoc/clinic-api/pkg/logger"
)

// Service writes the append-only audit trail. Override decisions on
// safety notifications are the primary client; entity lifecycle events
// use it too.
type Service struct {
	repo   repository.AuditRepository
	logger *logger.Logger
}

func NewService(repo repository.AuditRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

func (s *Service) Log(ctx context.Context, action, entityType, entityID string, changes interface{}, reason string) error {
	entry := &model.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Reason:     reason,
	}
	if changes != nil {
		raw, err := json.Marshal(changes)
		if err != nil {
			return fmt.Errorf("failed to marshal audit changes: %w", err)
		}
		entry.Changes = raw
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, filters)
}

// Cleanup deletes entries older than the retention window.
func (s *Service) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 365
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := s.repo.Cleanup(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("audit logs cleaned up", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}
