package worker

import (
	"context"
	"time"

	"github.com/meddoc/clinic-api/internal/service/audit"
	"github.com/meddoc/clinic-api/pkg/logger"
)

// AuditCleanupWorker prunes audit entries past the retention window.
type AuditCleanupWorker struct {
	audit           *audit.Service
	retentionDays   int
	cleanupInterval time.Duration
	logger          *logger.Logger
}

func NewAuditCleanupWorker(auditSvc *audit.Service, retentionDays int, cleanupInterval time.Duration, log *logger.Logger) *AuditCleanupWorker {
	if cleanupInterval <= 0 {
		cleanupInterval = 24 * time.Hour
	}
	return &AuditCleanupWorker{
		audit:           auditSvc,
		retentionDays:   retentionDays,
		cleanupInterval: cleanupInterval,
		logger:          log,
	}
}

func (w *AuditCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.audit.Cleanup(ctx, w.retentionDays); err != nil {
				w.logger.Error(err, "audit cleanup failed")
			}
		}
	}
}
