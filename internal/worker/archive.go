package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meddoc/clinic-api/internal/service/report"
	"github.com/meddoc/clinic-api/pkg/logger"
)

// ArchiveWorker runs the end-of-day close: at the configured hour it
// rolls the day's prescriptions into a report, clears the queue and
// writes a backup file to disk.
type ArchiveWorker struct {
	reports   *report.Service
	hour      int
	backupDir string
	logger    *logger.Logger
}

func NewArchiveWorker(reports *report.Service, hour int, backupDir string, log *logger.Logger) *ArchiveWorker {
	if hour < 0 || hour > 23 {
		hour = 20
	}
	return &ArchiveWorker{
		reports:   reports,
		hour:      hour,
		backupDir: backupDir,
		logger:    log,
	}
}

func (w *ArchiveWorker) Start(ctx context.Context) {
	w.logger.Info("archive worker started", "hour", w.hour)
	for {
		wait := time.Until(w.nextRun(time.Now()))
		select {
		case <-ctx.Done():
			w.logger.Info("archive worker shutting down")
			return
		case <-time.After(wait):
			if err := w.run(ctx); err != nil {
				w.logger.Error(err, "archive run failed")
			}
		}
	}
}

func (w *ArchiveWorker) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), w.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (w *ArchiveWorker) run(ctx context.Context) error {
	day := time.Now()
	if _, err := w.reports.ArchiveDay(ctx, day); err != nil {
		return err
	}
	if w.backupDir == "" {
		return nil
	}
	return w.writeBackup(ctx, day)
}

func (w *ArchiveWorker) writeBackup(ctx context.Context, day time.Time) error {
	backup, err := w.reports.ExportBackup(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(w.backupDir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := filepath.Join(w.backupDir, fmt.Sprintf("backup-%s.json", day.Format("2006-01-02")))
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}

	w.logger.Info("backup written", "path", path)
	return nil
}
