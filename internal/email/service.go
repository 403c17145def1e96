// Package email sends the end-of-day report over SMTP.
package email

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/meddoc/clinic-api/internal/config"
	"github.com/meddoc/clinic-api/internal/model"
)

type Service struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

// NewService returns nil when SMTP is not configured, which disables
// report mail without special-casing callers.
func NewService(cfg config.SMTPConfig, to string) *Service {
	if cfg.Host == "" || to == "" {
		return nil
	}
	return &Service{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		to:     to,
	}
}

func (s *Service) SendDailyReport(report *model.DailyReport) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to)
	m.SetHeader("Subject", fmt.Sprintf("Rapport du %s", report.Date))
	m.SetBody("text/plain", fmt.Sprintf(
		"Journée du %s\n\nOrdonnances: %d\nRecette totale: %.2f\n",
		report.Date, report.PrescriptionsCount, report.TotalRevenue,
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send daily report: %w", err)
	}
	return nil
}
