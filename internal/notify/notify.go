// Package notify delivers the run report to operators.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/hudmol/yale-accession-marc-export/config"
	"github.com/hudmol/yale-accession-marc-export/internal/export"
)

// EmailNotifier mails the run report after each round.
type EmailNotifier struct {
	cfg config.EmailConfig
}

func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg}
}

func (n *EmailNotifier) Notify(report string, status string, at time.Time) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.To...)
	m.SetHeader("Subject", fmt.Sprintf("AccessionMarcExporter report - %s", status))
	m.SetBody("text/plain", fmt.Sprintf("Run finished at %s\n\n%s", at.Format(time.RFC3339), report))

	d := gomail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.Username, n.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("sending report email: %w", err)
	}

	return nil
}

// LogNotifier is used when email is not configured; the report already went
// line by line to the application log, so only the outcome is recorded here.
type LogNotifier struct{}

func (LogNotifier) Notify(report string, status string, at time.Time) error {
	slog.Info("AccessionMarcExporter round report", "status", status, "finished_at", at)
	return nil
}

// ForConfig picks the notifier matching the email configuration.
func ForConfig(cfg config.EmailConfig) export.Notifier {
	if cfg.Enabled {
		return NewEmailNotifier(cfg)
	}
	return LogNotifier{}
}
