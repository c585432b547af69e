package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"blockwatch/internal/config"
)

// EmailNotifier delivers notifications over SMTP. Rendering stays plain
// text; the pipeline already formats the body.
type EmailNotifier struct {
	cfg    config.EmailConfig
	dialer *gomail.Dialer
	logger *zap.Logger
}

func NewEmail(cfg config.EmailConfig, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Sender, cfg.Password),
		logger: logger,
	}
}

func (e *EmailNotifier) Notify(_ context.Context, n Notification) error {
	recipients := e.cfg.Recipients
	if n.Recipients == RecipientsTest {
		recipients = e.cfg.TestRecipients
	}
	if len(recipients) == 0 {
		return fmt.Errorf("notify: no %s recipients configured", n.Recipients)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.Sender)
	m.SetHeader("To", recipients...)
	m.SetHeader("Subject", n.Subject)
	m.SetBody("text/plain", n.Body)

	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("notify: smtp send %q: %w", n.Subject, err)
	}
	e.logger.Info("notification sent",
		zap.String("kind", string(n.Kind)),
		zap.String("subject", n.Subject),
		zap.Int("recipients", len(recipients)))
	return nil
}
