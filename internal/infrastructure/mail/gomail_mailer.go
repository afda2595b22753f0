// Package mail sends outbound messages over SMTP.
package mail

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg SMTPConfig
	log *logger.Logger
}

func NewSMTPMailer(cfg SMTPConfig, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log}
}

// Send delivers one message synchronously. The context is honored up front;
// gomail itself does not support cancellation mid-dial.
func (m *SMTPMailer) Send(ctx context.Context, msg port.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := gomail.NewMessage()
	message.SetHeader("From", m.cfg.From)
	message.SetHeader("To", msg.To)
	message.SetHeader("Subject", msg.Subject)
	message.SetBody("text/plain", msg.Body)
	if msg.AttachmentPath != "" {
		message.Attach(msg.AttachmentPath)
	}

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}

	m.log.Info("Email sent",
		"to", msg.To,
		"subject", msg.Subject,
		"attachment", msg.AttachmentPath,
	)
	return nil
}
