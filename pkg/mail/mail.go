package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/config"
)

// Sender delivers the transactional emails the app sends.
type Sender interface {
	SendMagicLink(ctx context.Context, to, link string) error
	SendWelcome(ctx context.Context, to, name, link string) error
}

// NewSender returns an SMTP sender, or a log-only sender when no SMTP host is
// configured.
func NewSender(cfg *config.MailConfig, logger *zap.Logger) Sender {
	if cfg.SMTPHost == "" {
		return &logSender{log: logger.With(zap.String("component", "mail"))}
	}
	return NewSMTP(cfg, logger)
}

// ── smtp ──

// SMTP sends plain-text mail through a relay.
type SMTP struct {
	addr    string
	auth    smtp.Auth
	from    string
	timeout time.Duration
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

	log *zap.Logger
}

// NewSMTP builds an SMTP sender from config.
func NewSMTP(cfg *config.MailConfig, logger *zap.Logger) *SMTP {
	var auth smtp.Auth
	if cfg.Username != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost)
	}
	return &SMTP{
		addr:    net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		auth:    auth,
		from:    cfg.From,
		timeout: 10 * time.Second,
		send:    smtp.SendMail,
		log:     logger.With(zap.String("component", "mail")),
	}
}

// SendMagicLink emails a single-use login link.
func (m *SMTP) SendMagicLink(ctx context.Context, to, link string) error {
	body := "Click the link below to sign in to Bear Valley Run Checks:\r\n\r\n" +
		link + "\r\n\r\n" +
		"This link expires in 15 minutes and can only be used once.\r\n" +
		"If you did not request it, you can ignore this email."
	return m.deliver(ctx, to, "Your Bear Valley Run Checks login link", body)
}

// SendWelcome emails a newly created user with a first login link.
func (m *SMTP) SendWelcome(ctx context.Context, to, name, link string) error {
	body := fmt.Sprintf("Hi %s,\r\n\r\n"+
		"An account has been created for you on Bear Valley Run Checks.\r\n"+
		"Use the link below to sign in:\r\n\r\n%s\r\n", name, link)
	return m.deliver(ctx, to, "Welcome to Bear Valley Run Checks", body)
}

func (m *SMTP) deliver(ctx context.Context, to, subject, body string) error {
	msg := buildMessage(m.from, to, subject, body)

	log := m.log.With(
		zap.String("smtp_addr", m.addr),
		zap.String("to", to),
		zap.String("subject", subject),
	)
	start := time.Now()

	done := make(chan error, 1)
	go func() { done <- m.send(m.addr, m.auth, m.from, []string{to}, msg) }()

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			log.Error("sendmail failed", zap.Error(err))
			return fmt.Errorf("send mail: %w", err)
		}
	case <-timer.C:
		log.Error("sendmail timed out", zap.Duration("timeout", m.timeout))
		return fmt.Errorf("send mail: timed out after %s", m.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	log.Info("email sent", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// ── log only ──

type logSender struct {
	log *zap.Logger
}

func (s *logSender) SendMagicLink(_ context.Context, to, link string) error {
	s.log.Info("smtp not configured, magic link not emailed", zap.String("to", to), zap.String("link", link))
	return nil
}

func (s *logSender) SendWelcome(_ context.Context, to, name, link string) error {
	s.log.Info("smtp not configured, welcome email not sent",
		zap.String("to", to), zap.String("name", name), zap.String("link", link))
	return nil
}
