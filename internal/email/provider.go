package email

import (
	"context"
	"sync"

	"workforce_backend/internal/config"
	"workforce_backend/internal/logger"
)

// Email - исходящее письмо
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// Provider отправляет письма
type Provider interface {
	Send(ctx context.Context, email *Email) error
}

// NewProvider: без SMTP_HOST письма только логируются
func NewProvider(cfg *config.Config) Provider {
	if cfg.Email.SMTPHost == "" {
		logger.Warn("SMTP не настроен, письма отправляться не будут")
		return &NoopProvider{}
	}
	return NewGomailProvider(SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
	})
}

// NoopProvider запоминает письма; используется без SMTP и в тестах
type NoopProvider struct {
	mu   sync.Mutex
	sent []Email
}

func (p *NoopProvider) Send(ctx context.Context, email *Email) error {
	logger.CtxDebug(ctx, "email skipped (noop provider)", "to", email.To, "subject", email.Subject)
	p.mu.Lock()
	p.sent = append(p.sent, *email)
	p.mu.Unlock()
	return nil
}

func (p *NoopProvider) Sent() []Email {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Email, len(p.sent))
	copy(out, p.sent)
	return out
}
