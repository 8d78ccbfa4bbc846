package email

import (
	"context"
	"errors"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

type GomailProvider struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewGomailProvider(cfg SMTPConfig) *GomailProvider {
	return &GomailProvider{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (p *GomailProvider) Send(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return errors.New("email has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := p.buildMessage(email)
	return p.dialer.DialAndSend(m)
}

func (p *GomailProvider) buildMessage(email *Email) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.cfg.FromEmail, p.cfg.FromName)
	// получатели скрыты друг от друга
	m.SetHeader("To", p.cfg.FromEmail)
	m.SetHeader("Bcc", email.To...)
	m.SetHeader("Subject", email.Subject)

	if email.Body != "" {
		m.SetBody("text/plain", email.Body)
		if email.HTMLBody != "" {
			m.AddAlternative("text/html", email.HTMLBody)
		}
	} else {
		m.SetBody("text/html", email.HTMLBody)
	}
	return m
}
