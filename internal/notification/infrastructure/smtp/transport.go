// Package smtp delivers confirmation mails with go-mail.
package smtp

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/dmehra2102/shophub/internal/notification/application"
)

type Config struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, msgs ...*mail.Msg) error
}

type Transport struct {
	client sender
	from   string
}

// NewTransport uses implicit TLS on port 465 and opportunistic STARTTLS on
// any other port.
func NewTransport(cfg Config) (*Transport, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Pass),
		mail.WithTimeout(30 * time.Second),
	}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &Transport{client: client, from: from}, nil
}

func (t *Transport) Send(ctx context.Context, m application.Mail) (string, error) {
	msg, err := t.build(m)
	if err != nil {
		return "", err
	}
	if err := t.client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return msg.GetMessageID(), nil
}

func (t *Transport) build(m application.Mail) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(t.from); err != nil {
		return nil, fmt.Errorf("smtp from %q: %w", t.from, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("smtp to %q: %w", m.To, err)
	}
	msg.Subject(m.Subject)
	msg.SetMessageID()
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	return msg, nil
}
