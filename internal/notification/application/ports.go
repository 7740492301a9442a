package application

import (
	"context"

	"github.com/dmehra2102/shophub/internal/order/domain"
)

type CustomerReader interface {
	Customer(ctx context.Context, id int64) (domain.Customer, error)
}

type ProductReader interface {
	Product(ctx context.Context, id int64) (domain.Product, error)
}

// TextGenerator writes a mail body for a prompt. Any error means "use the
// fallback".
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Mail struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers a multipart mail and returns its Message-ID.
type Mailer interface {
	Send(ctx context.Context, m Mail) (string, error)
}

// Observer receives one call per composed confirmation.
type Observer interface {
	Confirmation(status, body string)
}

type nopObserver struct{}

func (nopObserver) Confirmation(string, string) {}
