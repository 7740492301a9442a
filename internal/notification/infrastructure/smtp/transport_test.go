package smtp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/dmehra2102/shophub/internal/notification/application"
)

type captureSender struct {
	msgs []*mail.Msg
	err  error
}

func (c *captureSender) DialAndSendWithContext(_ context.Context, msgs ...*mail.Msg) error {
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

var testMail = application.Mail{
	To:      "a@b.com",
	Subject: "Order Confirmation #42",
	Text:    "Hello Customer",
	HTML:    "<p>Hello Customer</p>",
}

func TestTransport_Send(t *testing.T) {
	sender := &captureSender{}
	tr := &Transport{client: sender, from: "shop@example.com"}

	id, err := tr.Send(context.Background(), testMail)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, sender.msgs, 1)
	msg := sender.msgs[0]
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@b.com"}, rcpts)
	assert.Equal(t, []string{"Order Confirmation #42"}, msg.GetGenHeader(mail.HeaderSubject))
	assert.Equal(t, id, msg.GetMessageID())
}

func TestTransport_DistinctMessageIDs(t *testing.T) {
	tr := &Transport{client: &captureSender{}, from: "shop@example.com"}

	a, err := tr.Send(context.Background(), testMail)
	require.NoError(t, err)
	b, err := tr.Send(context.Background(), testMail)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTransport_Errors(t *testing.T) {
	tr := &Transport{client: &captureSender{err: errors.New("connection refused")}, from: "shop@example.com"}
	_, err := tr.Send(context.Background(), testMail)
	assert.ErrorContains(t, err, "connection refused")

	tr = &Transport{client: &captureSender{}, from: "shop@example.com"}
	bad := testMail
	bad.To = "not an address"
	_, err = tr.Send(context.Background(), bad)
	assert.Error(t, err)
}

func TestNewTransport(t *testing.T) {
	for _, port := range []int{465, 587} {
		tr, err := NewTransport(Config{Host: "smtp.example.com", Port: port, User: "u@example.com", Pass: "p"})
		require.NoError(t, err)
		assert.Equal(t, "u@example.com", tr.from)
	}
}
