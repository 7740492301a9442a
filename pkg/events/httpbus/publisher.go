// Package httpbus publishes events to an HTTP event bus endpoint that accepts
// {"name","data"} bodies authenticated with a bearer token.
package httpbus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/dmehra2102/shophub/pkg/events"
)

const DefaultURL = "https://api.inngest.com/api/v0/events"

type Publisher struct {
	log    *slog.Logger
	client *http.Client
	url    string
	token  string
	cb     *gobreaker.CircuitBreaker[struct{}]
}

func NewPublisher(log *slog.Logger, client *http.Client, url, token string) *Publisher {
	if url == "" {
		url = DefaultURL
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Publisher{
		log:    log,
		client: client,
		url:    url,
		token:  token,
		cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:    "event-bus",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Publish is a no-op when no token is configured.
func (p *Publisher) Publish(ctx context.Context, ev events.Event) error {
	if p.token == "" {
		p.log.Warn("event bus token not set, skipping event", "event", ev.Name)
		return nil
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Name, err)
	}
	p.log.Info("event published to bus", "event", ev.Name, "event_id", ev.ID)
	return nil
}

func (p *Publisher) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("event bus responded %d", resp.StatusCode)
	}
	return nil
}
