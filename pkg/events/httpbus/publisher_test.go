package httpbus

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/shophub/pkg/events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublish_SendsBearerAuthenticatedEnvelope(t *testing.T) {
	var got struct {
		auth string
		body map[string]json.RawMessage
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got.body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPublisher(discardLogger(), srv.Client(), srv.URL, "secret")
	ev, err := events.New(events.OrderCreated, "1", map[string]string{"email": "a@b.com"})
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), ev))

	assert.Equal(t, "Bearer secret", got.auth)
	assert.JSONEq(t, `"order.created"`, string(got.body["name"]))
	assert.JSONEq(t, `{"email":"a@b.com"}`, string(got.body["data"]))
}

func TestPublish_NoTokenIsNoop(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	p := NewPublisher(discardLogger(), srv.Client(), srv.URL, "")
	ev, err := events.New(events.OrderCreated, "1", struct{}{})
	require.NoError(t, err)

	assert.NoError(t, p.Publish(context.Background(), ev))
	assert.Zero(t, calls.Load())
}

func TestPublish_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewPublisher(discardLogger(), srv.Client(), srv.URL, "secret")
	ev, err := events.New(events.OrderCreated, "1", struct{}{})
	require.NoError(t, err)

	err = p.Publish(context.Background(), ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
