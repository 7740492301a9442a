package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/shophub/internal/notification/application"
	"github.com/dmehra2102/shophub/pkg/events"
	"github.com/dmehra2102/shophub/pkg/idempotency"
)

type counter struct {
	calls int
	err   error
}

func (c *counter) handle(_ context.Context, ev events.Event) (any, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	var data map[string]any
	if err := ev.Decode(&data); err != nil {
		return nil, err
	}
	return map[string]any{"status": "no-smtp", "email": data["email"]}, nil
}

func newServer(t *testing.T, c *counter, dedup Dedup) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := application.NewRouter(log)
	router.Handle(c.handle, application.OrderCreatedNames...)
	router.Handle(c.handle, application.FeedbackCreatedNames...)
	srv := httptest.NewServer(NewHandler(log, router, dedup).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestIngest_EnvelopeShapes(t *testing.T) {
	bodies := map[string]string{
		"wrapped":     `{"event":{"name":"order.created","data":{"email":"a@b.com"}}}`,
		"flat":        `{"name":"order.created","data":{"email":"a@b.com"}}`,
		"alias":       `{"name":"order.create","data":{"email":"a@b.com"}}`,
		"outer name":  `{"name":"order.created","event":{"data":{"email":"a@b.com"}}}`,
		"bare w/name": `{"name":"order.created","email":"a@b.com"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := &counter{}
			srv := newServer(t, c, nil)

			status, out := post(t, srv.URL+"/ingest/order-created", body)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, true, out["ok"])
			assert.Equal(t, "a@b.com", out["result"].(map[string]any)["email"])
			assert.Equal(t, 1, c.calls)
		})
	}
}

func TestIngest_UnknownEventIs204(t *testing.T) {
	c := &counter{}
	srv := newServer(t, c, nil)

	for _, body := range []string{`{"name":"unrelated.event"}`, `{"email":"a@b.com"}`, `{"name":"feedback.created","data":{}}`} {
		resp, err := http.Post(srv.URL+"/ingest/order-created", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode, body)
	}
	assert.Zero(t, c.calls)
}

func TestIngest_Failures(t *testing.T) {
	c := &counter{err: errors.New("smtp refused")}
	srv := newServer(t, c, nil)

	status, out := post(t, srv.URL+"/ingest/order-created", `{"name":"order.created","data":{}}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "processing failed", out["error"])

	status, out = post(t, srv.URL+"/ingest/order-created", `{"name":`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "processing failed", out["error"])
}

func TestIngest_FeedbackRoute(t *testing.T) {
	c := &counter{}
	srv := newServer(t, c, nil)

	status, _ := post(t, srv.URL+"/ingest/feedback-created", `{"name":"feedback.create","data":{"feedback":{"id":1}}}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, c.calls)
}

func TestIngest_DuplicateEnvelopeID(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	c := &counter{}
	srv := newServer(t, c, idempotency.NewStore(rdb, time.Hour))
	body := `{"id":"evt-1","name":"order.created","data":{"email":"a@b.com"}}`

	status, _ := post(t, srv.URL+"/ingest/order-created", body)
	assert.Equal(t, http.StatusOK, status)
	status, out := post(t, srv.URL+"/ingest/order-created", body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, out["duplicate"])
	assert.Equal(t, 1, c.calls)

	status, _ = post(t, srv.URL+"/ingest/order-created", `{"name":"order.created","data":{"email":"a@b.com"}}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, c.calls)
}

func TestIngest_FailedDeliveryCanRetry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	c := &counter{err: errors.New("smtp refused")}
	srv := newServer(t, c, idempotency.NewStore(rdb, time.Hour))
	body := `{"id":"evt-2","name":"order.created","data":{"email":"a@b.com"}}`

	status, _ := post(t, srv.URL+"/ingest/order-created", body)
	assert.Equal(t, http.StatusInternalServerError, status)

	c.err = nil
	status, out := post(t, srv.URL+"/ingest/order-created", body)
	assert.Equal(t, http.StatusOK, status)
	assert.NotContains(t, out, "duplicate")
	assert.Equal(t, 2, c.calls)
}

func TestIngest_InFlightDeliveryIsConflict(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := idempotency.NewStore(rdb, time.Hour)
	c := &counter{}
	srv := newServer(t, c, store)
	body := `{"id":"evt-3","name":"order.created","data":{"email":"a@b.com"}}`
	key := idempotency.EventKey(events.OrderCreated, "evt-3")

	// Another worker holds the claim.
	state, err := store.Begin(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, idempotency.StateNew, state)

	status, out := post(t, srv.URL+"/ingest/order-created", body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "delivery in progress", out["error"])
	assert.Zero(t, c.calls)

	// It fails and releases; the retry gets through and confirms.
	require.NoError(t, store.Forget(context.Background(), key))
	status, out = post(t, srv.URL+"/ingest/order-created", body)
	assert.Equal(t, http.StatusOK, status)
	assert.NotContains(t, out, "duplicate")
	assert.Equal(t, 1, c.calls)

	state, err = store.Begin(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, idempotency.StateDone, state)
}

func TestIngest_WrongTypedEnvelopeIs204(t *testing.T) {
	c := &counter{}
	srv := newServer(t, c, nil)

	for _, body := range []string{`{"name":5}`, `{"event":"order.created"}`, `{"event":{"name":true}}`} {
		status, _ := post(t, srv.URL+"/ingest/order-created", body)
		assert.Equal(t, http.StatusNoContent, status, body)
	}
	assert.Zero(t, c.calls)
}
