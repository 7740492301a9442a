package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserverMethods(t *testing.T) {
	m := New(prometheus.NewRegistry(), "test")

	m.Checkout("created")
	m.Checkout("created")
	m.SkippedLine()
	m.Published("order.created", "ok")
	m.Confirmation("sent", "fallback")
	m.OutboxResult("sent")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Checkouts.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedLines))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("order.created", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Confirmations.WithLabelValues("sent", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outbox.WithLabelValues("sent")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry(), "test")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/products/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/7", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/products/{id}", "418")))
}
