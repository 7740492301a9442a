// Package acceptance drives the storefront HTTP API end to end against the
// in-memory stores.
package acceptance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cucumber/godog"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/shophub/internal/memstore"
	"github.com/dmehra2102/shophub/pkg/events"

	feedbackapp "github.com/dmehra2102/shophub/internal/feedback/application"
	feedbackhttp "github.com/dmehra2102/shophub/internal/feedback/infrastructure/http"
	notifapp "github.com/dmehra2102/shophub/internal/notification/application"
	notifhttp "github.com/dmehra2102/shophub/internal/notification/infrastructure/http"
	orderapp "github.com/dmehra2102/shophub/internal/order/application"
	"github.com/dmehra2102/shophub/internal/order/domain"
	orderhttp "github.com/dmehra2102/shophub/internal/order/infrastructure/http"
)

type confirmations struct {
	mu       sync.Mutex
	statuses []string
}

func (c *confirmations) Confirmation(status, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, status)
}

func (c *confirmations) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statuses...)
}

type storefront struct {
	db       *memstore.DB
	srv      *httptest.Server
	orders   *orderapp.Service
	feedback *feedbackapp.Service
	confirms *confirmations

	status   int
	body     []byte
	customer domain.Customer
}

func (s *storefront) start(ctx context.Context) (context.Context, error) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.db = memstore.NewSeeded()
	s.confirms = &confirmations{}
	orders := s.db.Orders()

	composer := notifapp.NewComposer(log, orders, orders, notifapp.WithComposerObserver(s.confirms))
	router := notifapp.NewDefaultRouter(log, composer, notifapp.NewFeedbackProcessor(log))
	pub := notifapp.NewDirectPublisher(log, router)

	s.orders = orderapp.NewService(log, orders, pub)
	s.feedback = feedbackapp.NewService(log, s.db.Feedback(), pub)

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		orderhttp.NewHandler(log, s.orders).Register(api)
		feedbackhttp.NewHandler(log, s.feedback).Register(api)
		notifhttp.NewHandler(log, router, nil).Register(api)
	})
	s.srv = httptest.NewServer(r)
	return ctx, nil
}

func (s *storefront) stop() {
	if s.srv != nil {
		s.srv.Close()
	}
}

func (s *storefront) post(path string, body []byte) error {
	resp, err := http.Post(s.srv.URL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	s.status = resp.StatusCode
	s.body, err = io.ReadAll(resp.Body)
	s.orders.Wait()
	s.feedback.Wait()
	return err
}

func (s *storefront) checkout(email string, qty int, productID int64) error {
	body, err := json.Marshal(map[string]any{
		"email": email,
		"items": []domain.CartLine{{ProductID: productID, Quantity: qty}},
	})
	if err != nil {
		return err
	}
	return s.post("/api/checkout", body)
}

func (s *storefront) postDoc(path string, doc *godog.DocString) error {
	return s.post(path, []byte(doc.Content))
}

func (s *storefront) statusIs(want int) error {
	if s.status != want {
		return fmt.Errorf("status %d, want %d (body %s)", s.status, want, s.body)
	}
	return nil
}

type orderBody struct {
	Order struct {
		ID     int64   `json:"id"`
		Total  float64 `json:"total"`
		Status string  `json:"status"`
	} `json:"order"`
}

func (s *storefront) order() (orderBody, error) {
	var ob orderBody
	if err := json.Unmarshal(s.body, &ob); err != nil {
		return ob, fmt.Errorf("decode checkout response: %w", err)
	}
	return ob, nil
}

func (s *storefront) totalIs(want string) error {
	ob, err := s.order()
	if err != nil {
		return err
	}
	if got := decimal.NewFromFloat(ob.Order.Total); !got.Equal(decimal.RequireFromString(want)) {
		return fmt.Errorf("total %s, want %s", got, want)
	}
	return nil
}

func (s *storefront) orderStatusIs(want string) error {
	ob, err := s.order()
	if err != nil {
		return err
	}
	if ob.Order.Status != want {
		return fmt.Errorf("status %q, want %q", ob.Order.Status, want)
	}
	return nil
}

func (s *storefront) lines() ([]domain.OrderLine, error) {
	ob, err := s.order()
	if err != nil {
		return nil, err
	}
	_, lines, err := s.db.Orders().Order(context.Background(), ob.Order.ID)
	return lines, err
}

func (s *storefront) hasLine(n int, productID int64, qty int, price string) error {
	lines, err := s.lines()
	if err != nil {
		return err
	}
	if len(lines) != n {
		return fmt.Errorf("%d lines, want %d", len(lines), n)
	}
	l := lines[0]
	if l.ProductID != productID || l.Quantity != qty || !l.UnitPrice.Equal(decimal.RequireFromString(price)) {
		return fmt.Errorf("line %+v, want product %d x%d at %s", l, productID, qty, price)
	}
	return nil
}

func (s *storefront) hasNoLines() error {
	lines, err := s.lines()
	if err != nil {
		return err
	}
	if len(lines) != 0 {
		return fmt.Errorf("%d lines, want none", len(lines))
	}
	return nil
}

func (s *storefront) errorIs(want string) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(s.body, &body); err != nil {
		return err
	}
	if body.Error != want {
		return fmt.Errorf("error %q, want %q", body.Error, want)
	}
	return nil
}

func (s *storefront) noOrder() error {
	if n := s.db.Orders().Count(); n != 0 {
		return fmt.Errorf("%d orders exist", n)
	}
	return nil
}

func (s *storefront) confirmationRecorded(want string) error {
	got := s.confirms.all()
	if len(got) != 1 || got[0] != want {
		return fmt.Errorf("confirmations %v, want [%s]", got, want)
	}
	return nil
}

func (s *storefront) noConfirmation() error {
	if got := s.confirms.all(); len(got) != 0 {
		return fmt.Errorf("confirmations %v, want none", got)
	}
	return nil
}

func (s *storefront) aCustomer(first, last, email string) error {
	s.customer = s.db.AddCustomer(domain.Customer{Email: email, FirstName: first, LastName: last, Role: domain.RoleCustomer})
	return nil
}

func (s *storefront) orderWebhook(qty int, productID int64) error {
	ord := domain.NewOrder(s.customer.ID)
	ord.ID = 7
	ev, err := events.New(events.OrderCreated, "7", domain.OrderCreated{
		Order: ord,
		Items: []domain.CartLine{{ProductID: productID, Quantity: qty}},
		Email: s.customer.Email,
	})
	if err != nil {
		return err
	}
	body, err := json.Marshal(map[string]any{"event": ev})
	if err != nil {
		return err
	}
	return s.post("/api/ingest/order-created", body)
}

func (s *storefront) webhookResultIs(want string) error {
	var body struct {
		OK     bool `json:"ok"`
		Result struct {
			Status string `json:"status"`
		} `json:"result"`
	}
	if err := json.Unmarshal(s.body, &body); err != nil {
		return err
	}
	if !body.OK || body.Result.Status != want {
		return fmt.Errorf("webhook response %s, want result status %q", s.body, want)
	}
	return nil
}

func (s *storefront) latestFeedback(message, email string) error {
	list, err := s.db.Feedback().List(context.Background(), 1)
	if err != nil {
		return err
	}
	if len(list) != 1 || list[0].Message != message || list[0].Email != email {
		return fmt.Errorf("latest feedback %+v, want %q from %q", list, message, email)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	s := &storefront{}

	ctx.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		s.stop()
		return ctx, nil
	})

	ctx.Step(`^the storefront is running with in-memory storage$`, s.start)
	ctx.Step(`^a customer "([^"]*)" "([^"]*)" with email "([^"]*)"$`, s.aCustomer)

	ctx.Step(`^I check out as "([^"]*)" with (\d+) of product (\d+)$`, s.checkout)
	ctx.Step(`^I POST to "([^"]*)":$`, s.postDoc)
	ctx.Step(`^I post an order\.created webhook for that customer with (\d+) of product (\d+)$`, s.orderWebhook)

	ctx.Step(`^the response status is (\d+)$`, s.statusIs)
	ctx.Step(`^the response error is "([^"]*)"$`, s.errorIs)
	ctx.Step(`^the order total is (\d+\.\d+)$`, s.totalIs)
	ctx.Step(`^the order status is "([^"]*)"$`, s.orderStatusIs)
	ctx.Step(`^the order has (\d+) line for product (\d+) with quantity (\d+) at (\d+\.\d+)$`, s.hasLine)
	ctx.Step(`^the order has no lines$`, s.hasNoLines)
	ctx.Step(`^no order exists$`, s.noOrder)
	ctx.Step(`^a confirmation was recorded with status "([^"]*)"$`, s.confirmationRecorded)
	ctx.Step(`^no confirmation was recorded$`, s.noConfirmation)
	ctx.Step(`^the webhook result status is "([^"]*)"$`, s.webhookResultIs)
	ctx.Step(`^the latest feedback is "([^"]*)" from "([^"]*)"$`, s.latestFeedback)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
