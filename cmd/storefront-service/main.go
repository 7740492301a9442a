package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmehra2102/shophub/internal/config"
	"github.com/dmehra2102/shophub/internal/memstore"
	"github.com/dmehra2102/shophub/migrations"
	"github.com/dmehra2102/shophub/pkg/events"
	"github.com/dmehra2102/shophub/pkg/events/httpbus"
	"github.com/dmehra2102/shophub/pkg/idempotency"
	"github.com/dmehra2102/shophub/pkg/logging"
	"github.com/dmehra2102/shophub/pkg/metrics"
	"github.com/dmehra2102/shophub/pkg/outbox"
	"github.com/dmehra2102/shophub/pkg/shutdown"
	"github.com/dmehra2102/shophub/pkg/tracing"

	catalogapp "github.com/dmehra2102/shophub/internal/catalog/application"
	cataloghttp "github.com/dmehra2102/shophub/internal/catalog/infrastructure/http"
	catalogpg "github.com/dmehra2102/shophub/internal/catalog/infrastructure/postgres"
	catalogredis "github.com/dmehra2102/shophub/internal/catalog/infrastructure/redis"
	feedbackapp "github.com/dmehra2102/shophub/internal/feedback/application"
	feedbackhttp "github.com/dmehra2102/shophub/internal/feedback/infrastructure/http"
	feedbackpg "github.com/dmehra2102/shophub/internal/feedback/infrastructure/postgres"
	notifapp "github.com/dmehra2102/shophub/internal/notification/application"
	notifinfra "github.com/dmehra2102/shophub/internal/notification/infrastructure"
	notifhttp "github.com/dmehra2102/shophub/internal/notification/infrastructure/http"
	orderapp "github.com/dmehra2102/shophub/internal/order/application"
	orderhttp "github.com/dmehra2102/shophub/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/shophub/internal/order/infrastructure/kafka"
	orderpg "github.com/dmehra2102/shophub/internal/order/infrastructure/postgres"
)

const service = "storefront-service"

// stores is the storage backend picked by STORAGE.
type stores struct {
	orders    orderapp.Store
	customers notifapp.CustomerReader
	products  notifapp.ProductReader
	catalog   catalogapp.Store
	feedback  feedbackapp.Store
	outbox    *orderpg.OutboxStore
	ping      func(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	log := logging.New(cfg.LogLevel)
	if err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, service, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	m := metrics.New(prometheus.DefaultRegisterer, "storefront")

	// Storage
	st, closeStores, err := openStores(ctx, log, cfg)
	if err != nil {
		log.Error("storage init failed", "err", err, "storage", cfg.Storage)
		os.Exit(1)
	}
	defer closeStores()

	// Redis is optional: without it the catalog reads the store directly and
	// webhook deliveries are not de-duplicated.
	var (
		cache catalogapp.Cache
		dedup notifhttp.Dedup
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		cache = catalogredis.NewCache(rdb, cfg.Catalog.CacheTTL)
		dedup = idempotency.NewStore(rdb, cfg.IdempotencyTTL)
	}

	// Notification pipeline
	router := notifapp.NewDefaultRouter(log, notifinfra.NewComposer(log, cfg, st.customers, st.products, m), notifapp.NewFeedbackProcessor(log))

	// Publisher
	pub, stopPublisher := newPublisher(ctx, log, cfg, st, router, m)
	defer stopPublisher()

	orderOpts := []orderapp.Option{orderapp.WithObserver(m)}
	if cfg.EventsMode == config.EventsOutbox {
		orderOpts = append(orderOpts, orderapp.WithTxOutbox(service))
	}
	orders := orderapp.NewService(log, st.orders, pub, orderOpts...)
	catalog := catalogapp.NewService(log, st.catalog, cache)
	feedback := feedbackapp.NewService(log, st.feedback, pub)
	catalog.Invalidate(ctx)

	// HTTP
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, m.Middleware)
	r.Get("/health", health(st.ping))
	r.Handle("/metrics", metrics.Handler())
	r.Route("/api", func(api chi.Router) {
		orderhttp.NewHandler(log, orders).Register(api)
		cataloghttp.NewHandler(log, catalog).Register(api)
		feedbackhttp.NewHandler(log, feedback).Register(api)
		notifhttp.NewHandler(log, router, dedup).Register(api)
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      otelhttp.NewHandler(r, service),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "storage", cfg.Storage, "events_mode", cfg.EventsMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	orders.Wait()
	feedback.Wait()
	log.Info("storefront-service shutdown complete")
}

func openStores(ctx context.Context, log *slog.Logger, cfg config.Config) (stores, func(), error) {
	if cfg.Storage == config.StorageMemory {
		db := memstore.NewSeeded()
		orders := db.Orders()
		log.Warn("running with in-memory storage, data is lost on exit")
		return stores{
			orders:    orders,
			customers: orders,
			products:  orders,
			catalog:   db.Catalog(),
			feedback:  db.Feedback(),
			ping:      func(context.Context) error { return nil },
		}, func() {}, nil
	}

	if err := migrations.Up(cfg.PGURL); err != nil {
		return stores{}, nil, err
	}
	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		return stores{}, nil, err
	}
	repo := orderpg.NewRepository(log, pool)
	return stores{
		orders:    repo,
		customers: repo,
		products:  repo,
		catalog:   catalogpg.NewStore(pool),
		feedback:  feedbackpg.NewStore(pool),
		outbox:    orderpg.NewOutboxStore(log, pool),
		ping:      pool.Ping,
	}, pool.Close, nil
}

// newPublisher returns the single publisher for EVENTS_MODE. In outbox mode
// it also starts the relay; the returned func stops what was started.
func newPublisher(ctx context.Context, log *slog.Logger, cfg config.Config, st stores, router *notifapp.Router, m *metrics.Metrics) (events.Publisher, func()) {
	switch cfg.EventsMode {
	case config.EventsOutbox:
		writer := orderkafka.NewWriter(cfg.KafkaBrokers)
		dispatch := outbox.NewDispatcher(log, writer, cfg.EventsTopic)
		relay := outbox.NewRelay(log, st.outbox, dispatch, service+"-relay", outbox.WithObserver(m.OutboxResult))
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error("relay stopped with error", "err", err)
			}
		}()
		return outbox.NewPublisher(st.outbox, service), func() { _ = writer.Close() }
	case config.EventsBus:
		return httpbus.NewPublisher(log, nil, cfg.EventBusURL, cfg.EventBusToken), func() {}
	default:
		return notifapp.NewDirectPublisher(log, router), func() {}
	}
}

func health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
