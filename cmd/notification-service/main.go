package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/shophub/internal/config"
	"github.com/dmehra2102/shophub/pkg/idempotency"
	"github.com/dmehra2102/shophub/pkg/logging"
	"github.com/dmehra2102/shophub/pkg/metrics"
	"github.com/dmehra2102/shophub/pkg/shutdown"
	"github.com/dmehra2102/shophub/pkg/tracing"

	notifapp "github.com/dmehra2102/shophub/internal/notification/application"
	notifinfra "github.com/dmehra2102/shophub/internal/notification/infrastructure"
	notifkafka "github.com/dmehra2102/shophub/internal/notification/infrastructure/kafka"
	orderpg "github.com/dmehra2102/shophub/internal/order/infrastructure/postgres"
)

const service = "notification-service"

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

	m := metrics.New(prometheus.DefaultRegisterer, "notification")

	// The worker reads customers and products from the same database the
	// storefront writes orders to.
	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	repo := orderpg.NewRepository(log, pool)

	var idem notifkafka.Dedup
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		idem = idempotency.NewStore(rdb, cfg.IdempotencyTTL)
	} else {
		log.Warn("REDIS_ADDR not set, redelivered messages are processed again")
	}

	composer := notifinfra.NewComposer(log, cfg, repo, repo, m)
	router := notifapp.NewDefaultRouter(log, composer, notifapp.NewFeedbackProcessor(log))

	reader := notifkafka.NewReader(cfg.KafkaBrokers, cfg.EventsTopic, cfg.ConsumerGroup)
	consumer := notifkafka.NewConsumer(log, reader, router, idem)

	// Metrics only; the worker has no public API.
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "err", err)
		}
	}()

	log.Info("consumer starting", "topic", cfg.EventsTopic, "group", cfg.ConsumerGroup)
	if err := consumer.Run(ctx); err != nil {
		log.Error("consumer stopped with error", "err", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("notification-service shutdown complete")
}
