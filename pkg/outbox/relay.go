package outbox

import (
	"context"
	"log/slog"
	"time"
)

type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error
}

// Observer is told the result of every dispatch attempt ("sent" or "failed").
type Observer func(result string)

type Relay struct {
	log       *slog.Logger
	store     Store
	dispatch  *Dispatcher
	relayID   string
	batchSize int
	chunkSize int
	interval  time.Duration
	lease     time.Duration
	observe   Observer
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option { return func(r *Relay) { r.interval = d } }
func WithBatchSize(n int) Option          { return func(r *Relay) { r.batchSize = n } }
func WithChunkSize(n int) Option          { return func(r *Relay) { r.chunkSize = max(n, 1) } }
func WithLease(d time.Duration) Option    { return func(r *Relay) { r.lease = d } }
func WithObserver(o Observer) Option      { return func(r *Relay) { r.observe = o } }

func NewRelay(log *slog.Logger, store Store, dispatch *Dispatcher, relayID string, opts ...Option) *Relay {
	r := &Relay{
		log:       log,
		store:     store,
		dispatch:  dispatch,
		relayID:   relayID,
		batchSize: 100,
		chunkSize: 20,
		interval:  500 * time.Millisecond,
		lease:     5 * time.Second,
		observe:   func(string) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.relayID)
			return nil
		case <-t.C:
			r.tick(ctx)
		}
	}
}

func (r *Relay) tick(ctx context.Context) {
	rows, err := r.store.LockBatch(ctx, r.relayID, r.batchSize, r.lease)
	if err != nil {
		r.log.Error("relay lock batch error", "err", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	locked := time.Now()
	sent := make([]int64, 0, len(rows))
	for start := 0; start < len(rows); start += r.chunkSize {
		if time.Since(locked) > r.lease/2 {
			if err := r.store.ExtendLease(ctx, r.relayID, ids(rows[start:]), r.lease); err != nil {
				r.log.Warn("relay extend lease error", "err", err)
			}
			locked = time.Now()
		}

		chunk := rows[start:min(start+r.chunkSize, len(rows))]
		for i, err := range r.dispatch.DispatchBatch(ctx, chunk) {
			if err != nil {
				r.observe("failed")
				if mErr := r.store.MarkFailed(ctx, chunk[i].ID, err.Error()); mErr != nil {
					r.log.Error("relay mark failed error", "outbox_id", chunk[i].ID, "err", mErr)
				}
				continue
			}
			r.observe("sent")
			sent = append(sent, chunk[i].ID)
		}
	}
	if len(sent) > 0 {
		if err := r.store.MarkSent(ctx, sent); err != nil {
			r.log.Error("relay mark sent error", "err", err)
		}
	}
}

func ids(rows []Event) []int64 {
	out := make([]int64, 0, len(rows))
	for _, e := range rows {
		out = append(out, e.ID)
	}
	return out
}
