package memstore

import (
	"context"

	"github.com/dmehra2102/shophub/internal/feedback/domain"
)

type Feedback struct {
	db *DB
}

func (f *Feedback) Create(_ context.Context, fb domain.Feedback) (domain.Feedback, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	fb.ID = f.db.next()
	f.db.feedback = append(f.db.feedback, fb)
	return fb, nil
}

// List walks the append-only slice backwards, newest first.
func (f *Feedback) List(_ context.Context, limit int) ([]domain.Feedback, error) {
	f.db.mu.RLock()
	defer f.db.mu.RUnlock()
	out := []domain.Feedback{}
	for i := len(f.db.feedback) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.db.feedback[i])
	}
	return out, nil
}
