package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/shophub/internal/feedback/domain"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Create(ctx context.Context, f domain.Feedback) (domain.Feedback, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO feedback (name, email, message, category, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`,
		f.Name, f.Email, f.Message, f.Category, f.CreatedAt).Scan(&f.ID, &f.CreatedAt)
	return f, err
}

func (s *Store) List(ctx context.Context, limit int) ([]domain.Feedback, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, message, category, created_at
		FROM feedback
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Feedback{}
	for rows.Next() {
		var f domain.Feedback
		if err := rows.Scan(&f.ID, &f.Name, &f.Email, &f.Message, &f.Category, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
