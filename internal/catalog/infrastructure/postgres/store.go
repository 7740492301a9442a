package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/shophub/internal/catalog/domain"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const selectSummary = `
	SELECT p.id, p.name, p.description, p.price, p.stock, p.category_id, c.name, p.image,
	       COALESCE(SUM(r.rating), 0), COUNT(r.id)
	FROM products p
	JOIN categories c ON c.id = p.category_id
	LEFT JOIN reviews r ON r.product_id = p.id`

func (s *Store) Products(ctx context.Context) ([]domain.Summary, error) {
	rows, err := s.pool.Query(ctx, selectSummary+` GROUP BY p.id, c.name ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Summary{}
	for rows.Next() {
		sm, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *Store) Product(ctx context.Context, id int64) (domain.Summary, error) {
	sm, err := scanSummary(s.pool.QueryRow(ctx, selectSummary+` WHERE p.id=$1 GROUP BY p.id, c.name`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Summary{}, domain.ErrProductNotFound
	}
	return sm, err
}

func (s *Store) Related(ctx context.Context, p domain.Product, limit int) ([]domain.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.name, p.description, p.price, p.stock, p.category_id, c.name, p.image
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.category_id=$1 AND p.id<>$2
		ORDER BY p.id
		LIMIT $3`, p.CategoryID, p.ID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		var rp domain.Product
		if err := rows.Scan(&rp.ID, &rp.Name, &rp.Description, &rp.Price, &rp.Stock, &rp.CategoryID, &rp.Category, &rp.Image); err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

func (s *Store) Reviews(ctx context.Context, productID int64, limit int) ([]domain.Review, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.product_id, r.rating, r.comment, r.created_at, u.id, u.first_name, u.last_name
		FROM reviews r
		JOIN customers u ON u.id = r.customer_id
		WHERE r.product_id=$1
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		var r domain.Review
		a := &domain.Author{}
		if err := rows.Scan(&r.ID, &r.ProductID, &r.Rating, &r.Comment, &r.CreatedAt, &a.ID, &a.FirstName, &a.LastName); err != nil {
			return nil, err
		}
		r.Author = a
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanSummary(row pgx.Row) (domain.Summary, error) {
	var p domain.Product
	var sum, count int
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &p.Category, &p.Image, &sum, &count); err != nil {
		return domain.Summary{}, err
	}
	return domain.Summarize(p, sum, count), nil
}
