package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/shophub/internal/order/application"
	"github.com/dmehra2102/shophub/internal/order/domain"
	"github.com/dmehra2102/shophub/pkg/outbox"
)

// DB is the part of *pgxpool.Pool the repositories use.
type DB interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*pgxpool.Pool)(nil)

type Repository struct {
	log *slog.Logger
	db  DB
}

func NewRepository(log *slog.Logger, db DB) *Repository {
	return &Repository{log: log, db: db}
}

func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx application.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Customer reads a customer by id outside any transaction.
func (r *Repository) Customer(ctx context.Context, id int64) (domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, selectCustomer+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return c, err
}

// Product reads the pricing view of a product outside any transaction.
func (r *Repository) Product(ctx context.Context, id int64) (domain.Product, error) {
	return scanProduct(r.db.QueryRow(ctx, selectProduct, id))
}

// Order returns an order with its lines.
func (r *Repository) Order(ctx context.Context, id int64) (domain.Order, []domain.OrderLine, error) {
	var o domain.Order
	err := r.db.QueryRow(ctx, `SELECT id, customer_id, total, status, created_at FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.CustomerID, &o.Total, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT order_id, product_id, quantity, unit_price FROM order_lines WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return domain.Order{}, nil, err
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return domain.Order{}, nil, err
		}
		lines = append(lines, l)
	}
	return o, lines, rows.Err()
}

const (
	selectCustomer = `SELECT id, email, first_name, last_name, phone, password_hash, role, created_at FROM customers`
	selectProduct  = `SELECT id, name, price FROM products WHERE id=$1`
)

func scanCustomer(row pgx.Row) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.Phone, &c.PasswordHash, &c.Role, &c.CreatedAt)
	return c, err
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, err
}

type txRepo struct {
	tx pgx.Tx
}

// UpsertCustomer never overwrites an existing customer's fields. The no-op
// update makes RETURNING yield the existing row on conflict.
func (t *txRepo) UpsertCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO customers (email, first_name, last_name, phone, password_hash, role, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (email) DO UPDATE SET email=EXCLUDED.email
		RETURNING id, email, first_name, last_name, phone, password_hash, role, created_at`,
		c.Email, c.FirstName, c.LastName, c.Phone, c.PasswordHash, c.Role, c.CreatedAt)
	return scanCustomer(row)
}

func (t *txRepo) CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (customer_id, total, status, created_at)
		VALUES ($1,$2,$3,$4)
		RETURNING id`,
		o.CustomerID, o.Total, o.Status, o.CreatedAt).Scan(&o.ID)
	return o, err
}

func (t *txRepo) Product(ctx context.Context, id int64) (domain.Product, error) {
	return scanProduct(t.tx.QueryRow(ctx, selectProduct, id))
}

func (t *txRepo) AddLine(ctx context.Context, l domain.OrderLine) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO order_lines (order_id, product_id, quantity, unit_price) VALUES ($1,$2,$3,$4)`,
		l.OrderID, l.ProductID, l.Quantity, l.UnitPrice)
	return err
}

func (t *txRepo) SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) (domain.Order, error) {
	var o domain.Order
	err := t.tx.QueryRow(ctx, `
		UPDATE orders SET total=$2 WHERE id=$1
		RETURNING id, customer_id, total, status, created_at`, orderID, total).
		Scan(&o.ID, &o.CustomerID, &o.Total, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, err
}

// AppendOutbox writes the row inside the checkout transaction.
func (t *txRepo) AppendOutbox(ctx context.Context, e outbox.Event) error {
	return appendOutbox(ctx, t.tx, e)
}
