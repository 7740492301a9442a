// Package memstore keeps every store in process memory. It backs
// STORAGE=memory and the acceptance suite.
package memstore

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	catalogdomain "github.com/dmehra2102/shophub/internal/catalog/domain"
	feedbackdomain "github.com/dmehra2102/shophub/internal/feedback/domain"
	orderdomain "github.com/dmehra2102/shophub/internal/order/domain"
	"github.com/dmehra2102/shophub/pkg/outbox"
)

type DB struct {
	mu         sync.RWMutex
	seq        int64
	customers  map[int64]orderdomain.Customer
	byEmail    map[string]int64
	categories map[int64]string
	products   map[int64]catalogdomain.Product
	reviews    []catalogdomain.Review
	orders     map[int64]orderdomain.Order
	lines      []orderdomain.OrderLine
	feedback   []feedbackdomain.Feedback
	outbox     []outbox.Event
}

func New() *DB {
	return &DB{
		customers:  map[int64]orderdomain.Customer{},
		byEmail:    map[string]int64{},
		categories: map[int64]string{},
		products:   map[int64]catalogdomain.Product{},
		orders:     map[int64]orderdomain.Order{},
	}
}

// NewSeeded returns a DB holding the same catalog as the seed migration.
func NewSeeded() *DB {
	db := New()
	for id, name := range []string{"Electronics", "Fashion", "Home & Garden", "Sports", "Books"} {
		db.AddCategory(int64(id+1), name)
	}
	seed := []struct {
		id       int64
		name     string
		desc     string
		price    string
		stock    int
		category int64
		image    string
	}{
		{1, "Classic Tee", "Plain cotton t-shirt", "10.00", 100, 2, "Tee"},
		{2, "Wireless Headphones", "High-quality wireless headphones with noise cancellation", "199.99", 15, 1, "Headphones"},
		{3, "Running Shoes", "Comfortable running shoes for everyday use", "89.99", 25, 2, "Shoes"},
		{4, "Coffee Maker", "Programmable coffee maker with timer", "49.99", 8, 3, "CoffeeMaker"},
		{5, "Yoga Mat", "Non-slip yoga mat for exercise", "29.99", 3, 4, "YogaMat"},
		{6, "JavaScript Guide", "Complete guide to JavaScript programming", "39.99", 50, 5, "Book"},
	}
	for _, s := range seed {
		db.AddProduct(catalogdomain.Product{
			ID:          s.id,
			Name:        s.name,
			Description: s.desc,
			Price:       decimal.RequireFromString(s.price),
			Stock:       s.stock,
			CategoryID:  s.category,
			Image:       "https://via.placeholder.com/400?text=" + s.image,
		})
	}
	return db
}

func (db *DB) AddCategory(id int64, name string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.categories[id] = name
}

// AddProduct inserts or replaces a product. An unknown category name is
// filled from the categories table.
func (db *DB) AddProduct(p catalogdomain.Product) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.Category == "" {
		p.Category = db.categories[p.CategoryID]
	}
	db.products[p.ID] = p
	if p.ID > db.seq {
		db.seq = p.ID
	}
}

// AddCustomer stores c, keyed by email, and returns it with its id.
func (db *DB) AddCustomer(c orderdomain.Customer) orderdomain.Customer {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.insertCustomer(c)
}

func (db *DB) AddReview(r catalogdomain.Review) catalogdomain.Review {
	db.mu.Lock()
	defer db.mu.Unlock()
	r.ID = db.next()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	db.reviews = append(db.reviews, r)
	return r
}

func (db *DB) Orders() *Orders     { return &Orders{db: db} }
func (db *DB) Catalog() *Catalog   { return &Catalog{db: db} }
func (db *DB) Feedback() *Feedback { return &Feedback{db: db} }

// next must be called with mu held.
func (db *DB) next() int64 {
	db.seq++
	return db.seq
}

func (db *DB) insertCustomer(c orderdomain.Customer) orderdomain.Customer {
	c.ID = db.next()
	db.customers[c.ID] = c
	db.byEmail[c.Email] = c.ID
	return c
}
