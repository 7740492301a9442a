package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

// StatusPending is the only status this pipeline assigns.
const StatusPending Status = "pending"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrProductNotFound  = errors.New("product not found")
)

type Customer struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	Phone        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// DisplayName is "First Last", or "" when no first name is set.
func (c Customer) DisplayName() string {
	if c.FirstName == "" {
		return ""
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// GuestCustomer is created at checkout for an unknown email. It has no
// password and cannot log in.
func GuestCustomer(email string) Customer {
	return Customer{Email: email, Role: RoleCustomer, CreatedAt: time.Now().UTC()}
}

type Order struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"userId"`
	Total      decimal.Decimal `json:"total"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// NewOrder is the order shell written before any line is known.
func NewOrder(customerID int64) Order {
	return Order{
		CustomerID: customerID,
		Total:      decimal.Zero,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// OrderLine snapshots the product price at order time.
type OrderLine struct {
	OrderID   int64           `json:"orderId"`
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

func (l OrderLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartLine is one line as submitted by the shopper. It deliberately carries
// no price.
type CartLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// OrderCreated is the order.created event data.
type OrderCreated struct {
	Order Order      `json:"order"`
	Items []CartLine `json:"items"`
	Email string     `json:"email"`
}

// Product is the pricing view of a catalog product.
type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
}
