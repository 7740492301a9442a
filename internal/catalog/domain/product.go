package domain

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

const (
	RelatedLimit       = 6
	ReviewsLimit       = 50
	RecentReviewsLimit = 10
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  int64           `json:"categoryId"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
}

func (p Product) InStock() bool { return p.Stock > 0 }

// Summary is a product with its review aggregate.
type Summary struct {
	Product
	Rating  float64 `json:"rating"`
	Reviews int     `json:"reviews"`
}

// Summarize averages the ratings to one decimal place. No reviews is 0.
func Summarize(p Product, ratingSum, reviewCount int) Summary {
	s := Summary{Product: p, Reviews: reviewCount}
	if reviewCount > 0 {
		s.Rating = math.Round(float64(ratingSum)/float64(reviewCount)*10) / 10
	}
	return s
}

type Author struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type Review struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Author    *Author   `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// Detail is the product page view.
type Detail struct {
	Summary
	RecentReviews []Review `json:"recentReviews"`
}
