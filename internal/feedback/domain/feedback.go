package domain

import "time"

const (
	DefaultCategory = "Feedback"
	ListLimit       = 100
)

type Feedback struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

// Created is the feedback.created event data.
type Created struct {
	Feedback Feedback `json:"feedback"`
}
