package application

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/shophub/internal/feedback/domain"
)

type FeedbackResult struct {
	Status string `json:"status"`
}

// FeedbackProcessor is the background step after a feedback entry is stored.
type FeedbackProcessor struct {
	log *slog.Logger
}

func NewFeedbackProcessor(log *slog.Logger) *FeedbackProcessor {
	return &FeedbackProcessor{log: log}
}

func (p *FeedbackProcessor) HandleFeedbackCreated(_ context.Context, ev domain.Created) (FeedbackResult, error) {
	p.log.Info("feedback received", "feedback_id", ev.Feedback.ID, "email", ev.Feedback.Email, "category", ev.Feedback.Category)
	return FeedbackResult{Status: "ok"}, nil
}
