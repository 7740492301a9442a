package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmehra2102/shophub/internal/feedback/domain"
	"github.com/dmehra2102/shophub/pkg/events"
)

var ErrValidation = errors.New("validation failed")

type Store interface {
	Create(ctx context.Context, f domain.Feedback) (domain.Feedback, error)
	// List returns the newest entries first.
	List(ctx context.Context, limit int) ([]domain.Feedback, error)
}

type Input struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Message  string `json:"message" validate:"required,max=1000"`
	Category string `json:"category" validate:"max=100"`
}

type Service struct {
	log      *slog.Logger
	store    Store
	pub      events.Publisher
	validate *validator.Validate
	wg       sync.WaitGroup
}

func NewService(log *slog.Logger, store Store, pub events.Publisher) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return &Service{log: log, store: store, pub: pub, validate: v}
}

// Create trims, validates and stores one entry, then publishes
// feedback.created in the background.
func (s *Service) Create(ctx context.Context, in Input) (domain.Feedback, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Message = strings.TrimSpace(in.Message)
	in.Category = strings.TrimSpace(in.Category)

	if err := s.validate.Struct(in); err != nil {
		return domain.Feedback{}, describe(err)
	}
	if in.Category == "" {
		in.Category = domain.DefaultCategory
	}

	f, err := s.store.Create(ctx, domain.Feedback{
		Name:      in.Name,
		Email:     in.Email,
		Message:   in.Message,
		Category:  in.Category,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("create feedback: %w", err)
	}
	s.log.Info("feedback created", "feedback_id", f.ID, "category", f.Category)

	s.notify(ctx, f)
	return f, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Feedback, error) {
	return s.store.List(ctx, domain.ListLimit)
}

// Wait blocks until every in-flight publish has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) notify(ctx context.Context, f domain.Feedback) {
	ev, err := events.New(events.FeedbackCreated, fmt.Sprint(f.ID), domain.Created{Feedback: f})
	if err != nil {
		s.log.Error("build feedback event failed", "feedback_id", f.ID, "err", err)
		return
	}

	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.pub.Publish(ctx, ev); err != nil {
			s.log.Error("publish failed", "event", ev.Name, "event_id", ev.ID, "feedback_id", f.ID, "err", err)
		}
	}()
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+": "+rule(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func rule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag()
	}
}
