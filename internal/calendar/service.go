package calendar

import (
	"context"
	"errors"
	"time"

	"campusportal/internal/notify"
)

// Event types.
const (
	TypeExam    = "exam"
	TypeHoliday = "holiday"
	TypeSeminar = "seminar"
)

// ErrInvalidType means the event type is not one of exam, holiday, seminar.
var ErrInvalidType = errors.New("type must be exam, holiday or seminar")

// Repo is the subset of the repository the service needs.
type Repo interface {
	Insert(ctx context.Context, evt Event) (Event, error)
	List(ctx context.Context) ([]Event, error)
}

// Service manages the event catalog.
type Service struct {
	repo   Repo
	events *notify.Broadcaster
}

// NewService creates a calendar service.
func NewService(repo Repo, events *notify.Broadcaster) *Service {
	return &Service{repo: repo, events: events}
}

// Create adds a new calendar entry and announces it.
func (s *Service) Create(ctx context.Context, title, description string, date time.Time, eventType string) (Event, error) {
	switch eventType {
	case TypeExam, TypeHoliday, TypeSeminar:
	default:
		return Event{}, ErrInvalidType
	}
	evt, err := s.repo.Insert(ctx, Event{
		Title:       title,
		Description: description,
		Date:        date,
		Type:        eventType,
	})
	if err != nil {
		return Event{}, err
	}
	s.events.Broadcast(ctx, notify.Message("New event added"))
	return evt, nil
}

// List returns every event; no date or type filtering.
func (s *Service) List(ctx context.Context) ([]Event, error) {
	return s.repo.List(ctx)
}
