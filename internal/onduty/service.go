package onduty

import (
	"context"
	"errors"

	"campusportal/internal/notify"
)

// Request statuses. Pending requests move to approved or rejected; both are
// terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Re-act policies for requests that already left pending.
const (
	PolicyOverwrite = "overwrite"
	PolicyReject    = "reject"
)

var (
	// ErrNotFound means the referenced request does not exist.
	ErrNotFound = errors.New("onduty request not found")
	// ErrInvalidStatus means the requested transition target is not a valid
	// terminal status.
	ErrInvalidStatus = errors.New("status must be approved or rejected")
	// ErrTerminal means the request already left pending and the configured
	// policy forbids overwriting.
	ErrTerminal = errors.New("onduty request already decided")
	// ErrMissingFields means the submission lacks a reason or dates.
	ErrMissingFields = errors.New("reason and dates are required")
)

// Repo is the subset of the repository the service needs.
type Repo interface {
	Insert(ctx context.Context, req Request) (Request, error)
	Get(ctx context.Context, id string) (*Request, error)
	ListAll(ctx context.Context) ([]Request, error)
	ListByRoll(ctx context.Context, rollNumber string) ([]Request, error)
	UpdateStatus(ctx context.Context, id, status string, onlyPending bool) (*Request, error)
}

// Service enforces the onduty approval state machine and ownership rules.
type Service struct {
	repo        Repo
	events      *notify.Broadcaster
	reactPolicy string
}

// NewService creates an onduty service. reactPolicy selects what happens when
// an admin acts on an already-decided request: PolicyOverwrite re-writes the
// status, PolicyReject refuses.
func NewService(repo Repo, events *notify.Broadcaster, reactPolicy string) *Service {
	if reactPolicy != PolicyReject {
		reactPolicy = PolicyOverwrite
	}
	return &Service{repo: repo, events: events, reactPolicy: reactPolicy}
}

// Submit creates a new pending request owned by rollNumber. The roll number
// comes from the caller's session claims, never from the request body.
func (s *Service) Submit(ctx context.Context, rollNumber, reason string, dates []string, attachment string) (Request, error) {
	if reason == "" || len(dates) == 0 {
		return Request{}, ErrMissingFields
	}
	req, err := s.repo.Insert(ctx, Request{
		RollNumber: rollNumber,
		Reason:     reason,
		Dates:      dates,
		Attachment: attachment,
		Status:     StatusPending,
	})
	if err != nil {
		return Request{}, err
	}
	s.events.Broadcast(ctx, notify.Message("New onduty request submitted"))
	return req, nil
}

// ListAll returns every request regardless of owner.
func (s *Service) ListAll(ctx context.Context) ([]Request, error) {
	return s.repo.ListAll(ctx)
}

// ListMine returns only the caller's requests.
func (s *Service) ListMine(ctx context.Context, rollNumber string) ([]Request, error) {
	return s.repo.ListByRoll(ctx, rollNumber)
}

// Act applies an approve or reject transition and announces the outcome.
func (s *Service) Act(ctx context.Context, id, status string) (Request, error) {
	if status != StatusApproved && status != StatusRejected {
		return Request{}, ErrInvalidStatus
	}
	updated, err := s.repo.UpdateStatus(ctx, id, status, s.reactPolicy == PolicyReject)
	if err != nil {
		return Request{}, err
	}
	if updated == nil {
		existing, err := s.repo.Get(ctx, id)
		if err != nil {
			return Request{}, err
		}
		if existing != nil {
			return Request{}, ErrTerminal
		}
		return Request{}, ErrNotFound
	}
	s.events.Broadcast(ctx, notify.OndutyStatus(updated.ID, updated.RollNumber, updated.Status, updated.Reason, updated.Dates))
	s.events.Broadcast(ctx, notify.Message("Onduty request "+updated.Status))
	return *updated, nil
}
