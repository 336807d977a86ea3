package attendance

import (
	"context"
	"errors"
	"time"

	"campusportal/internal/notify"
)

// ErrMissingFields means the capture client sent an incomplete record.
var ErrMissingFields = errors.New("roll number and name are required")

// Repo is the subset of the repository the service needs.
type Repo interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]Record, error)
}

// Service maintains the append-only attendance ledger.
type Service struct {
	repo   Repo
	events *notify.Broadcaster
	now    func() time.Time
}

// NewService creates an attendance service.
func NewService(repo Repo, events *notify.Broadcaster) *Service {
	return &Service{repo: repo, events: events, now: time.Now}
}

// Record appends a presence entry submitted by the capture client and
// announces it.
func (s *Service) Record(ctx context.Context, rollNumber, name string) (Record, error) {
	if rollNumber == "" || name == "" {
		return Record{}, ErrMissingFields
	}
	rec, err := s.repo.Insert(ctx, Record{
		RollNumber: rollNumber,
		Name:       name,
		RecordedAt: s.now(),
	})
	if err != nil {
		return Record{}, err
	}
	s.events.Broadcast(ctx, notify.AttendanceUpdate(rec.RollNumber, rec.Name))
	return rec, nil
}

// TodaysRecords returns records within [start of today, start of tomorrow) in
// server-local time.
func (s *Service) TodaysRecords(ctx context.Context) ([]Record, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.repo.ListBetween(ctx, start, start.AddDate(0, 0, 1))
}
