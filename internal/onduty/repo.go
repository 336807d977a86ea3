package onduty

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Request is one leave application. Dates is the ordered list of requested
// days as submitted by the student.
type Request struct {
	ID         string    `json:"id"`
	RollNumber string    `json:"rollNumber"`
	Reason     string    `json:"reason"`
	Dates      []string  `json:"dates"`
	Attachment string    `json:"attachment,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Repository persists onduty requests in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new request.
func (r *Repository) Insert(ctx context.Context, req Request) (Request, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = StatusPending
	}
	dates, err := json.Marshal(req.Dates)
	if err != nil {
		return Request{}, fmt.Errorf("marshal dates: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO onduty_requests (id, roll_number, reason, dates, attachment, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING created_at
	`, req.ID, req.RollNumber, req.Reason, dates, req.Attachment, req.Status)
	if err := row.Scan(&req.CreatedAt); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Get returns a single request by id, or nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Request, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, roll_number, reason, dates, COALESCE(attachment, ''), status, created_at
		FROM onduty_requests WHERE id = $1
	`, id)
	req, err := scanRequest(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// ListAll returns every request, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]Request, error) {
	return r.list(ctx, `ORDER BY created_at DESC`)
}

// ListByRoll returns requests owned by the given roll number, newest first.
func (r *Repository) ListByRoll(ctx context.Context, rollNumber string) ([]Request, error) {
	return r.list(ctx, `WHERE roll_number = $1 ORDER BY created_at DESC`, rollNumber)
}

func (r *Repository) list(ctx context.Context, tail string, args ...any) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, roll_number, reason, dates, COALESCE(attachment, ''), status, created_at
		FROM onduty_requests `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Request
	for rows.Next() {
		req, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, req)
	}
	return res, rows.Err()
}

// UpdateStatus applies a status transition and returns the updated request.
// With onlyPending set the update matches pending requests only; a nil result
// means no row was updated.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string, onlyPending bool) (*Request, error) {
	query := `
		UPDATE onduty_requests SET status = $2
		WHERE id = $1`
	if onlyPending {
		query += ` AND status = 'pending'`
	}
	query += `
		RETURNING id, roll_number, reason, dates, COALESCE(attachment, ''), status, created_at`
	row := r.db.QueryRowContext(ctx, query, id, status)
	req, err := scanRequest(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func scanRequest(scan func(dest ...any) error) (Request, error) {
	var req Request
	var dates []byte
	if err := scan(&req.ID, &req.RollNumber, &req.Reason, &dates, &req.Attachment, &req.Status, &req.CreatedAt); err != nil {
		return Request{}, err
	}
	if err := json.Unmarshal(dates, &req.Dates); err != nil {
		return Request{}, fmt.Errorf("unmarshal dates: %w", err)
	}
	return req, nil
}
