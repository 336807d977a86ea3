package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Record is one append-only presence log entry.
type Record struct {
	ID         string    `json:"id"`
	RollNumber string    `json:"rollNumber"`
	Name       string    `json:"name"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends a new record with a server timestamp.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, roll_number, name, recorded_at)
		VALUES ($1, $2, $3, $4)
	`, rec.ID, rec.RollNumber, rec.Name, rec.RecordedAt)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListBetween returns records with recorded_at in [from, to), newest first.
func (r *Repository) ListBetween(ctx context.Context, from, to time.Time) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, roll_number, name, recorded_at
		FROM attendance_records
		WHERE recorded_at >= $1 AND recorded_at < $2
		ORDER BY recorded_at DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.RollNumber, &rec.Name, &rec.RecordedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
