package roster

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// User is one identity record. Students start unapproved; admins are created
// approved. The password hash never leaves the server.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Password   string    `json:"-"`
	Role       string    `json:"role"`
	Name       string    `json:"name,omitempty"`
	RollNumber string    `json:"rollNumber,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	IsApproved bool      `json:"isApproved"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// Repository persists users in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user. Email and roll number collisions surface as
// ErrDuplicate.
func (r *Repository) Create(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash, role, name, roll_number, phone, is_approved, is_active)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
		RETURNING created_at
	`, u.ID, u.Email, u.Password, u.Role, u.Name, u.RollNumber, u.Phone, u.IsApproved, u.IsActive)
	if err := row.Scan(&u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicate
		}
		return User{}, err
	}
	return u, nil
}

// ByEmail returns the user with the given email, or nil when absent.
func (r *Repository) ByEmail(ctx context.Context, email string) (*User, error) {
	return r.one(ctx, `WHERE email = $1`, email)
}

// ByID returns the user with the given id, or nil when absent.
func (r *Repository) ByID(ctx context.Context, id string) (*User, error) {
	return r.one(ctx, `WHERE id = $1`, id)
}

func (r *Repository) one(ctx context.Context, where string, arg any) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, name, COALESCE(roll_number, ''), phone, is_approved, is_active, created_at
		FROM users `+where, arg)
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Role, &u.Name, &u.RollNumber, &u.Phone, &u.IsApproved, &u.IsActive, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ListStudents returns every student account, pending ones included.
func (r *Repository) ListStudents(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, password_hash, role, name, COALESCE(roll_number, ''), phone, is_approved, is_active, created_at
		FROM users
		WHERE role = $1
		ORDER BY created_at
	`, RoleStudent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Password, &u.Role, &u.Name, &u.RollNumber, &u.Phone, &u.IsApproved, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// SetApproved marks a user approved. Returns false when the id is unknown.
func (r *Repository) SetApproved(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_approved = TRUE WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetInactive deactivates a user. Terminal; there is no reactivation path.
func (r *Repository) SetInactive(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AdminExists reports whether any admin account is present.
func (r *Repository) AdminExists(ctx context.Context) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, RoleAdmin).Scan(&count)
	return count > 0, err
}

// UpdatePasswordByEmail rotates a stored password hash. Returns false when no
// user matches.
func (r *Repository) UpdatePasswordByEmail(ctx context.Context, email, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE email = $1`, email, hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
