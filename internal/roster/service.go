package roster

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"campusportal/internal/auth"
	"campusportal/internal/notify"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password, and
	// unapproved or deactivated accounts alike, so callers cannot probe for
	// account existence.
	ErrInvalidCredentials = errors.New("invalid credentials or account not approved")
	// ErrDuplicate means the email or roll number is already registered.
	ErrDuplicate = errors.New("email or roll number already registered")
	// ErrNotFound means the referenced user does not exist.
	ErrNotFound = errors.New("user not found")
)

// Repo is the subset of the repository the service needs.
type Repo interface {
	Create(ctx context.Context, u User) (User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	ListStudents(ctx context.Context) ([]User, error)
	SetApproved(ctx context.Context, id string) (bool, error)
	SetInactive(ctx context.Context, id string) (bool, error)
	AdminExists(ctx context.Context) (bool, error)
	UpdatePasswordByEmail(ctx context.Context, email, hash string) (bool, error)
}

// TokenConfig carries the session token parameters.
type TokenConfig struct {
	Issuer     string
	SigningKey string
	TTL        time.Duration
}

// Service manages the student roster and issues sessions.
type Service struct {
	repo   Repo
	tokens TokenConfig
	events *notify.Broadcaster
}

// NewService creates a roster service.
func NewService(repo Repo, tokens TokenConfig, events *notify.Broadcaster) *Service {
	if tokens.TTL <= 0 {
		tokens.TTL = time.Hour
	}
	return &Service{repo: repo, tokens: tokens, events: events}
}

// RegisterInput holds the registration form fields.
type RegisterInput struct {
	Name       string
	RollNumber string
	Email      string
	Phone      string
	Password   string
}

// Register creates a new unapproved student account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.Create(ctx, User{
		Email:      in.Email,
		Password:   hash,
		Role:       RoleStudent,
		Name:       in.Name,
		RollNumber: in.RollNumber,
		Phone:      in.Phone,
		IsApproved: false,
		IsActive:   true,
	})
}

// Authenticate verifies credentials and issues a session token. A student may
// not obtain a session until approved, and never again once deactivated.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, User, error) {
	user, err := s.repo.ByEmail(ctx, email)
	if err != nil {
		return "", User{}, err
	}
	if user == nil || !user.IsApproved || !user.IsActive {
		return "", User{}, ErrInvalidCredentials
	}
	if !auth.CheckPassword(user.Password, password) {
		return "", User{}, ErrInvalidCredentials
	}
	token, _, err := auth.Issue(user.ID, user.Email, user.Role, user.RollNumber,
		s.tokens.Issuer, s.tokens.SigningKey, s.tokens.TTL)
	if err != nil {
		return "", User{}, fmt.Errorf("issue token: %w", err)
	}
	return token, *user, nil
}

// ListStudents returns the full roster, pending accounts included.
func (s *Service) ListStudents(ctx context.Context) ([]User, error) {
	return s.repo.ListStudents(ctx)
}

// Approve marks a student account approved and announces it.
func (s *Service) Approve(ctx context.Context, userID string) error {
	ok, err := s.repo.SetApproved(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.events.Broadcast(ctx, notify.Message("Your account has been approved"))
	return nil
}

// Deactivate disables an account. Tokens issued before deactivation stay
// valid until their own expiry.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	ok, err := s.repo.SetInactive(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// EnsureAdmin creates a first admin account when none exists. When password
// is empty a random one is generated and returned so the operator can read it
// from the startup log exactly once.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (string, error) {
	exists, err := s.repo.AdminExists(ctx)
	if err != nil || exists {
		return "", err
	}
	generated := ""
	if password == "" {
		buf := make([]byte, 12)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate admin password: %w", err)
		}
		password = hex.EncodeToString(buf)
		generated = password
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}
	_, err = s.repo.Create(ctx, User{
		Email:      email,
		Password:   hash,
		Role:       RoleAdmin,
		IsApproved: true,
		IsActive:   true,
	})
	if err != nil {
		return "", err
	}
	return generated, nil
}

// UpsertAdmin creates an admin with the given credentials, or rotates the
// password when the account already exists. Used by the addadmin CLI.
func (s *Service) UpsertAdmin(ctx context.Context, email, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	_, err = s.repo.Create(ctx, User{
		Email:      email,
		Password:   hash,
		Role:       RoleAdmin,
		IsApproved: true,
		IsActive:   true,
	})
	if errors.Is(err, ErrDuplicate) {
		ok, uerr := s.repo.UpdatePasswordByEmail(ctx, email, hash)
		if uerr != nil {
			return uerr
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	}
	return err
}
