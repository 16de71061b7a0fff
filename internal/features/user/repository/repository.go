package repository

import (
	"context"
	"errors"
	"time"

	"birthday-app-backend/internal/features/user/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNoSelector   = errors.New("no selector supplied")
)

// CreateResult distinguishes a fresh insert from a duplicate-chat_id
// conflict. The conflict is a normal outcome, not an error: callers resolve
// the race by re-fetching.
type CreateResult int

const (
	Created CreateResult = iota
	Conflict
)

// Selector identifies a user by any of the supported keys. At least one
// field must be set.
type Selector struct {
	ID       int64
	ChatID   int64
	Username string
}

func (s Selector) Empty() bool {
	return s.ID == 0 && s.ChatID == 0 && s.Username == ""
}

type UserRepository interface {
	// FindBy returns the first user matching the selector, or
	// ErrUserNotFound. An empty selector yields ErrNoSelector.
	FindBy(ctx context.Context, sel Selector) (*models.User, error)

	// Create inserts a user. A duplicate chat_id reports Conflict with a
	// nil error; any other failure is returned as an error.
	Create(ctx context.Context, input models.CreateUserInput) (CreateResult, error)

	SetBirthday(ctx context.Context, userID int64, birthday time.Time) error
	SetPhoto(ctx context.Context, userID int64, photoURL string) error

	// ListAll returns users ordered by internal id.
	ListAll(ctx context.Context, limit, offset int) ([]*models.User, error)

	// SearchByName matches a case-insensitive substring against first or
	// last name.
	SearchByName(ctx context.Context, name string) ([]*models.User, error)
}
