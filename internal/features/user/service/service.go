package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"birthday-app-backend/internal/features/user/models"
	"birthday-app-backend/internal/features/user/repository"
	"birthday-app-backend/internal/invite"
	"birthday-app-backend/internal/telegram/initdata"
)

var (
	// ErrBadSignature covers a bad or missing signature and malformed
	// payloads. The caller surfaces it as a generic retry message; the
	// concrete reason never leaks.
	ErrBadSignature = errors.New("init data verification failed")

	// ErrNotRegistered is a verified identity with no record and a failed
	// non-conflict create.
	ErrNotRegistered = errors.New("user is not registered")

	// ErrUnknown marks an invariant violation: the conflict fallback fetch
	// found nothing.
	ErrUnknown = errors.New("unknown provisioning failure")

	ErrUserNotFound = errors.New("user not found")
)

// Provisioned is the terminal success outcome of the login-or-register
// protocol.
type Provisioned struct {
	User    *models.UserResponse
	Created bool
}

type UserService interface {
	// ValidateInitData verifies a signed init-data blob and resolves it to
	// a durable user, creating one on first contact. Idempotent: the same
	// payload always converges to the same user.
	ValidateInitData(ctx context.Context, raw string) (*Provisioned, error)

	// Register is the explicit create path. Returns the stored user with a
	// share link when the insert wins, ErrNotRegistered on conflict.
	Register(ctx context.Context, input models.CreateUserInput) (*models.UserResponse, error)

	Get(ctx context.Context, sel repository.Selector) (*models.UserResponse, error)
	List(ctx context.Context, limit, offset int) ([]*models.UserResponse, error)
	Search(ctx context.Context, name string) ([]*models.UserResponse, error)
	SetBirthday(ctx context.Context, userID int64, birthday time.Time) error
	SetPhoto(ctx context.Context, userID int64, photoURL string) error
}

type userService struct {
	repo        repository.UserRepository
	botToken    string
	botUsername string
	webAppName  string
	log         zerolog.Logger
}

func NewUserService(repo repository.UserRepository, botToken, botUsername, webAppName string, log zerolog.Logger) UserService {
	return &userService{
		repo:        repo,
		botToken:    botToken,
		botUsername: botUsername,
		webAppName:  webAppName,
		log:         log,
	}
}

func (s *userService) shareLink(userID int64) string {
	return invite.Link(s.botUsername, s.webAppName, userID)
}

func (s *userService) ValidateInitData(ctx context.Context, raw string) (*Provisioned, error) {
	payload, err := initdata.Parse(raw)
	if err != nil {
		return nil, ErrBadSignature
	}

	if !payload.VerifyWith(s.botToken) {
		s.log.Warn().Msg("init data signature rejected")
		return nil, ErrBadSignature
	}

	identity, err := payload.User()
	if err != nil {
		return nil, ErrBadSignature
	}

	user, err := s.repo.FindBy(ctx, repository.Selector{ChatID: identity.ID})
	if err == nil {
		return &Provisioned{User: models.ToUserResponse(user, s.shareLink(user.ID))}, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	result, err := s.repo.Create(ctx, models.CreateUserInput{
		ChatID:    identity.ID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Username:  identity.Username,
		PhotoURL:  identity.PhotoURL,
	})
	if err != nil {
		return nil, err
	}

	// Conflict means a concurrent request won the insert. The record must
	// exist now; the uniqueness constraint is the only guard because
	// provisioning has to stay correct across process instances.
	created := result == repository.Created

	user, err = s.repo.FindBy(ctx, repository.Selector{ChatID: identity.ID})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.Error().Int64("chat_id", identity.ID).Msg("user missing after create, storage invariant violated")
			return nil, ErrUnknown
		}
		return nil, err
	}

	return &Provisioned{
		User:    models.ToUserResponse(user, s.shareLink(user.ID)),
		Created: created,
	}, nil
}

func (s *userService) Register(ctx context.Context, input models.CreateUserInput) (*models.UserResponse, error) {
	result, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	if result == repository.Conflict {
		return nil, ErrNotRegistered
	}

	user, err := s.repo.FindBy(ctx, repository.Selector{ChatID: input.ChatID})
	if err != nil {
		return nil, err
	}

	return models.ToUserResponse(user, s.shareLink(user.ID)), nil
}

func (s *userService) Get(ctx context.Context, sel repository.Selector) (*models.UserResponse, error) {
	user, err := s.repo.FindBy(ctx, sel)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, repository.ErrNoSelector) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return models.ToUserResponse(user, s.shareLink(user.ID)), nil
}

func (s *userService) List(ctx context.Context, limit, offset int) ([]*models.UserResponse, error) {
	users, err := s.repo.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]*models.UserResponse, 0, len(users))
	for _, u := range users {
		// Listings omit the share link; it belongs to single-user reads.
		out = append(out, models.ToUserResponse(u, ""))
	}
	return out, nil
}

func (s *userService) Search(ctx context.Context, name string) ([]*models.UserResponse, error) {
	users, err := s.repo.SearchByName(ctx, name)
	if err != nil {
		return nil, err
	}

	out := make([]*models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, models.ToUserResponse(u, ""))
	}
	return out, nil
}

func (s *userService) SetBirthday(ctx context.Context, userID int64, birthday time.Time) error {
	if err := s.repo.SetBirthday(ctx, userID, birthday); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *userService) SetPhoto(ctx context.Context, userID int64, photoURL string) error {
	if err := s.repo.SetPhoto(ctx, userID, photoURL); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
