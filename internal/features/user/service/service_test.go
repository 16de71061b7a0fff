package service

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"birthday-app-backend/internal/features/user/models"
	"birthday-app-backend/internal/features/user/repository"
	"birthday-app-backend/internal/telegram/initdata"
)

const testToken = "123456:test-token"

// userRepoStub enforces the chat_id uniqueness constraint under a mutex the
// same way the database does, so the concurrent provisioning race is
// reproducible in-process.
type userRepoStub struct {
	mu      sync.Mutex
	nextID  int64
	byChat  map[int64]*models.User
	failAll bool
}

func newRepoStub() *userRepoStub {
	return &userRepoStub{nextID: 1, byChat: make(map[int64]*models.User)}
}

func (r *userRepoStub) FindBy(ctx context.Context, sel repository.Selector) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errors.New("storage unavailable")
	}
	if sel.Empty() {
		return nil, repository.ErrNoSelector
	}
	for _, u := range r.byChat {
		if (sel.ChatID != 0 && u.ChatID == sel.ChatID) ||
			(sel.ID != 0 && u.ID == sel.ID) ||
			(sel.Username != "" && u.Username == sel.Username) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *userRepoStub) Create(ctx context.Context, input models.CreateUserInput) (repository.CreateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return 0, errors.New("storage unavailable")
	}
	if _, ok := r.byChat[input.ChatID]; ok {
		return repository.Conflict, nil
	}
	r.byChat[input.ChatID] = &models.User{
		ID:          r.nextID,
		ChatID:      input.ChatID,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Username:    input.Username,
		PhotoURL:    input.PhotoURL,
		DateStarted: time.Now(),
	}
	r.nextID++
	return repository.Created, nil
}

func (r *userRepoStub) SetBirthday(ctx context.Context, userID int64, birthday time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byChat {
		if u.ID == userID {
			u.Birthday = &birthday
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (r *userRepoStub) SetPhoto(ctx context.Context, userID int64, photoURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byChat {
		if u.ID == userID {
			u.PhotoURL = photoURL
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (r *userRepoStub) ListAll(ctx context.Context, limit, offset int) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.byChat {
		copied := *u
		out = append(out, &copied)
	}
	return out, nil
}

func (r *userRepoStub) SearchByName(ctx context.Context, name string) ([]*models.User, error) {
	return nil, nil
}

func (r *userRepoStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byChat)
}

func newSvc(repo repository.UserRepository) UserService {
	return NewUserService(repo, testToken, "testbot", "webapp", zerolog.Nop())
}

func signedInitData(t *testing.T, user string) string {
	t.Helper()
	pairs := map[string]string{
		"auth_date": "1700000000",
		"user":      user,
	}
	q := url.Values{}
	for k, v := range pairs {
		q.Set(k, v)
	}
	q.Set("hash", initdata.Sign(pairs, testToken))
	return q.Encode()
}

func TestValidateInitDataCreatesThenFinds(t *testing.T) {
	repo := newRepoStub()
	svc := newSvc(repo)
	ctx := context.Background()
	raw := signedInitData(t, `{"id":42,"first_name":"Ada","username":"ada"}`)

	first, err := svc.ValidateInitData(ctx, raw)
	require.NoError(t, err)
	require.True(t, first.Created)
	require.Equal(t, int64(42), first.User.ChatID)
	require.Contains(t, first.User.ShareLink, "https://t.me/testbot/webapp?startapp=")

	second, err := svc.ValidateInitData(ctx, raw)
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.User.ID, second.User.ID)
	require.Equal(t, 1, repo.count())
}

func TestValidateInitDataBadSignature(t *testing.T) {
	repo := newRepoStub()
	svc := newSvc(repo)

	raw := signedInitData(t, `{"id":42,"first_name":"Ada"}`)
	_, err := svc.ValidateInitData(context.Background(), raw+"x")
	require.ErrorIs(t, err, ErrBadSignature)

	_, err = svc.ValidateInitData(context.Background(), "not-a-payload")
	require.ErrorIs(t, err, ErrBadSignature)

	require.Equal(t, 0, repo.count(), "no record may be created before verification")
}

func TestValidateInitDataMissingIdentity(t *testing.T) {
	svc := newSvc(newRepoStub())

	// Correctly signed but carries no user field.
	pairs := map[string]string{"auth_date": "1700000000"}
	q := url.Values{}
	q.Set("auth_date", "1700000000")
	q.Set("hash", initdata.Sign(pairs, testToken))

	_, err := svc.ValidateInitData(context.Background(), q.Encode())
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestValidateInitDataConcurrentFirstContact(t *testing.T) {
	repo := newRepoStub()
	svc := newSvc(repo)
	raw := signedInitData(t, `{"id":777,"first_name":"Grace"}`)

	const callers = 16
	results := make([]*Provisioned, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.ValidateInitData(context.Background(), raw)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, results[0].User.ID, results[i].User.ID)
		if results[i].Created {
			created++
		}
	}
	require.Equal(t, 1, created, "exactly one caller may observe the create")
	require.Equal(t, 1, repo.count())
}

func TestValidateInitDataStorageUnavailable(t *testing.T) {
	repo := newRepoStub()
	repo.failAll = true
	svc := newSvc(repo)
	raw := signedInitData(t, `{"id":42,"first_name":"Ada"}`)

	_, err := svc.ValidateInitData(context.Background(), raw)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrBadSignature)
}

// brokenRepo reports a conflict on create yet never finds the record,
// violating the storage invariant the fallback fetch relies on.
type brokenRepo struct{ *userRepoStub }

func (r *brokenRepo) FindBy(ctx context.Context, sel repository.Selector) (*models.User, error) {
	return nil, repository.ErrUserNotFound
}

func (r *brokenRepo) Create(ctx context.Context, input models.CreateUserInput) (repository.CreateResult, error) {
	return repository.Conflict, nil
}

func TestValidateInitDataFallbackMissIsUnknown(t *testing.T) {
	svc := newSvc(&brokenRepo{newRepoStub()})
	raw := signedInitData(t, `{"id":42,"first_name":"Ada"}`)

	_, err := svc.ValidateInitData(context.Background(), raw)
	require.ErrorIs(t, err, ErrUnknown)
}

func TestRegisterConflict(t *testing.T) {
	repo := newRepoStub()
	svc := newSvc(repo)
	ctx := context.Background()

	resp, err := svc.Register(ctx, models.CreateUserInput{ChatID: 1, FirstName: "Ada"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ShareLink)

	_, err = svc.Register(ctx, models.CreateUserInput{ChatID: 1, FirstName: "Ada"})
	require.ErrorIs(t, err, ErrNotRegistered)
	require.Equal(t, 1, repo.count())
}

func TestGetBySelectors(t *testing.T) {
	repo := newRepoStub()
	svc := newSvc(repo)
	ctx := context.Background()

	created, err := svc.Register(ctx, models.CreateUserInput{ChatID: 5, Username: "ada"})
	require.NoError(t, err)

	byID, err := svc.Get(ctx, repository.Selector{ID: created.ID})
	require.NoError(t, err)
	require.Equal(t, created.ID, byID.ID)

	byUsername, err := svc.Get(ctx, repository.Selector{Username: "ada"})
	require.NoError(t, err)
	require.Equal(t, created.ID, byUsername.ID)

	_, err = svc.Get(ctx, repository.Selector{})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetBirthdayAndPhoto(t *testing.T) {
	repo := newRepoStub()
	svc := newSvc(repo)
	ctx := context.Background()

	created, err := svc.Register(ctx, models.CreateUserInput{ChatID: 9})
	require.NoError(t, err)

	bday := time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.SetBirthday(ctx, created.ID, bday))
	require.NoError(t, svc.SetPhoto(ctx, created.ID, "https://example.com/p.jpg"))

	got, err := svc.Get(ctx, repository.Selector{ID: created.ID})
	require.NoError(t, err)
	require.NotNil(t, got.Birthday)
	require.Equal(t, bday, *got.Birthday)
	require.Equal(t, "https://example.com/p.jpg", got.PhotoURL)

	require.ErrorIs(t, svc.SetBirthday(ctx, 9999, bday), ErrUserNotFound)
	require.ErrorIs(t, svc.SetPhoto(ctx, 9999, "x"), ErrUserNotFound)
}
