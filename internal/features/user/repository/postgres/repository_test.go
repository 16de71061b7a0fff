package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"birthday-app-backend/internal/features/user/models"
	"birthday-app-backend/internal/features/user/repository"
)

func newMock(t *testing.T) (repository.UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func userRows(id, chatID int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "chat_id", "first_name", "last_name", "username", "photo_url", "birthday", "date_started",
	}).AddRow(id, chatID, "Ada", "Lovelace", "ada", "https://t.me/i/ada.jpg", nil, time.Now())
}

func TestCreateMapsUniqueViolationToConflict(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(int64(42), "Ada", "", "ada", "").
		WillReturnError(&pq.Error{Code: "23505"})

	res, err := repo.Create(context.Background(), models.CreateUserInput{
		ChatID: 42, FirstName: "Ada", Username: "ada",
	})
	require.NoError(t, err)
	require.Equal(t, repository.Conflict, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSuccess(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(int64(42), "Ada", "", "ada", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	res, err := repo.Create(context.Background(), models.CreateUserInput{
		ChatID: 42, FirstName: "Ada", Username: "ada",
	})
	require.NoError(t, err)
	require.Equal(t, repository.Created, res)
}

func TestFindByChatID(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE chat_id").
		WithArgs(int64(42)).
		WillReturnRows(userRows(1, 42))

	user, err := repo.FindBy(context.Background(), repository.Selector{ChatID: 42})
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)
	require.Equal(t, int64(42), user.ChatID)
	require.Nil(t, user.Birthday)
}

func TestFindByEmptySelector(t *testing.T) {
	repo, _ := newMock(t)

	_, err := repo.FindBy(context.Background(), repository.Selector{})
	require.ErrorIs(t, err, repository.ErrNoSelector)
}

func TestFindByNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE chat_id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "chat_id", "first_name", "last_name", "username", "photo_url", "birthday", "date_started",
		}))

	_, err := repo.FindBy(context.Background(), repository.Selector{ChatID: 7})
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestSetBirthdayNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("UPDATE users SET birthday").
		WithArgs(int64(99), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetBirthday(context.Background(), 99, time.Now())
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestSetPhoto(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("UPDATE users SET photo_url").
		WithArgs(int64(1), "https://example.com/p.jpg").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetPhoto(context.Background(), 1, "https://example.com/p.jpg")
	require.NoError(t, err)
}

func TestListAllOrderedByID(t *testing.T) {
	repo, mock := newMock(t)

	rows := userRows(1, 42)
	rows.AddRow(int64(2), int64(43), "Grace", "Hopper", "grace", "", nil, time.Now())

	mock.ExpectQuery("SELECT (.+) FROM users ORDER BY id").
		WithArgs(10, 0).
		WillReturnRows(rows)

	users, err := repo.ListAll(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, int64(1), users[0].ID)
	require.Equal(t, int64(2), users[1].ID)
}

func TestSearchByNamePattern(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("first_name ILIKE").
		WithArgs("%ada%").
		WillReturnRows(userRows(1, 42))

	users, err := repo.SearchByName(context.Background(), "ada")
	require.NoError(t, err)
	require.Len(t, users, 1)
}
