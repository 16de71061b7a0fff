package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"birthday-app-backend/internal/features/user/models"
	"birthday-app-backend/internal/features/user/repository"
)

const userColumns = "id, chat_id, first_name, last_name, username, photo_url, birthday, date_started"

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.UserRepository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, input models.CreateUserInput) (repository.CreateResult, error) {
	query := `
		INSERT INTO users (chat_id, first_name, last_name, username, photo_url, date_started)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	_, err := r.db.ExecContext(ctx, query,
		input.ChatID, input.FirstName, input.LastName, input.Username, input.PhotoURL)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return repository.Conflict, nil
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	return repository.Created, nil
}

func (r *postgresRepository) FindBy(ctx context.Context, sel repository.Selector) (*models.User, error) {
	if sel.Empty() {
		return nil, repository.ErrNoSelector
	}

	query := fmt.Sprintf("SELECT %s FROM users WHERE ", userColumns)
	args := []interface{}{}
	argIndex := 1

	if sel.ChatID != 0 {
		query += fmt.Sprintf("chat_id = $%d", argIndex)
		args = append(args, sel.ChatID)
		argIndex++
	}
	if sel.ID != 0 {
		if argIndex > 1 {
			query += " AND "
		}
		query += fmt.Sprintf("id = $%d", argIndex)
		args = append(args, sel.ID)
		argIndex++
	}
	if sel.Username != "" {
		if argIndex > 1 {
			query += " AND "
		}
		query += fmt.Sprintf("username = $%d", argIndex)
		args = append(args, sel.Username)
	}
	query += " LIMIT 1"

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func (r *postgresRepository) SetBirthday(ctx context.Context, userID int64, birthday time.Time) error {
	return r.updateField(ctx, "UPDATE users SET birthday = $2 WHERE id = $1", userID, birthday)
}

func (r *postgresRepository) SetPhoto(ctx context.Context, userID int64, photoURL string) error {
	return r.updateField(ctx, "UPDATE users SET photo_url = $2 WHERE id = $1", userID, photoURL)
}

func (r *postgresRepository) updateField(ctx context.Context, query string, userID int64, value interface{}) error {
	result, err := r.db.ExecContext(ctx, query, userID, value)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

func (r *postgresRepository) ListAll(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, userColumns)

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

func (r *postgresRepository) SearchByName(ctx context.Context, name string) ([]*models.User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE first_name ILIKE $1 OR last_name ILIKE $1
		ORDER BY id
	`, userColumns)

	rows, err := r.db.QueryContext(ctx, query, "%"+name+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var firstName, lastName, username, photoURL sql.NullString
	var birthday sql.NullTime

	err := row.Scan(&user.ID, &user.ChatID, &firstName, &lastName,
		&username, &photoURL, &birthday, &user.DateStarted)
	if err != nil {
		return nil, err
	}

	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.Username = username.String
	user.PhotoURL = photoURL.String
	if birthday.Valid {
		user.Birthday = &birthday.Time
	}

	return &user, nil
}

func scanUsers(rows *sql.Rows) ([]*models.User, error) {
	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}
