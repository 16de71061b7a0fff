// Package cached decorates a UserRepository with read-through caching for
// single-user lookups. Writes invalidate; list and search always hit
// storage. Create is passed through untouched so the uniqueness race is
// still decided by the database alone.
package cached

import (
	"context"
	"fmt"
	"time"

	"birthday-app-backend/internal/common/cache"
	"birthday-app-backend/internal/features/user/models"
	"birthday-app-backend/internal/features/user/repository"
)

const userTTL = 5 * time.Minute

type cachedRepository struct {
	next  repository.UserRepository
	cache cache.Cache
}

func New(next repository.UserRepository, c cache.Cache) repository.UserRepository {
	return &cachedRepository{next: next, cache: c}
}

func userKey(u *models.User) string { return fmt.Sprintf("user:id:%d", u.ID) }

func (r *cachedRepository) FindBy(ctx context.Context, sel repository.Selector) (*models.User, error) {
	// Only the internal-id lookup is cached; chat_id and username reads
	// feed the provisioning race and must see storage directly.
	if sel.ID != 0 && sel.ChatID == 0 && sel.Username == "" {
		var user models.User
		if err := r.cache.Get(ctx, fmt.Sprintf("user:id:%d", sel.ID), &user); err == nil {
			return &user, nil
		}
	}

	user, err := r.next.FindBy(ctx, sel)
	if err != nil {
		return nil, err
	}

	_ = r.cache.Set(ctx, userKey(user), user, userTTL)
	return user, nil
}

func (r *cachedRepository) Create(ctx context.Context, input models.CreateUserInput) (repository.CreateResult, error) {
	return r.next.Create(ctx, input)
}

func (r *cachedRepository) SetBirthday(ctx context.Context, userID int64, birthday time.Time) error {
	if err := r.next.SetBirthday(ctx, userID, birthday); err != nil {
		return err
	}
	return r.cache.Delete(ctx, fmt.Sprintf("user:id:%d", userID))
}

func (r *cachedRepository) SetPhoto(ctx context.Context, userID int64, photoURL string) error {
	if err := r.next.SetPhoto(ctx, userID, photoURL); err != nil {
		return err
	}
	return r.cache.Delete(ctx, fmt.Sprintf("user:id:%d", userID))
}

func (r *cachedRepository) ListAll(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return r.next.ListAll(ctx, limit, offset)
}

func (r *cachedRepository) SearchByName(ctx context.Context, name string) ([]*models.User, error) {
	return r.next.SearchByName(ctx, name)
}
