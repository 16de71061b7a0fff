package models

import "time"

// User is the durable user record. ID is assigned by storage and immutable;
// ChatID is the Telegram identifier and the natural uniqueness key for
// provisioning. DateStarted is set once at creation by the server clock.
type User struct {
	ID          int64      `json:"id"`
	ChatID      int64      `json:"chat_id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Username    string     `json:"username"`
	PhotoURL    string     `json:"photo_url"`
	Birthday    *time.Time `json:"birthday"`
	DateStarted time.Time  `json:"date_started"`
}

// UserResponse is the API projection of a User. Fields are copied one by one
// so adding a persisted column never silently widens the API surface.
type UserResponse struct {
	ID          int64      `json:"id"`
	ChatID      int64      `json:"chat_id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Username    string     `json:"username"`
	PhotoURL    string     `json:"photo_url"`
	Birthday    *time.Time `json:"birthday"`
	DateStarted time.Time  `json:"date_started"`
	ShareLink   string     `json:"share_link,omitempty"`
}

// CreateUserInput carries the fields a caller may supply on registration.
type CreateUserInput struct {
	ChatID    int64  `json:"chat_id" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

// ValidateInitDataInput is the body of the init-data validation endpoint.
type ValidateInitDataInput struct {
	InitData string `json:"init_data" binding:"required"`
}

// SetBirthdayInput sets a user's birthday after registration.
type SetBirthdayInput struct {
	UserID   int64     `json:"user_id" binding:"required"`
	Birthday time.Time `json:"birthday" binding:"required"`
}

// SetPhotoURLInput updates a user's avatar.
type SetPhotoURLInput struct {
	UserID   int64  `json:"user_id" binding:"required"`
	PhotoURL string `json:"photo_url" binding:"required"`
}

// ToUserResponse projects a User into the response shape. ShareLink is
// attached by the caller on the paths that want it; it is never persisted.
func ToUserResponse(u *User, shareLink string) *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		ChatID:      u.ChatID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Username:    u.Username,
		PhotoURL:    u.PhotoURL,
		Birthday:    u.Birthday,
		DateStarted: u.DateStarted,
		ShareLink:   shareLink,
	}
}
