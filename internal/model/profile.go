package model

import (
	"errors"
	"time"
)

// Profile is the public-facing record attached to an account. The username
// comes from the users table via join; everything else is owned by the
// profiles row.
type Profile struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Username    string    `db:"username" json:"username"`
	DisplayName *string   `db:"display_name" json:"display_name"`
	Bio         *string   `db:"bio" json:"bio"`
	AvatarURL   *string   `db:"avatar_url" json:"avatar_url"`
	AvatarKey   *string   `db:"avatar_key" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ProfileSummary is the author info attached to pins in feeds.
type ProfileSummary struct {
	UserID      int64   `db:"user_id" json:"user_id"`
	Username    string  `db:"username" json:"username"`
	DisplayName *string `db:"display_name" json:"display_name"`
	AvatarURL   *string `db:"avatar_url" json:"avatar_url"`
}

// UpsertProfileRequest is the request body for PUT /me/profile.
// The first save creates the profile row; later saves update it.
type UpsertProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
}

const MaxBioLength = 500

var (
	// ErrProfileNotFound is returned when a profile row does not exist yet
	ErrProfileNotFound = errors.New("profile not found")

	// ErrBioTooLong is returned when the bio exceeds MaxBioLength
	ErrBioTooLong = errors.New("bio too long")
)
