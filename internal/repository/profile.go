package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pinboard/internal/model"
)

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Upsert creates the profile row on first save, updates it afterwards.
// The conflict target is user_id: one profile per account.
func (r *profileRepository) Upsert(ctx context.Context, p *model.Profile) error {
	query := `
		INSERT INTO profiles (user_id, display_name, bio, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    bio = EXCLUDED.bio,
		    updated_at = NOW()
		RETURNING id, avatar_url, avatar_key, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query, p.UserID, p.DisplayName, p.Bio).
		Scan(&p.ID, &p.AvatarURL, &p.AvatarKey, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	return nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID int64) (*model.Profile, error) {
	query := `
		SELECT p.id, p.user_id, u.username, p.display_name, p.bio,
		       p.avatar_url, p.avatar_key, p.created_at, p.updated_at
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
	`

	var p model.Profile
	err := r.db.GetContext(ctx, &p, query, userID)
	if err == sql.ErrNoRows {
		return nil, model.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by user id: %w", err)
	}

	return &p, nil
}

func (r *profileRepository) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	query := `
		SELECT p.id, p.user_id, u.username, p.display_name, p.bio,
		       p.avatar_url, p.avatar_key, p.created_at, p.updated_at
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE u.username = $1
	`

	var p model.Profile
	err := r.db.GetContext(ctx, &p, query, username)
	if err == sql.ErrNoRows {
		return nil, model.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by username: %w", err)
	}

	return &p, nil
}

// GetSummaryByUserID resolves author info for feed display. A user who has
// never saved a profile still resolves to their account username via the
// LEFT JOIN; only a missing account is an error.
func (r *profileRepository) GetSummaryByUserID(ctx context.Context, userID int64) (*model.ProfileSummary, error) {
	query := `
		SELECT u.id AS user_id, u.username, p.display_name, p.avatar_url
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1
	`

	var s model.ProfileSummary
	err := r.db.GetContext(ctx, &s, query, userID)
	if err == sql.ErrNoRows {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile summary: %w", err)
	}

	return &s, nil
}

// SetAvatar updates the avatar references on an existing profile row.
func (r *profileRepository) SetAvatar(ctx context.Context, userID int64, avatarURL, avatarKey string) error {
	query := `
		UPDATE profiles
		SET avatar_url = $2, avatar_key = $3, updated_at = NOW()
		WHERE user_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, userID, avatarURL, avatarKey)
	if err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrProfileNotFound
	}

	return nil
}
