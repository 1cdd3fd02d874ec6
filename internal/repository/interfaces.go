package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"pinboard/internal/cache"
	"pinboard/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type ProfileRepository interface {
	// Upsert inserts the profile on the owner's first save and updates it
	// afterwards. Profiles are never created by any other action.
	Upsert(ctx context.Context, profile *model.Profile) error
	GetByUserID(ctx context.Context, userID int64) (*model.Profile, error)
	GetByUsername(ctx context.Context, username string) (*model.Profile, error)
	// GetSummaryByUserID resolves the author info attached to a pin.
	// Falls back to the bare account username when no profile row exists.
	GetSummaryByUserID(ctx context.Context, userID int64) (*model.ProfileSummary, error)
	SetAvatar(ctx context.Context, userID int64, avatarURL, avatarKey string) error
}

type PinRepository interface {
	Create(ctx context.Context, pin *model.Pin) error
	GetByID(ctx context.Context, pinID int64) (*model.Pin, error)
	// GetByIDs returns pins in the same order as the input IDs.
	GetByIDs(ctx context.Context, pinIDs []int64) ([]model.Pin, error)
	// ListRecent returns pins ordered by creation time descending.
	ListRecent(ctx context.Context, limit int) ([]model.Pin, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Pin, error)
	Delete(ctx context.Context, pinID, userID int64) error
	// GetFeedScores returns (pin id, created-at) pairs for cache warming.
	GetFeedScores(ctx context.Context, limit int) ([]cache.PinScore, error)
	IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, pinID int64, delta int) error
	Exists(ctx context.Context, pinID int64) (bool, error)
}

// EngagementRepository covers the likes and saves relations. Both share the
// same shape and at-most-one-row-per-(user, pin) invariant; saves carry no
// public counter and are only ever read back by their owner.
type EngagementRepository interface {
	Like(ctx context.Context, tx *sqlx.Tx, pinID, userID int64) error
	Unlike(ctx context.Context, tx *sqlx.Tx, pinID, userID int64) error
	Save(ctx context.Context, pinID, userID int64) error
	Unsave(ctx context.Context, pinID, userID int64) error
	LikedPinIDs(ctx context.Context, userID int64) ([]int64, error)
	SavedPinIDs(ctx context.Context, userID int64) ([]int64, error)
	// CheckLikes reports which of the given pins the user has liked.
	CheckLikes(ctx context.Context, userID int64, pinIDs []int64) (map[int64]bool, error)
	CheckSaves(ctx context.Context, userID int64, pinIDs []int64) (map[int64]bool, error)
}
