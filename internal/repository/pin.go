package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"pinboard/internal/cache"
	"pinboard/internal/model"
)

type pinRepository struct {
	db *sqlx.DB
}

func NewPinRepository(db *sqlx.DB) PinRepository {
	return &pinRepository{db: db}
}

// Create inserts a new pin. The image must already be uploaded; the caller
// passes the resolved URL and object key.
func (r *pinRepository) Create(ctx context.Context, p *model.Pin) error {
	query := `
		INSERT INTO pins (user_id, title, description, image_url, image_key, tags)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, like_count, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		p.UserID,
		p.Title,
		p.Description,
		p.ImageURL,
		p.ImageKey,
		p.Tags,
	).Scan(&p.ID, &p.LikeCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert pin: %w", err)
	}

	return nil
}

// GetByID retrieves a single pin.
func (r *pinRepository) GetByID(ctx context.Context, pinID int64) (*model.Pin, error) {
	query := `
		SELECT id, user_id, title, description, image_url, image_key, tags, like_count, created_at, updated_at
		FROM pins
		WHERE id = $1 AND deleted_at IS NULL
	`

	var pin model.Pin
	err := r.db.GetContext(ctx, &pin, query, pinID)
	if err == sql.ErrNoRows {
		return nil, model.ErrPinNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pin: %w", err)
	}

	return &pin, nil
}

// GetByIDs retrieves multiple pins, re-ordered to match the input order.
// Used for hydrating the feed from cache; feed ordering lives in the cache,
// not in this query.
func (r *pinRepository) GetByIDs(ctx context.Context, pinIDs []int64) ([]model.Pin, error) {
	if len(pinIDs) == 0 {
		return []model.Pin{}, nil
	}

	query := `
		SELECT id, user_id, title, description, image_url, image_key, tags, like_count, created_at, updated_at
		FROM pins
		WHERE id = ANY($1) AND deleted_at IS NULL
	`

	var pins []model.Pin
	err := r.db.SelectContext(ctx, &pins, query, pq.Array(pinIDs))
	if err != nil {
		return nil, fmt.Errorf("get pins by ids: %w", err)
	}

	pinsByID := make(map[int64]model.Pin, len(pins))
	for _, p := range pins {
		pinsByID[p.ID] = p
	}
	ordered := make([]model.Pin, 0, len(pinIDs))
	for _, id := range pinIDs {
		if p, ok := pinsByID[id]; ok {
			ordered = append(ordered, p)
		}
	}

	return ordered, nil
}

// ListRecent returns all pins ordered by creation time descending, newest
// first. Used as the direct-DB path when the feed cache is unavailable.
func (r *pinRepository) ListRecent(ctx context.Context, limit int) ([]model.Pin, error) {
	query := `
		SELECT id, user_id, title, description, image_url, image_key, tags, like_count, created_at, updated_at
		FROM pins
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	var pins []model.Pin
	err := r.db.SelectContext(ctx, &pins, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent pins: %w", err)
	}

	return pins, nil
}

// ListByUser returns a user's pins, newest first.
func (r *pinRepository) ListByUser(ctx context.Context, userID int64) ([]model.Pin, error) {
	query := `
		SELECT id, user_id, title, description, image_url, image_key, tags, like_count, created_at, updated_at
		FROM pins
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
	`

	var pins []model.Pin
	err := r.db.SelectContext(ctx, &pins, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list pins by user: %w", err)
	}

	return pins, nil
}

// Delete performs a soft delete on a pin, validating ownership.
func (r *pinRepository) Delete(ctx context.Context, pinID, userID int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pins SET deleted_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, pinID, userID)
	if err != nil {
		return fmt.Errorf("delete pin: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish "not yours" from "gone"
		var exists bool
		r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM pins WHERE id = $1 AND deleted_at IS NULL)`, pinID)
		if exists {
			return model.ErrNotPinOwner
		}
		return model.ErrPinNotFound
	}

	return nil
}

// GetFeedScores returns (id, created-at) pairs for warming the feed cache.
func (r *pinRepository) GetFeedScores(ctx context.Context, limit int) ([]cache.PinScore, error) {
	query := `
		SELECT id, EXTRACT(EPOCH FROM created_at)::bigint AS timestamp
		FROM pins
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1
	`

	type row struct {
		ID        int64 `db:"id"`
		Timestamp int64 `db:"timestamp"`
	}
	var rows []row
	err := r.db.SelectContext(ctx, &rows, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get feed scores: %w", err)
	}

	scores := make([]cache.PinScore, len(rows))
	for i, r := range rows {
		scores[i] = cache.PinScore{PinID: r.ID, Timestamp: r.Timestamp}
	}
	return scores, nil
}

// IncrementLikeCount atomically updates the like_count on a pin.
func (r *pinRepository) IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, pinID int64, delta int) error {
	query := `UPDATE pins SET like_count = like_count + $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`
	result, err := tx.ExecContext(ctx, query, delta, pinID)
	if err != nil {
		return fmt.Errorf("update like count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPinNotFound
	}
	return nil
}

// Exists checks if a pin exists and is not deleted.
func (r *pinRepository) Exists(ctx context.Context, pinID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM pins WHERE id = $1 AND deleted_at IS NULL)`, pinID)
	if err != nil {
		return false, fmt.Errorf("check pin exists: %w", err)
	}
	return exists, nil
}
