package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"pinboard/internal/model"
)

type engagementRepository struct {
	db *sqlx.DB
}

func NewEngagementRepository(db *sqlx.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

// Like inserts a like row. The UNIQUE(pin_id, user_id) constraint is the
// source of truth for the at-most-one invariant; a duplicate insert maps to
// ErrAlreadyLiked instead of a second row.
func (r *engagementRepository) Like(ctx context.Context, tx *sqlx.Tx, pinID, userID int64) error {
	query := `INSERT INTO pin_likes (pin_id, user_id) VALUES ($1, $2)`
	_, err := tx.ExecContext(ctx, query, pinID, userID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return model.ErrAlreadyLiked
		}
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// Unlike deletes a like row. Returns ErrNotLiked if there was none.
func (r *engagementRepository) Unlike(ctx context.Context, tx *sqlx.Tx, pinID, userID int64) error {
	query := `DELETE FROM pin_likes WHERE pin_id = $1 AND user_id = $2`
	result, err := tx.ExecContext(ctx, query, pinID, userID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotLiked
	}
	return nil
}

// Save inserts a save row; same uniqueness handling as Like but no counter,
// so no transaction is involved.
func (r *engagementRepository) Save(ctx context.Context, pinID, userID int64) error {
	query := `INSERT INTO pin_saves (pin_id, user_id) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, pinID, userID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return model.ErrAlreadySaved
		}
		return fmt.Errorf("insert save: %w", err)
	}
	return nil
}

// Unsave deletes a save row. Returns ErrNotSaved if there was none.
func (r *engagementRepository) Unsave(ctx context.Context, pinID, userID int64) error {
	query := `DELETE FROM pin_saves WHERE pin_id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, pinID, userID)
	if err != nil {
		return fmt.Errorf("delete save: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotSaved
	}
	return nil
}

// LikedPinIDs returns every pin id the user has liked, newest like first.
func (r *engagementRepository) LikedPinIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT pin_id FROM pin_likes WHERE user_id = $1 ORDER BY created_at DESC`

	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, userID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("liked pin ids: %w", err)
	}
	return ids, nil
}

// SavedPinIDs returns every pin id the user has saved. Saves are private;
// callers must only ever pass the acting session's own user id.
func (r *engagementRepository) SavedPinIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT pin_id FROM pin_saves WHERE user_id = $1 ORDER BY created_at DESC`

	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, userID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("saved pin ids: %w", err)
	}
	return ids, nil
}

// CheckLikes reports which of the given pins the user has liked.
// Returns a map of pin_id -> liked (true/false).
func (r *engagementRepository) CheckLikes(ctx context.Context, userID int64, pinIDs []int64) (map[int64]bool, error) {
	return r.checkRows(ctx, "pin_likes", userID, pinIDs)
}

// CheckSaves reports which of the given pins the user has saved.
func (r *engagementRepository) CheckSaves(ctx context.Context, userID int64, pinIDs []int64) (map[int64]bool, error) {
	return r.checkRows(ctx, "pin_saves", userID, pinIDs)
}

func (r *engagementRepository) checkRows(ctx context.Context, table string, userID int64, pinIDs []int64) (map[int64]bool, error) {
	if len(pinIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := fmt.Sprintf(`SELECT pin_id FROM %s WHERE user_id = $1 AND pin_id = ANY($2)`, table)
	var matched []int64
	err := r.db.SelectContext(ctx, &matched, query, userID, pq.Array(pinIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("check %s: %w", table, err)
	}

	result := make(map[int64]bool)
	for _, id := range pinIDs {
		result[id] = false
	}
	for _, id := range matched {
		result[id] = true
	}

	return result, nil
}
