package service

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"pinboard/internal/model"
	"pinboard/internal/repository"
)

// EngagementService handles likes and saves. Both are idempotent from the
// client's point of view in the sense that the returned state always
// reflects what the database confirmed, never an optimistic guess.
type EngagementService struct {
	db             *sqlx.DB
	engagementRepo repository.EngagementRepository
	pinRepo        repository.PinRepository
	profileRepo    repository.ProfileRepository
}

func NewEngagementService(
	db *sqlx.DB,
	engagementRepo repository.EngagementRepository,
	pinRepo repository.PinRepository,
	profileRepo repository.ProfileRepository,
) *EngagementService {
	return &EngagementService{
		db:             db,
		engagementRepo: engagementRepo,
		pinRepo:        pinRepo,
		profileRepo:    profileRepo,
	}
}

// LikePin records a like and bumps the pin's like counter in one
// transaction. Liking an already-liked pin returns ErrAlreadyLiked.
func (s *EngagementService) LikePin(ctx context.Context, pinID, userID int64) (*model.EngagementState, error) {
	exists, err := s.pinRepo.Exists(ctx, pinID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pin: %w", err)
	}
	if !exists {
		return nil, model.ErrPinNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.engagementRepo.Like(ctx, tx, pinID, userID); err != nil {
		return nil, err
	}

	if err := s.pinRepo.IncrementLikeCount(ctx, tx, pinID, 1); err != nil {
		return nil, fmt.Errorf("failed to increment like count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.engagementState(ctx, pinID, userID)
}

// UnlikePin removes a like and decrements the counter in one transaction.
// Unliking a pin that was not liked returns ErrNotLiked.
func (s *EngagementService) UnlikePin(ctx context.Context, pinID, userID int64) (*model.EngagementState, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.engagementRepo.Unlike(ctx, tx, pinID, userID); err != nil {
		return nil, err
	}

	if err := s.pinRepo.IncrementLikeCount(ctx, tx, pinID, -1); err != nil {
		return nil, fmt.Errorf("failed to decrement like count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.engagementState(ctx, pinID, userID)
}

// SavePin saves a pin to the caller's private collection.
func (s *EngagementService) SavePin(ctx context.Context, pinID, userID int64) (*model.EngagementState, error) {
	exists, err := s.pinRepo.Exists(ctx, pinID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pin: %w", err)
	}
	if !exists {
		return nil, model.ErrPinNotFound
	}

	if err := s.engagementRepo.Save(ctx, pinID, userID); err != nil {
		return nil, err
	}

	return s.engagementState(ctx, pinID, userID)
}

// UnsavePin removes a pin from the caller's collection.
func (s *EngagementService) UnsavePin(ctx context.Context, pinID, userID int64) (*model.EngagementState, error) {
	if err := s.engagementRepo.Unsave(ctx, pinID, userID); err != nil {
		return nil, err
	}

	return s.engagementState(ctx, pinID, userID)
}

// LikedPins returns the pins the user has liked, newest like first.
func (s *EngagementService) LikedPins(ctx context.Context, userID int64) ([]model.FeedPin, error) {
	ids, err := s.engagementRepo.LikedPinIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list liked pins: %w", err)
	}
	return s.hydrate(ctx, ids, userID, true, false)
}

// SavedPins returns the caller's saved pins, newest save first. Saves are
// private: there is no way to read another user's saves.
func (s *EngagementService) SavedPins(ctx context.Context, userID int64) ([]model.FeedPin, error) {
	ids, err := s.engagementRepo.SavedPinIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved pins: %w", err)
	}
	return s.hydrate(ctx, ids, userID, false, true)
}

// engagementState reads back confirmed state after a mutation.
func (s *EngagementService) engagementState(ctx context.Context, pinID, userID int64) (*model.EngagementState, error) {
	state := &model.EngagementState{PinID: pinID}

	pin, err := s.pinRepo.GetByID(ctx, pinID)
	if err == nil {
		state.LikeCount = pin.LikeCount
	}

	ids := []int64{pinID}
	if likes, err := s.engagementRepo.CheckLikes(ctx, userID, ids); err == nil {
		state.Liked = likes[pinID]
	}
	if saves, err := s.engagementRepo.CheckSaves(ctx, userID, ids); err == nil {
		state.Saved = saves[pinID]
	}

	return state, nil
}

// hydrate loads pins by ID (preserving order) and attaches authors.
func (s *EngagementService) hydrate(ctx context.Context, ids []int64, userID int64, liked, saved bool) ([]model.FeedPin, error) {
	if len(ids) == 0 {
		return []model.FeedPin{}, nil
	}

	pins, err := s.pinRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load pins: %w", err)
	}

	out := make([]model.FeedPin, len(pins))
	for i, p := range pins {
		out[i] = model.FeedPin{Pin: p, Liked: liked, Saved: saved}
	}

	if err := attachAuthors(ctx, s.profileRepo, out); err != nil {
		log.Printf("[EngagementService] hydrate authors FAILED: error=%v", err)
	}

	return out, nil
}
