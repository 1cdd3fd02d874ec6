package service

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"

	"pinboard/internal/model"
	"pinboard/internal/repository"
)

// ProfileService handles profile upserts, lookups, and avatar updates.
type ProfileService struct {
	profileRepo repository.ProfileRepository
	media       *MediaService
}

func NewProfileService(profileRepo repository.ProfileRepository, media *MediaService) *ProfileService {
	return &ProfileService{profileRepo: profileRepo, media: media}
}

// Upsert saves the caller's profile, creating the row on first save.
// An account never gets a profile implicitly; this is the only way one
// comes into existence.
func (s *ProfileService) Upsert(ctx context.Context, userID int64, req *model.UpsertProfileRequest) (*model.Profile, error) {
	if req.Bio != nil && len(*req.Bio) > model.MaxBioLength {
		return nil, model.ErrBioTooLong
	}

	profile := &model.Profile{
		UserID:      userID,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	}

	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	// Re-read to pick up the joined username.
	return s.profileRepo.GetByUserID(ctx, userID)
}

// GetByUserID returns the caller's own profile.
func (s *ProfileService) GetByUserID(ctx context.Context, userID int64) (*model.Profile, error) {
	return s.profileRepo.GetByUserID(ctx, userID)
}

// GetByUsername returns a public profile by username.
func (s *ProfileService) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	return s.profileRepo.GetByUsername(ctx, username)
}

// UpdateAvatar uploads a new avatar image and points the profile at it.
// The previous avatar object is deleted best-effort after the switch.
func (s *ProfileService) UpdateAvatar(ctx context.Context, userID int64, file multipart.File, header *multipart.FileHeader) (*model.Profile, error) {
	current, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.media.UploadAvatar(ctx, userID, file, header)
	if err != nil {
		return nil, err
	}

	if err := s.profileRepo.SetAvatar(ctx, userID, result.URL, result.Key); err != nil {
		return nil, fmt.Errorf("failed to set avatar: %w", err)
	}

	if current.AvatarKey != nil && *current.AvatarKey != result.Key {
		if err := s.media.DeleteObject(ctx, *current.AvatarKey); err != nil {
			// Old object is orphaned but the profile is consistent.
			log.Printf("[ProfileService] UpdateAvatar cleanup FAILED: key=%s error=%v", *current.AvatarKey, err)
		}
	}

	return s.profileRepo.GetByUserID(ctx, userID)
}
