package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path"
	"strings"
	"unicode"

	"github.com/lib/pq"

	"pinboard/internal/model"
	"pinboard/internal/queue"
	"pinboard/internal/repository"
)

// PinService handles pin creation, lookup, deletion, and downloads.
type PinService struct {
	pinRepo        repository.PinRepository
	userRepo       repository.UserRepository
	profileRepo    repository.ProfileRepository
	engagementRepo repository.EngagementRepository
	store          ImageStore
	publisher      queue.Publisher
}

func NewPinService(
	pinRepo repository.PinRepository,
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	engagementRepo repository.EngagementRepository,
	store ImageStore,
	publisher queue.Publisher,
) *PinService {
	return &PinService{
		pinRepo:        pinRepo,
		userRepo:       userRepo,
		profileRepo:    profileRepo,
		engagementRepo: engagementRepo,
		store:          store,
		publisher:      publisher,
	}
}

// ParseTags splits a raw comma-separated tag string into trimmed,
// non-empty tags: "food, , recipe" becomes ["food", "recipe"].
func ParseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		tag := strings.TrimSpace(p)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// CreatePinInput carries the multipart fields of a pin creation request.
type CreatePinInput struct {
	Title       string
	Description string
	TagsRaw     string
	File        multipart.File
	Header      *multipart.FileHeader
}

// Create runs the pin creation sequence in order: validate, upload the
// image, then insert the row referencing the uploaded image's public URL.
// If the insert fails the uploaded object is left behind; nothing
// references it and it is not cleaned up.
func (s *PinService) Create(ctx context.Context, userID int64, in *CreatePinInput) (*model.Pin, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, model.ErrTitleRequired
	}
	if len(title) > model.MaxPinTitleLength {
		return nil, model.ErrTitleTooLong
	}
	if in.File == nil || in.Header == nil {
		return nil, model.ErrImageRequired
	}

	uploaded, err := s.store.UploadPinImage(ctx, userID, in.File, in.Header)
	if err != nil {
		return nil, err
	}

	pin := &model.Pin{
		UserID:   userID,
		Title:    title,
		ImageURL: uploaded.URL,
		ImageKey: uploaded.Key,
		Tags:     pq.StringArray(ParseTags(in.TagsRaw)),
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		pin.Description = &desc
	}

	if err := s.pinRepo.Create(ctx, pin); err != nil {
		return nil, fmt.Errorf("failed to create pin: %w", err)
	}

	if _, err := s.publisher.Publish(ctx, queue.StreamPins, queue.NewPinCreatedEvent(pin.ID, userID)); err != nil {
		// Feed cache catches up on the next warm; the pin itself is durable.
		log.Printf("[PinService] Create publish FAILED: pinID=%d error=%v", pin.ID, err)
	}

	return pin, nil
}

// GetByID returns a pin with its author and the viewer's engagement flags.
// viewerID is nil for anonymous requests; flags stay false then.
func (s *PinService) GetByID(ctx context.Context, pinID int64, viewerID *int64) (*model.FeedPin, error) {
	pin, err := s.pinRepo.GetByID(ctx, pinID)
	if err != nil {
		return nil, err
	}

	fp := &model.FeedPin{Pin: *pin}

	author, err := s.profileRepo.GetSummaryByUserID(ctx, pin.UserID)
	if err != nil {
		log.Printf("[PinService] GetByID author lookup FAILED: userID=%d error=%v", pin.UserID, err)
	} else {
		fp.Author = author
	}

	if viewerID != nil {
		ids := []int64{pinID}
		if likes, err := s.engagementRepo.CheckLikes(ctx, *viewerID, ids); err == nil {
			fp.Liked = likes[pinID]
		}
		if saves, err := s.engagementRepo.CheckSaves(ctx, *viewerID, ids); err == nil {
			fp.Saved = saves[pinID]
		}
	}

	return fp, nil
}

// ListByUsername returns a user's pins newest-first for their profile grid.
func (s *PinService) ListByUsername(ctx context.Context, username string) ([]model.FeedPin, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	pins, err := s.pinRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pins: %w", err)
	}

	author, err := s.profileRepo.GetSummaryByUserID(ctx, user.ID)
	if err != nil {
		log.Printf("[PinService] ListByUsername author lookup FAILED: userID=%d error=%v", user.ID, err)
		author = nil
	}

	out := make([]model.FeedPin, len(pins))
	for i, p := range pins {
		out[i] = model.FeedPin{Pin: p, Author: author}
	}
	return out, nil
}

// Delete removes a pin. Only the owner may delete; others get
// ErrNotPinOwner. The stored image is removed best-effort afterward.
func (s *PinService) Delete(ctx context.Context, pinID, userID int64) error {
	pin, err := s.pinRepo.GetByID(ctx, pinID)
	if err != nil {
		return err
	}

	if err := s.pinRepo.Delete(ctx, pinID, userID); err != nil {
		return err
	}

	if _, err := s.publisher.Publish(ctx, queue.StreamPins, queue.NewPinDeletedEvent(pinID, userID)); err != nil {
		log.Printf("[PinService] Delete publish FAILED: pinID=%d error=%v", pinID, err)
	}

	if err := s.store.DeleteObject(ctx, pin.ImageKey); err != nil {
		log.Printf("[PinService] Delete image cleanup FAILED: key=%s error=%v", pin.ImageKey, err)
	}

	return nil
}

// Download streams a pin's image along with a filename derived from the
// pin's title, so the saved file is named after the pin rather than the
// storage key.
func (s *PinService) Download(ctx context.Context, pinID int64) (io.ReadCloser, string, string, error) {
	pin, err := s.pinRepo.GetByID(ctx, pinID)
	if err != nil {
		return nil, "", "", err
	}

	body, contentType, err := s.store.GetObject(ctx, pin.ImageKey)
	if err != nil {
		return nil, "", "", err
	}

	filename := downloadFilename(pin.Title, path.Ext(pin.ImageKey))
	return body, contentType, filename, nil
}

// downloadFilename turns a pin title into a safe attachment filename.
func downloadFilename(title, ext string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "pin"
	}
	if ext == "" {
		ext = ".jpg"
	}
	return name + ext
}
