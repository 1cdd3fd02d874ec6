package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"pinboard/internal/cache"
	"pinboard/internal/model"
	"pinboard/internal/repository"
)

const (
	// feedLimit caps how many pins one feed load returns, matching the
	// cache capacity.
	feedLimit = cache.FeedCacheCap

	// authorFetchConcurrency bounds the per-pin author lookups.
	authorFetchConcurrency = 8
)

// FeedService assembles the home feed: recent pins from the Redis cache
// (warmed from Postgres on miss), authors attached per pin, the viewer's
// like/save flags, and an optional free-text filter.
type FeedService struct {
	feedCache      cache.FeedCache
	pinRepo        repository.PinRepository
	profileRepo    repository.ProfileRepository
	engagementRepo repository.EngagementRepository
}

func NewFeedService(
	feedCache cache.FeedCache,
	pinRepo repository.PinRepository,
	profileRepo repository.ProfileRepository,
	engagementRepo repository.EngagementRepository,
) *FeedService {
	return &FeedService{
		feedCache:      feedCache,
		pinRepo:        pinRepo,
		profileRepo:    profileRepo,
		engagementRepo: engagementRepo,
	}
}

// GetFeed returns the filtered feed for a viewer. viewerID is nil for
// anonymous requests: the feed still loads, but liked/saved stay false
// (saves are keyed to a session and are never fetched anonymously).
func (s *FeedService) GetFeed(ctx context.Context, viewerID *int64, query string) ([]model.FeedPin, error) {
	pins, err := s.loadRecent(ctx)
	if err != nil {
		return nil, err
	}

	// Author hydration is per pin; a failed lookup leaves that pin
	// authorless instead of failing the feed.
	if err := attachAuthors(ctx, s.profileRepo, pins); err != nil {
		log.Printf("[FeedService] GetFeed authors FAILED: error=%v", err)
	}

	if viewerID != nil {
		s.attachViewerFlags(ctx, *viewerID, pins)
	}

	return FilterPins(pins, query), nil
}

// loadRecent reads recent pin IDs from the cache, warming it from
// Postgres when cold, and hydrates the rows. Any cache failure falls
// back to a direct database read.
func (s *FeedService) loadRecent(ctx context.Context) ([]model.FeedPin, error) {
	ids, err := s.cachedPinIDs(ctx)
	if err != nil {
		log.Printf("[FeedService] loadRecent cache FAILED, falling back to db: error=%v", err)
		return s.loadFromDB(ctx)
	}

	if len(ids) == 0 {
		return []model.FeedPin{}, nil
	}

	pins, err := s.pinRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed pins: %w", err)
	}

	out := make([]model.FeedPin, len(pins))
	for i, p := range pins {
		out[i] = model.FeedPin{Pin: p}
	}
	return out, nil
}

func (s *FeedService) cachedPinIDs(ctx context.Context) ([]int64, error) {
	exists, err := s.feedCache.Exists(ctx)
	if err != nil {
		return nil, err
	}

	if !exists {
		scores, err := s.pinRepo.GetFeedScores(ctx, feedLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load feed scores: %w", err)
		}
		if err := s.feedCache.Warm(ctx, scores); err != nil {
			return nil, err
		}
	}

	return s.feedCache.GetRecent(ctx, feedLimit)
}

func (s *FeedService) loadFromDB(ctx context.Context) ([]model.FeedPin, error) {
	pins, err := s.pinRepo.ListRecent(ctx, feedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent pins: %w", err)
	}

	out := make([]model.FeedPin, len(pins))
	for i, p := range pins {
		out[i] = model.FeedPin{Pin: p}
	}
	return out, nil
}

// attachViewerFlags marks which pins the viewer has liked and saved.
// Lookup failures log and leave the flags false rather than failing the feed.
func (s *FeedService) attachViewerFlags(ctx context.Context, viewerID int64, pins []model.FeedPin) {
	if len(pins) == 0 {
		return
	}

	ids := make([]int64, len(pins))
	for i, p := range pins {
		ids[i] = p.ID
	}

	likes, err := s.engagementRepo.CheckLikes(ctx, viewerID, ids)
	if err != nil {
		log.Printf("[FeedService] attachViewerFlags likes FAILED: userID=%d error=%v", viewerID, err)
		likes = map[int64]bool{}
	}
	saves, err := s.engagementRepo.CheckSaves(ctx, viewerID, ids)
	if err != nil {
		log.Printf("[FeedService] attachViewerFlags saves FAILED: userID=%d error=%v", viewerID, err)
		saves = map[int64]bool{}
	}

	for i := range pins {
		pins[i].Liked = likes[pins[i].ID]
		pins[i].Saved = saves[pins[i].ID]
	}
}

// attachAuthors fetches each pin's author concurrently and writes results
// back by index, so output order always matches input order regardless of
// which lookup finishes first. A pin whose author cannot be resolved keeps
// a nil Author.
func attachAuthors(ctx context.Context, repo repository.ProfileRepository, pins []model.FeedPin) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(authorFetchConcurrency)

	for i := range pins {
		i := i
		g.Go(func() error {
			author, err := repo.GetSummaryByUserID(gctx, pins[i].UserID)
			if err != nil {
				log.Printf("[Feed] author lookup FAILED: userID=%d error=%v", pins[i].UserID, err)
				return nil
			}
			pins[i].Author = author
			return nil
		})
	}

	return g.Wait()
}

// FilterPins returns the pins matching a free-text query, preserving order.
// An empty or whitespace query matches everything.
func FilterPins(pins []model.FeedPin, query string) []model.FeedPin {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return pins
	}

	out := make([]model.FeedPin, 0, len(pins))
	for _, p := range pins {
		if MatchesQuery(&p, q) {
			out = append(out, p)
		}
	}
	return out
}

// MatchesQuery reports whether a pin matches a lowercased query term by
// case-insensitive substring against title, description, any tag, and the
// author's username and display name.
func MatchesQuery(p *model.FeedPin, q string) bool {
	if strings.Contains(strings.ToLower(p.Title), q) {
		return true
	}
	if p.Description != nil && strings.Contains(strings.ToLower(*p.Description), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	if p.Author != nil {
		if strings.Contains(strings.ToLower(p.Author.Username), q) {
			return true
		}
		if p.Author.DisplayName != nil && strings.Contains(strings.ToLower(*p.Author.DisplayName), q) {
			return true
		}
	}
	return false
}
