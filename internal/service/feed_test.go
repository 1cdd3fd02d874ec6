package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"

	"pinboard/internal/cache"
	"pinboard/internal/model"
)

// Shared mocks for the service tests, following the function-field pattern:
// each test sets only the behavior it needs.

type mockPinRepository struct {
	createFn             func(ctx context.Context, pin *model.Pin) error
	getByIDFn            func(ctx context.Context, pinID int64) (*model.Pin, error)
	getByIDsFn           func(ctx context.Context, pinIDs []int64) ([]model.Pin, error)
	listRecentFn         func(ctx context.Context, limit int) ([]model.Pin, error)
	listByUserFn         func(ctx context.Context, userID int64) ([]model.Pin, error)
	deleteFn             func(ctx context.Context, pinID, userID int64) error
	getFeedScoresFn      func(ctx context.Context, limit int) ([]cache.PinScore, error)
	incrementLikeCountFn func(ctx context.Context, tx *sqlx.Tx, pinID int64, delta int) error
	existsFn             func(ctx context.Context, pinID int64) (bool, error)

	createCalls int
}

func (m *mockPinRepository) Create(ctx context.Context, pin *model.Pin) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, pin)
	}
	return nil
}

func (m *mockPinRepository) GetByID(ctx context.Context, pinID int64) (*model.Pin, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, pinID)
	}
	return nil, model.ErrPinNotFound
}

func (m *mockPinRepository) GetByIDs(ctx context.Context, pinIDs []int64) ([]model.Pin, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, pinIDs)
	}
	pins := make([]model.Pin, len(pinIDs))
	for i, id := range pinIDs {
		pins[i] = model.Pin{ID: id, UserID: id * 10, Title: fmt.Sprintf("pin %d", id)}
	}
	return pins, nil
}

func (m *mockPinRepository) ListRecent(ctx context.Context, limit int) ([]model.Pin, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockPinRepository) ListByUser(ctx context.Context, userID int64) ([]model.Pin, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockPinRepository) Delete(ctx context.Context, pinID, userID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, pinID, userID)
	}
	return nil
}

func (m *mockPinRepository) GetFeedScores(ctx context.Context, limit int) ([]cache.PinScore, error) {
	if m.getFeedScoresFn != nil {
		return m.getFeedScoresFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockPinRepository) IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, pinID int64, delta int) error {
	if m.incrementLikeCountFn != nil {
		return m.incrementLikeCountFn(ctx, tx, pinID, delta)
	}
	return nil
}

func (m *mockPinRepository) Exists(ctx context.Context, pinID int64) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, pinID)
	}
	return true, nil
}

type mockProfileRepository struct {
	upsertFn             func(ctx context.Context, profile *model.Profile) error
	getByUserIDFn        func(ctx context.Context, userID int64) (*model.Profile, error)
	getByUsernameFn      func(ctx context.Context, username string) (*model.Profile, error)
	getSummaryByUserIDFn func(ctx context.Context, userID int64) (*model.ProfileSummary, error)
	setAvatarFn          func(ctx context.Context, userID int64, avatarURL, avatarKey string) error
}

func (m *mockProfileRepository) Upsert(ctx context.Context, profile *model.Profile) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, profile)
	}
	return nil
}

func (m *mockProfileRepository) GetByUserID(ctx context.Context, userID int64) (*model.Profile, error) {
	if m.getByUserIDFn != nil {
		return m.getByUserIDFn(ctx, userID)
	}
	return nil, model.ErrProfileNotFound
}

func (m *mockProfileRepository) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrProfileNotFound
}

func (m *mockProfileRepository) GetSummaryByUserID(ctx context.Context, userID int64) (*model.ProfileSummary, error) {
	if m.getSummaryByUserIDFn != nil {
		return m.getSummaryByUserIDFn(ctx, userID)
	}
	return &model.ProfileSummary{UserID: userID, Username: fmt.Sprintf("user%d", userID)}, nil
}

func (m *mockProfileRepository) SetAvatar(ctx context.Context, userID int64, avatarURL, avatarKey string) error {
	if m.setAvatarFn != nil {
		return m.setAvatarFn(ctx, userID, avatarURL, avatarKey)
	}
	return nil
}

type mockEngagementRepository struct {
	likeFn        func(ctx context.Context, tx *sqlx.Tx, pinID, userID int64) error
	unlikeFn      func(ctx context.Context, tx *sqlx.Tx, pinID, userID int64) error
	saveFn        func(ctx context.Context, pinID, userID int64) error
	unsaveFn      func(ctx context.Context, pinID, userID int64) error
	likedPinIDsFn func(ctx context.Context, userID int64) ([]int64, error)
	savedPinIDsFn func(ctx context.Context, userID int64) ([]int64, error)
	checkLikesFn  func(ctx context.Context, userID int64, pinIDs []int64) (map[int64]bool, error)
	checkSavesFn  func(ctx context.Context, userID int64, pinIDs []int64) (map[int64]bool, error)

	checkLikesCalls int
	checkSavesCalls int
}

func (m *mockEngagementRepository) Like(ctx context.Context, tx *sqlx.Tx, pinID, userID int64) error {
	if m.likeFn != nil {
		return m.likeFn(ctx, tx, pinID, userID)
	}
	return nil
}

func (m *mockEngagementRepository) Unlike(ctx context.Context, tx *sqlx.Tx, pinID, userID int64) error {
	if m.unlikeFn != nil {
		return m.unlikeFn(ctx, tx, pinID, userID)
	}
	return nil
}

func (m *mockEngagementRepository) Save(ctx context.Context, pinID, userID int64) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, pinID, userID)
	}
	return nil
}

func (m *mockEngagementRepository) Unsave(ctx context.Context, pinID, userID int64) error {
	if m.unsaveFn != nil {
		return m.unsaveFn(ctx, pinID, userID)
	}
	return nil
}

func (m *mockEngagementRepository) LikedPinIDs(ctx context.Context, userID int64) ([]int64, error) {
	if m.likedPinIDsFn != nil {
		return m.likedPinIDsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockEngagementRepository) SavedPinIDs(ctx context.Context, userID int64) ([]int64, error) {
	if m.savedPinIDsFn != nil {
		return m.savedPinIDsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockEngagementRepository) CheckLikes(ctx context.Context, userID int64, pinIDs []int64) (map[int64]bool, error) {
	m.checkLikesCalls++
	if m.checkLikesFn != nil {
		return m.checkLikesFn(ctx, userID, pinIDs)
	}
	return map[int64]bool{}, nil
}

func (m *mockEngagementRepository) CheckSaves(ctx context.Context, userID int64, pinIDs []int64) (map[int64]bool, error) {
	m.checkSavesCalls++
	if m.checkSavesFn != nil {
		return m.checkSavesFn(ctx, userID, pinIDs)
	}
	return map[int64]bool{}, nil
}

// mockFeedCache is an in-memory FeedCache stand-in.
type mockFeedCache struct {
	existsFn    func(ctx context.Context) (bool, error)
	getRecentFn func(ctx context.Context, limit int) ([]int64, error)

	warmCalls int
	warmed    []cache.PinScore
}

func (m *mockFeedCache) AddPin(ctx context.Context, pinID, timestamp int64) error { return nil }
func (m *mockFeedCache) RemovePin(ctx context.Context, pinID int64) error         { return nil }
func (m *mockFeedCache) Size(ctx context.Context) (int64, error)                  { return 0, nil }

func (m *mockFeedCache) GetRecent(ctx context.Context, limit int) ([]int64, error) {
	if m.getRecentFn != nil {
		return m.getRecentFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockFeedCache) Warm(ctx context.Context, pins []cache.PinScore) error {
	m.warmCalls++
	m.warmed = append(m.warmed, pins...)
	return nil
}

func (m *mockFeedCache) Exists(ctx context.Context) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx)
	}
	return true, nil
}

func strPtr(s string) *string { return &s }

func TestFilterPins(t *testing.T) {
	author := &model.ProfileSummary{
		UserID:      7,
		Username:    "GardenGuru",
		DisplayName: strPtr("Rosa Flores"),
	}

	pins := []model.FeedPin{
		{Pin: model.Pin{ID: 1, Title: "Sunset over the bay"}, Author: author},
		{Pin: model.Pin{ID: 2, Title: "Pasta night", Description: strPtr("quick weeknight RECIPE")}},
		{Pin: model.Pin{ID: 3, Title: "Workbench", Tags: []string{"woodworking", "DIY"}}},
	}

	tests := []struct {
		name    string
		query   string
		wantIDs []int64
	}{
		{"empty query matches all", "", []int64{1, 2, 3}},
		{"whitespace query matches all", "   ", []int64{1, 2, 3}},
		{"title match", "sunset", []int64{1}},
		{"description match case-insensitive", "recipe", []int64{2}},
		{"tag match", "diy", []int64{3}},
		{"author username match", "gardenguru", []int64{1}},
		{"author display name match", "rosa", []int64{1}},
		{"substring inside word", "week", []int64{2}},
		{"no match", "zzz", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterPins(pins, tt.query)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d pins, want %d", len(got), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if got[i].ID != want {
					t.Errorf("result[%d].ID = %d, want %d", i, got[i].ID, want)
				}
			}
		})
	}
}

func TestFeedService_GetFeed_OrderPreserved(t *testing.T) {
	// Cache returns a specific newest-first order; the feed must keep it
	// even though authors are fetched concurrently.
	ids := []int64{30, 10, 20}

	feedCache := &mockFeedCache{
		getRecentFn: func(ctx context.Context, limit int) ([]int64, error) {
			return ids, nil
		},
	}
	svc := NewFeedService(feedCache, &mockPinRepository{}, &mockProfileRepository{}, &mockEngagementRepository{})

	pins, err := svc.GetFeed(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}

	if len(pins) != 3 {
		t.Fatalf("got %d pins, want 3", len(pins))
	}
	for i, want := range ids {
		if pins[i].ID != want {
			t.Errorf("pins[%d].ID = %d, want %d", i, pins[i].ID, want)
		}
	}
	for i, p := range pins {
		if p.Author == nil {
			t.Errorf("pins[%d].Author is nil, want hydrated author", i)
			continue
		}
		if p.Author.UserID != p.UserID {
			t.Errorf("pins[%d] author mismatch: got user %d, want %d", i, p.Author.UserID, p.UserID)
		}
	}
}

func TestFeedService_GetFeed_AuthorFailureLeavesNil(t *testing.T) {
	feedCache := &mockFeedCache{
		getRecentFn: func(ctx context.Context, limit int) ([]int64, error) {
			return []int64{1, 2}, nil
		},
	}
	profileRepo := &mockProfileRepository{
		getSummaryByUserIDFn: func(ctx context.Context, userID int64) (*model.ProfileSummary, error) {
			if userID == 10 { // pin 1's author
				return nil, errors.New("connection refused")
			}
			return &model.ProfileSummary{UserID: userID, Username: "someone"}, nil
		},
	}
	svc := NewFeedService(feedCache, &mockPinRepository{}, profileRepo, &mockEngagementRepository{})

	pins, err := svc.GetFeed(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("GetFeed should tolerate author lookup failure, got: %v", err)
	}

	if pins[0].Author != nil {
		t.Error("pin with failed author lookup should have nil Author")
	}
	if pins[1].Author == nil {
		t.Error("pin with working author lookup should have Author set")
	}
}

func TestFeedService_GetFeed_AnonymousSkipsFlags(t *testing.T) {
	feedCache := &mockFeedCache{
		getRecentFn: func(ctx context.Context, limit int) ([]int64, error) {
			return []int64{1, 2}, nil
		},
	}
	engagementRepo := &mockEngagementRepository{}
	svc := NewFeedService(feedCache, &mockPinRepository{}, &mockProfileRepository{}, engagementRepo)

	pins, err := svc.GetFeed(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}

	for i, p := range pins {
		if p.Liked || p.Saved {
			t.Errorf("pins[%d]: anonymous viewer must see liked=false saved=false", i)
		}
	}
	if engagementRepo.checkLikesCalls != 0 || engagementRepo.checkSavesCalls != 0 {
		t.Error("engagement lookups should not run for anonymous viewers")
	}
}

func TestFeedService_GetFeed_ViewerFlags(t *testing.T) {
	feedCache := &mockFeedCache{
		getRecentFn: func(ctx context.Context, limit int) ([]int64, error) {
			return []int64{1, 2, 3}, nil
		},
	}
	engagementRepo := &mockEngagementRepository{
		checkLikesFn: func(ctx context.Context, userID int64, pinIDs []int64) (map[int64]bool, error) {
			return map[int64]bool{1: true}, nil
		},
		checkSavesFn: func(ctx context.Context, userID int64, pinIDs []int64) (map[int64]bool, error) {
			return map[int64]bool{2: true}, nil
		},
	}
	svc := NewFeedService(feedCache, &mockPinRepository{}, &mockProfileRepository{}, engagementRepo)

	viewer := int64(42)
	pins, err := svc.GetFeed(context.Background(), &viewer, "")
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}

	if !pins[0].Liked || pins[0].Saved {
		t.Errorf("pin 1: got liked=%v saved=%v, want liked=true saved=false", pins[0].Liked, pins[0].Saved)
	}
	if pins[1].Liked || !pins[1].Saved {
		t.Errorf("pin 2: got liked=%v saved=%v, want liked=false saved=true", pins[1].Liked, pins[1].Saved)
	}
	if pins[2].Liked || pins[2].Saved {
		t.Errorf("pin 3: got liked=%v saved=%v, want both false", pins[2].Liked, pins[2].Saved)
	}
}

func TestFeedService_GetFeed_WarmsColdCache(t *testing.T) {
	scores := []cache.PinScore{{PinID: 5, Timestamp: 500}, {PinID: 4, Timestamp: 400}}

	cold := true
	feedCache := &mockFeedCache{
		existsFn: func(ctx context.Context) (bool, error) {
			return !cold, nil
		},
		getRecentFn: func(ctx context.Context, limit int) ([]int64, error) {
			return []int64{5, 4}, nil
		},
	}
	pinRepo := &mockPinRepository{
		getFeedScoresFn: func(ctx context.Context, limit int) ([]cache.PinScore, error) {
			return scores, nil
		},
	}
	svc := NewFeedService(feedCache, pinRepo, &mockProfileRepository{}, &mockEngagementRepository{})

	pins, err := svc.GetFeed(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}

	if feedCache.warmCalls != 1 {
		t.Errorf("Warm called %d times, want 1", feedCache.warmCalls)
	}
	if len(feedCache.warmed) != 2 {
		t.Errorf("warmed %d entries, want 2", len(feedCache.warmed))
	}
	if len(pins) != 2 || pins[0].ID != 5 {
		t.Errorf("unexpected feed after warm: %+v", pins)
	}
}

func TestFeedService_GetFeed_CacheFailureFallsBackToDB(t *testing.T) {
	feedCache := &mockFeedCache{
		existsFn: func(ctx context.Context) (bool, error) {
			return false, errors.New("redis down")
		},
	}
	pinRepo := &mockPinRepository{
		listRecentFn: func(ctx context.Context, limit int) ([]model.Pin, error) {
			return []model.Pin{{ID: 9, UserID: 90, Title: "from db"}}, nil
		},
	}
	svc := NewFeedService(feedCache, pinRepo, &mockProfileRepository{}, &mockEngagementRepository{})

	pins, err := svc.GetFeed(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("GetFeed should fall back to db, got: %v", err)
	}
	if len(pins) != 1 || pins[0].ID != 9 {
		t.Errorf("expected db fallback pin, got: %+v", pins)
	}
}
