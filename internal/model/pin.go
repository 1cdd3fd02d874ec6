package model

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

// Pin represents a single user-submitted image post with metadata.
type Pin struct {
	ID          int64          `db:"id" json:"id"`
	UserID      int64          `db:"user_id" json:"user_id"`
	Title       string         `db:"title" json:"title"`
	Description *string        `db:"description" json:"description"`
	ImageURL    string         `db:"image_url" json:"image_url"`
	ImageKey    string         `db:"image_key" json:"-"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	LikeCount   int            `db:"like_count" json:"like_count"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time     `db:"deleted_at" json:"-"`
}

// FeedPin is a pin enriched for feed display. Author is nil when the
// profile lookup failed or the author never created a profile; clients
// render an "Unknown User" fallback in that case.
type FeedPin struct {
	Pin
	Author *ProfileSummary `json:"author"`
	Liked  bool            `json:"liked"`
	Saved  bool            `json:"saved"`
}

// FeedResponse is the feed payload. Columns is only populated when the
// caller supplies a viewport width for masonry layout.
type FeedResponse struct {
	Pins    []FeedPin   `json:"pins"`
	Columns [][]FeedPin `json:"columns,omitempty"`
}

// Pin constants
const (
	MaxPinTitleLength = 200
	MaxPinImageSize   = 10 * 1024 * 1024 // 10 MiB per image
)

// Pin errors
var (
	ErrPinNotFound   = errors.New("pin not found")
	ErrNotPinOwner   = errors.New("not the owner of this pin")
	ErrTitleRequired = errors.New("title is required")
	ErrTitleTooLong  = errors.New("title too long")
	ErrImageRequired = errors.New("image is required")
)
