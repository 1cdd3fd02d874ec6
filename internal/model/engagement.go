package model

import "errors"

// Likes and saves share one shape: a (user, pin) pair with a uniqueness
// invariant enforced by the database. Saves are private bookmarks, only
// ever visible to their owner; likes are public and counted on the pin.

var (
	ErrAlreadyLiked = errors.New("pin already liked")
	ErrNotLiked     = errors.New("pin not liked")
	ErrAlreadySaved = errors.New("pin already saved")
	ErrNotSaved     = errors.New("pin not saved")
)

// EngagementState is returned after a like/save mutation so clients flip
// their local toggle only on confirmed success.
type EngagementState struct {
	PinID     int64 `json:"pin_id"`
	Liked     bool  `json:"liked"`
	Saved     bool  `json:"saved"`
	LikeCount int   `json:"like_count"`
}
