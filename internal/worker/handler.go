package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"pinboard/internal/cache"
	"pinboard/internal/queue"
)

// Handler applies pin events from the queue to the feed cache.
type Handler struct {
	feedCache cache.FeedCache
}

// NewHandler creates a new event handler.
func NewHandler(feedCache cache.FeedCache) *Handler {
	return &Handler{feedCache: feedCache}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.PinEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventPinCreated:
		err = h.handlePinCreated(ctx, event)
	case queue.EventPinDeleted:
		err = h.handlePinDeleted(ctx, event)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

// handlePinCreated adds a new pin to the feed cache.
func (h *Handler) handlePinCreated(ctx context.Context, event queue.PinEvent) error {
	log.Printf("[Worker] PinCreated: pin=%d author=%d", event.PinID, event.AuthorID)

	if err := h.feedCache.AddPin(ctx, event.PinID, event.Timestamp); err != nil {
		return fmt.Errorf("add pin to feed cache: %w", err)
	}
	return nil
}

// handlePinDeleted removes a pin from the feed cache.
func (h *Handler) handlePinDeleted(ctx context.Context, event queue.PinEvent) error {
	log.Printf("[Worker] PinDeleted: pin=%d author=%d", event.PinID, event.AuthorID)

	if err := h.feedCache.RemovePin(ctx, event.PinID); err != nil {
		return fmt.Errorf("remove pin from feed cache: %w", err)
	}
	return nil
}
