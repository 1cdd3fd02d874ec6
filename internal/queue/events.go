package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the pin stream
const (
	EventPinCreated = "pin_created"
	EventPinDeleted = "pin_deleted"
)

// Stream names
const (
	StreamPins = "stream:pins"
)

// Consumer group name for feed workers
const (
	ConsumerGroupFeed = "feed_workers"
)

// PinEvent represents an event published to the pin stream. Workers apply
// these to the feed cache so the newest-first pin set stays current without
// touching the write path.
type PinEvent struct {
	Type      string `json:"type"`      // EventPinCreated, EventPinDeleted
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	PinID    int64 `json:"pin_id"`
	AuthorID int64 `json:"author_id"`
}

// NewPinCreatedEvent creates an event for when a user creates a pin.
func NewPinCreatedEvent(pinID, authorID int64) PinEvent {
	return PinEvent{
		Type:      EventPinCreated,
		Timestamp: time.Now().Unix(),
		PinID:     pinID,
		AuthorID:  authorID,
	}
}

// NewPinDeletedEvent creates an event for when a user deletes a pin.
func NewPinDeletedEvent(pinID, authorID int64) PinEvent {
	return PinEvent{
		Type:      EventPinDeleted,
		Timestamp: time.Now().Unix(),
		PinID:     pinID,
		AuthorID:  authorID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so the event is serialized to JSON
// in a "data" field with the type duplicated for quick inspection.
func (e PinEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParsePinEvent parses a PinEvent from Redis stream message values.
func ParsePinEvent(values map[string]interface{}) (PinEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return PinEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event PinEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return PinEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
