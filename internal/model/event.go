package model

import (
	"time"
)

// EventType identifies the kind of change an ItemEvent describes.
type EventType string

// Item event types.
const (
	EventItemCreated      EventType = "item.created"
	EventItemUpdated      EventType = "item.updated"
	EventItemStockUpdated EventType = "item.stock_updated"
	EventItemDeleted      EventType = "item.deleted"
)

// ItemEvent describes a committed change to the catalog.
// Item is nil for deletions.
type ItemEvent struct {
	Type      EventType `json:"type"`
	ItemID    int64     `json:"item_id"`
	Item      *Item     `json:"item,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewItemEvent creates an event carrying a copy of item.
func NewItemEvent(eventType EventType, item Item) ItemEvent {
	return ItemEvent{
		Type:      eventType,
		ItemID:    item.ID,
		Item:      &item,
		Timestamp: time.Now().UTC(),
	}
}

// NewItemDeletedEvent creates an event for a removed item.
func NewItemDeletedEvent(id int64) ItemEvent {
	return ItemEvent{
		Type:      EventItemDeleted,
		ItemID:    id,
		Timestamp: time.Now().UTC(),
	}
}
