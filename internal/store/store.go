// Package store provides data storage interfaces and implementations.
package store

import (
	"github.com/vyrodovalexey/catalog-service/internal/model"
)

// Store defines the item storage primitives.
// Absence is reported through boolean results, never through errors.
// Every returned item or slice is a copy owned by the caller.
type Store interface {
	// Create assigns the next identifier to candidate, appends it and
	// returns the stored item. Any ID on candidate is ignored.
	Create(candidate model.Item) model.Item

	// FindByID retrieves an item by its ID.
	FindByID(id int64) (model.Item, bool)

	// FindAll returns a snapshot of all items in insertion order.
	FindAll() []model.Item

	// Update replaces the item with the given ID in place.
	// It returns false and changes nothing when the ID is unknown.
	Update(id int64, replacement model.Item) (model.Item, bool)

	// UpdateFunc replaces the item with the given ID by fn(current)
	// while holding the write lock.
	UpdateFunc(id int64, fn func(model.Item) model.Item) (model.Item, bool)

	// DeleteByID removes an item and reports whether one was removed.
	DeleteByID(id int64) bool

	// ExistsByID reports whether an item with the given ID exists.
	ExistsByID(id int64) bool

	// Count returns the number of stored items.
	Count() int

	// FindByCategory returns the items whose category equals category,
	// ignoring case, in insertion order.
	FindByCategory(category string) []model.Item
}
