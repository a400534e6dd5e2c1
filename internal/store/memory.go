package store

import (
	"strings"
	"sync"

	"github.com/vyrodovalexey/catalog-service/internal/model"
)

// MemoryStore implements Store interface with in-memory storage.
// Items are kept in insertion order; index maps an ID to its position.
type MemoryStore struct {
	mu     sync.RWMutex
	items  []model.Item
	index  map[int64]int
	nextID int64
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:  make([]model.Item, 0),
		index:  make(map[int64]int),
		nextID: 1,
	}
}

// Create adds a new item to the store and returns the created item with generated ID.
func (s *MemoryStore) Create(candidate model.Item) model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate.ID = s.nextID
	s.nextID++

	s.index[candidate.ID] = len(s.items)
	s.items = append(s.items, candidate)

	return candidate
}

// FindByID retrieves an item by its ID.
func (s *MemoryStore) FindByID(id int64) (model.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, exists := s.index[id]
	if !exists {
		return model.Item{}, false
	}

	return s.items[pos], true
}

// FindAll returns all items from the store.
func (s *MemoryStore) FindAll() []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, len(s.items))
	copy(items, s.items)

	return items
}

// Update modifies an existing item in the store.
func (s *MemoryStore) Update(id int64, replacement model.Item) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.index[id]
	if !exists {
		return model.Item{}, false
	}

	replacement.ID = id
	s.items[pos] = replacement

	return replacement, true
}

// UpdateFunc applies fn to the current item and stores the result in place.
func (s *MemoryStore) UpdateFunc(id int64, fn func(model.Item) model.Item) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.index[id]
	if !exists {
		return model.Item{}, false
	}

	updated := fn(s.items[pos])
	updated.ID = id
	s.items[pos] = updated

	return updated, true
}

// DeleteByID removes an item from the store by its ID.
func (s *MemoryStore) DeleteByID(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.index[id]
	if !exists {
		return false
	}

	s.items = append(s.items[:pos], s.items[pos+1:]...)
	delete(s.index, id)

	for i := pos; i < len(s.items); i++ {
		s.index[s.items[i].ID] = i
	}

	return true
}

// ExistsByID reports whether an item with the given ID is stored.
func (s *MemoryStore) ExistsByID(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.index[id]
	return exists
}

// Count returns the number of stored items.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// FindByCategory returns items in the given category, case-insensitively.
func (s *MemoryStore) FindByCategory(category string) []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, 0)
	for _, item := range s.items {
		if item.Category != "" && strings.EqualFold(item.Category, category) {
			items = append(items, item)
		}
	}

	return items
}
