// Package service implements the catalog business rules on top of a store.
package service

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-service/internal/model"
	"github.com/vyrodovalexey/catalog-service/internal/store"
)

// Operation names reported to a Recorder.
const (
	OpCreate      = "create"
	OpGet         = "get"
	OpList        = "list"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpExists      = "exists"
	OpCount       = "count"
	OpByCategory  = "by_category"
	OpInStock     = "in_stock"
	OpUpdateStock = "update_stock"
)

// Operation results reported to a Recorder.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// Publisher receives an event after every committed mutation.
type Publisher interface {
	Publish(event model.ItemEvent)
}

// Recorder counts service operations by outcome.
type Recorder interface {
	RecordOperation(operation, result string)
}

// Option configures an ItemService.
type Option func(*ItemService)

// WithPublisher sets the publisher notified of committed mutations.
func WithPublisher(p Publisher) Option {
	return func(s *ItemService) {
		s.publisher = p
	}
}

// WithRecorder sets the recorder of operation outcomes.
func WithRecorder(r Recorder) Option {
	return func(s *ItemService) {
		s.recorder = r
	}
}

// ItemService enforces existence checks and field validation before
// delegating to the store. It is safe for concurrent use.
type ItemService struct {
	store     store.Store
	logger    *zap.Logger
	publisher Publisher
	recorder  Recorder

	// writeMu covers a mutation and the publish of its event, so events
	// reach the publisher in commit order.
	writeMu sync.Mutex
}

// NewItemService creates a new ItemService instance.
func NewItemService(s store.Store, logger *zap.Logger, opts ...Option) *ItemService {
	svc := &ItemService{
		store:  s,
		logger: logger,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// CreateItem validates candidate and stores it under a new ID.
// Any ID set on candidate is discarded.
func (s *ItemService) CreateItem(candidate model.Item) (model.Item, error) {
	candidate.ID = 0

	if err := candidate.Validate(); err != nil {
		s.record(OpCreate, err)
		return model.Item{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	created := s.store.Create(candidate)

	s.logger.Debug("item created", zap.Int64("id", created.ID), zap.String("name", created.Name))
	s.record(OpCreate, nil)
	s.publish(model.NewItemEvent(model.EventItemCreated, created))

	return created, nil
}

// GetItemByID returns the item with the given ID.
func (s *ItemService) GetItemByID(id int64) (model.Item, error) {
	item, ok := s.store.FindByID(id)
	if !ok {
		err := notFound(id)
		s.record(OpGet, err)
		return model.Item{}, err
	}

	s.record(OpGet, nil)
	return item, nil
}

// GetAllItems returns every item in insertion order.
func (s *ItemService) GetAllItems() []model.Item {
	s.record(OpList, nil)
	return s.store.FindAll()
}

// UpdateItem replaces every field but the ID of an existing item.
// It never creates an item.
func (s *ItemService) UpdateItem(id int64, payload model.Item) (model.Item, error) {
	if err := payload.Validate(); err != nil {
		s.record(OpUpdate, err)
		return model.Item{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.store.ExistsByID(id) {
		err := notFound(id)
		s.record(OpUpdate, err)
		return model.Item{}, err
	}

	// The store may also be changed by writers outside this service.
	updated, ok := s.store.Update(id, payload)
	if !ok {
		err := notFound(id)
		s.record(OpUpdate, err)
		return model.Item{}, err
	}

	s.logger.Debug("item updated", zap.Int64("id", id))
	s.record(OpUpdate, nil)
	s.publish(model.NewItemEvent(model.EventItemUpdated, updated))

	return updated, nil
}

// DeleteItem removes the item with the given ID.
func (s *ItemService) DeleteItem(id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.store.ExistsByID(id) {
		err := notFound(id)
		s.record(OpDelete, err)
		return err
	}

	if !s.store.DeleteByID(id) {
		err := notFound(id)
		s.record(OpDelete, err)
		return err
	}

	s.logger.Debug("item deleted", zap.Int64("id", id))
	s.record(OpDelete, nil)
	s.publish(model.NewItemDeletedEvent(id))

	return nil
}

// ItemExists reports whether an item with the given ID exists.
func (s *ItemService) ItemExists(id int64) bool {
	s.record(OpExists, nil)
	return s.store.ExistsByID(id)
}

// GetTotalItemCount returns the number of items.
func (s *ItemService) GetTotalItemCount() int {
	s.record(OpCount, nil)
	return s.store.Count()
}

// GetItemsByCategory returns the items of a category, ignoring case.
func (s *ItemService) GetItemsByCategory(category string) []model.Item {
	s.record(OpByCategory, nil)
	return s.store.FindByCategory(category)
}

// IsInStock reports whether the item exists and has stock above zero.
func (s *ItemService) IsInStock(id int64) (bool, error) {
	item, ok := s.store.FindByID(id)
	if !ok {
		err := notFound(id)
		s.record(OpInStock, err)
		return false, err
	}

	s.record(OpInStock, nil)
	return item.InStock(), nil
}

// UpdateStock sets the stock of an existing item, leaving every other
// field untouched. Concurrent writers to the same item are last-writer-wins.
func (s *ItemService) UpdateStock(id int64, quantity int) (model.Item, error) {
	if quantity < 0 {
		err := model.NewValidationError("stock", "Stock quantity cannot be negative")
		s.record(OpUpdateStock, err)
		return model.Item{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	updated, ok := s.store.UpdateFunc(id, func(current model.Item) model.Item {
		current.Stock = quantity
		return current
	})
	if !ok {
		err := notFound(id)
		s.record(OpUpdateStock, err)
		return model.Item{}, err
	}

	s.logger.Debug("item stock updated", zap.Int64("id", id), zap.Int("stock", quantity))
	s.record(OpUpdateStock, nil)
	s.publish(model.NewItemEvent(model.EventItemStockUpdated, updated))

	return updated, nil
}

func (s *ItemService) publish(event model.ItemEvent) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

func (s *ItemService) record(operation string, err error) {
	if s.recorder == nil {
		return
	}

	s.recorder.RecordOperation(operation, resultOf(err))
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrNotFound):
		return ResultNotFound
	case errors.Is(err, model.ErrValidation):
		return ResultInvalid
	default:
		return ResultError
	}
}
