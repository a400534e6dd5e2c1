// Package model defines data structures used throughout the application.
package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Validation constants.
const (
	MinNameLength = 2
	MaxNameLength = 100
)

// Item represents a catalog entry.
type Item struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name" validate:"required,notblank,min=2,max=100"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price" validate:"decimal_gte=0.01"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Category    string          `json:"category,omitempty"`
}

// MarshalJSON writes Price as a JSON number carrying every digit of the
// decimal.
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          int64       `json:"id"`
		Name        string      `json:"name"`
		Description string      `json:"description,omitempty"`
		Price       json.Number `json:"price"`
		Stock       int         `json:"stock"`
		Category    string      `json:"category,omitempty"`
	}{
		ID:          i.ID,
		Name:        i.Name,
		Description: i.Description,
		Price:       json.Number(i.Price.String()),
		Stock:       i.Stock,
		Category:    i.Category,
	})
}

// Validate checks if the Item has valid field values.
// It returns a *ValidationError listing every failing field.
func (i *Item) Validate() error {
	return validateStruct(i)
}

// InStock reports whether at least one unit is available.
func (i *Item) InStock() bool {
	return i.Stock > 0
}

// ItemRequest is the payload accepted for create and full-replace updates.
// Price and Stock are pointers so that a missing value can be told apart
// from an explicit zero.
type ItemRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Stock       *int             `json:"stock" validate:"required"`
	Category    string           `json:"category"`
}

// ToItem converts the request into an Item without an ID.
// Missing price or stock become zero values.
func (r *ItemRequest) ToItem() Item {
	item := Item{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
	}

	if r.Price != nil {
		item.Price = *r.Price
	}

	if r.Stock != nil {
		item.Stock = *r.Stock
	}

	return item
}

// Validate checks presence of required fields and the bounds of every field.
// Presence failures take precedence over bound failures for the same field.
func (r *ItemRequest) Validate() error {
	fields := make(map[string]string)

	item := r.ToItem()
	if err := mergeFieldErrors(fields, item.Validate()); err != nil {
		return err
	}

	if err := mergeFieldErrors(fields, validateStruct(r)); err != nil {
		return err
	}

	if len(fields) == 0 {
		return nil
	}

	return &ValidationError{Fields: fields}
}
