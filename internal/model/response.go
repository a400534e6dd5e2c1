package model

import (
	"time"
)

// APIResponse is the uniform envelope for every API response.
type APIResponse[T any] struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      T         `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](message string, data T) APIResponse[T] {
	return APIResponse[T]{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// NewErrorResponse creates an error API response without data.
func NewErrorResponse[T any](message string) APIResponse[T] {
	return APIResponse[T]{
		Success:   false,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationErrorResponse creates an error API response carrying
// the per-field reasons of a validation failure.
func NewValidationErrorResponse(err *ValidationError) APIResponse[map[string]string] {
	return APIResponse[map[string]string]{
		Success:   false,
		Message:   ErrValidation.Error(),
		Data:      err.Fields,
		Timestamp: time.Now().UTC(),
	}
}
