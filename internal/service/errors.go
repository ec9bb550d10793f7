package service

import (
	"context"
	"errors"
	"fmt"
)

// Engine error taxonomy. A query that simply matches nothing is never an
// error - empty results are values the orchestration layer handles with
// fallback logic.
var (
	// ErrNotFound means the product reference store holds zero rows.
	ErrNotFound = errors.New("product reference store is empty")

	// ErrEmptyDataset means the cost table holds zero rows.
	ErrEmptyDataset = errors.New("cost dataset is empty")

	// ErrStorageUnavailable means the reference store is unreachable or corrupt.
	ErrStorageUnavailable = errors.New("reference store unavailable")
)

// Kind classifies an error for the structured boundary payload.
type Kind string

// Error kinds surfaced at the API boundary.
const (
	KindNotFound           Kind = "not_found"
	KindEmptyDataset       Kind = "empty_dataset"
	KindStorageUnavailable Kind = "storage_unavailable"
	KindInvalidArgument    Kind = "invalid_argument"
	KindInternal           Kind = "internal"
)

// Classify maps an engine error to its boundary kind.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrEmptyDataset):
		return KindEmptyDataset
	case errors.Is(err, ErrStorageUnavailable):
		return KindStorageUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindInternal
	default:
		return KindInternal
	}
}

// UserError pairs an internal error with a message fit for the caller.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
