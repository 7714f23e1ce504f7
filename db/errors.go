package db

import (
	"errors"
	"fmt"

	"tool_lending_tracker/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")

	ErrToolNotFound     = fmt.Errorf("tool %w", ErrNotFound)
	ErrNoOpenIssue      = fmt.Errorf("open issue record %w", ErrNotFound)
	ErrNoPendingRequest = fmt.Errorf("pending request %w", ErrNotFound)

	ErrAlreadyIssued    = fmt.Errorf("%w: tool already issued", ErrInvalidState)
	ErrDuplicateRequest = fmt.Errorf("%w: request already pending", ErrInvalidState)
)

// StorageError wraps a failure of the underlying database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: storage: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// classify keeps domain errors as they are and wraps everything else.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidState), errors.Is(err, ErrInvalidInput):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func wrapGuard(base error, g models.GuardResult) error {
	return fmt.Errorf("%w (%s)", base, g.Reason)
}
