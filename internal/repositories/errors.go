package repositories

import "errors"

var (
	// ErrInvalidInput is returned when a required field is empty.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists is returned when an email or product name is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrStorage wraps any failure reported by the database driver.
	ErrStorage = errors.New("storage failure")
	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = errors.New("catalog store is closed")
)
