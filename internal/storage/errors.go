package storage

import "errors"

// ErrNotFound is returned when a requested label does not exist.
var ErrNotFound = errors.New("not found")

// ErrReadOnly is returned when attempting to write to a read-only store.
var ErrReadOnly = errors.New("storage is read-only")
