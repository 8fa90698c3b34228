package domain

import "errors"

// ErrContextNotFound is returned when a context ID cannot be found in the store.
var ErrContextNotFound = errors.New("context not found")
