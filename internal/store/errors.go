package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")

	// ErrStaleVersion signals an optimistic-concurrency conflict: the row
	// exists but was updated since it was read. Callers retry by re-reading.
	ErrStaleVersion = errors.New("stale version")
)
