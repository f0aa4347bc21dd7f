// Package storage defines the result record and the interface implemented by
// the result storage backends.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by backends that support reads when no record
// matches.
var ErrNotFound = errors.New("storage: record not found")

// Store persists detection summaries.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Close() error
}

// Reader fetches the newest record stored for a date.
type Reader interface {
	Get(ctx context.Context, date time.Time) (*Record, error)
}

// ReadStore is a Store that can also be read back.
type ReadStore interface {
	Store
	Reader
}
