// Package store provides the record store interface and its file-backed implementation.
package store

import (
	"context"
	"time"

	"github.com/rcliao/recordstore/internal/model"
)

// MergeResult summarizes a MergeUpdate call.
type MergeResult struct {
	Matched int  `json:"matched"` // existing records that had a batch entry
	Ignored int  `json:"ignored"` // distinct batch ids with no record
	Changed bool `json:"changed"` // false when the document was left as is
}

// Stats describes the backing document.
type Stats struct {
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
	Records    int       `json:"records"`
	MetaKeys   []string  `json:"meta_keys,omitempty"`
}

// Store defines the record store interface.
type Store interface {
	// GetAll returns the full document in stored order.
	GetAll(ctx context.Context) (*model.Document, error)

	// MergeUpdate applies a batch of partial records by id and persists the result.
	// Later entries win over earlier ones with the same id; unknown ids are ignored.
	MergeUpdate(ctx context.Context, batch []model.Record) (*MergeResult, error)

	// Stats reports on the backing document.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the store.
	Close() error
}
