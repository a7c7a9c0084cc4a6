// Package journal records applied update batches in an append-only SQLite log.
package journal

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is one applied batch.
type Entry struct {
	ID           string          `json:"id"`
	AppliedAt    time.Time       `json:"applied_at"`
	ActorID      string          `json:"actor_id,omitempty"`
	ActorAccount string          `json:"actor_account,omitempty"`
	RequestID    string          `json:"request_id,omitempty"`
	Matched      int             `json:"matched"`
	Ignored      int             `json:"ignored"`
	Batch        json.RawMessage `json:"batch"`
}

// ListParams holds parameters for listing entries.
type ListParams struct {
	ActorID string
	Limit   int
}

// Journal defines the update log interface.
type Journal interface {
	// Append stores an entry, assigning its ID and AppliedAt.
	Append(ctx context.Context, e Entry) (*Entry, error)

	// List returns entries newest first.
	List(ctx context.Context, p ListParams) ([]Entry, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Close closes the journal.
	Close() error
}
