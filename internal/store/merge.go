package store

import (
	"fmt"
	"reflect"

	"github.com/rcliao/recordstore/internal/model"
)

// indexBatch validates a batch and maps each id to its last entry.
func indexBatch(batch []model.Record) (map[model.Key]model.Record, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, model.ErrEmptyBatch)
	}
	lookup := make(map[model.Key]model.Record, len(batch))
	for i, entry := range batch {
		if entry == nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidRequest, i, model.ErrBadRecord)
		}
		key, err := entry.Key()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidRequest, i, err)
		}
		lookup[key] = entry
	}
	return lookup, nil
}

// mergeRecords applies lookup to records in order and returns a new slice.
// records is not modified. Records without a usable id pass through.
func mergeRecords(records []model.Record, lookup map[model.Key]model.Record) ([]model.Record, MergeResult) {
	var res MergeResult
	out := make([]model.Record, len(records))
	seen := make(map[model.Key]bool, len(lookup))

	for i, rec := range records {
		out[i] = rec
		key, err := rec.Key()
		if err != nil {
			continue
		}
		patch, ok := lookup[key]
		if !ok {
			continue
		}
		seen[key] = true
		res.Matched++
		if changes(rec, patch) {
			out[i] = rec.Merge(patch)
			res.Changed = true
		}
	}

	for key := range lookup {
		if !seen[key] {
			res.Ignored++
		}
	}
	return out, res
}

func changes(rec, patch model.Record) bool {
	for k, v := range patch {
		cur, ok := rec[k]
		if !ok || !reflect.DeepEqual(cur, v) {
			return true
		}
	}
	return false
}

// validateIDs checks that records carry distinct, non-null scalar ids.
func validateIDs(records []model.Record) error {
	seen := make(map[model.Key]int, len(records))
	for i, rec := range records {
		key, err := rec.Key()
		if err != nil {
			return fmt.Errorf("%w: record %d: %w", ErrInvalidRequest, i, err)
		}
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("%w: records %d and %d share id %v", ErrInvalidRequest, prev, i, rec[model.IDField])
		}
		seen[key] = i
	}
	return nil
}
