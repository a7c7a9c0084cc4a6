// Package model defines the record store's document types.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

// IDField is the reserved field that identifies a record.
const IDField = "id"

var (
	ErrMissingID   = errors.New("record has no id")
	ErrNullID      = errors.New("record id is null")
	ErrNonScalarID = errors.New("record id is not a scalar")
)

// Record is a schema-free JSON object carrying a unique id.
// Numbers decoded by this package are json.Number so they round-trip unchanged.
type Record map[string]any

// Key is the comparable identity of a record id. Ids compare by JSON type
// and value: 1 and 1.0 share a key, 1 and "1" do not.
type Key string

// ID returns the raw id value and whether the field is present.
func (r Record) ID() (any, bool) {
	v, ok := r[IDField]
	return v, ok
}

// Key returns the identity key of the record.
func (r Record) Key() (Key, error) {
	v, ok := r.ID()
	if !ok {
		return "", ErrMissingID
	}
	return KeyOf(v)
}

// Clone returns a deep copy of the record. Nested objects and arrays are
// copied as well, so the result shares no mutable state with r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge returns a new record with every field of patch written over r.
// Nested values are replaced wholesale, never deep-merged. Values taken from
// patch are copied so later changes to patch do not reach the result.
func (r Record) Merge(patch Record) Record {
	out := make(Record, len(r)+len(patch))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case Record:
		return t.Clone()
	case []any:
		if t == nil {
			return t
		}
		a := make([]any, len(t))
		for i, e := range t {
			a[i] = cloneValue(e)
		}
		return a
	default:
		return v
	}
}

// KeyOf computes the identity key of an id value.
func KeyOf(v any) (Key, error) {
	switch id := v.(type) {
	case nil:
		return "", ErrNullID
	case string:
		return Key("s:" + id), nil
	case bool:
		return Key("b:" + strconv.FormatBool(id)), nil
	case json.Number:
		return numberKey(string(id))
	case float64:
		return numberKey(strconv.FormatFloat(id, 'g', -1, 64))
	case float32:
		return numberKey(strconv.FormatFloat(float64(id), 'g', -1, 32))
	case int:
		return numberKey(strconv.FormatInt(int64(id), 10))
	case int64:
		return numberKey(strconv.FormatInt(id, 10))
	case int32:
		return numberKey(strconv.FormatInt(int64(id), 10))
	case uint64:
		return numberKey(strconv.FormatUint(id, 10))
	default:
		return "", fmt.Errorf("%w: %T", ErrNonScalarID, v)
	}
}

// numberKey normalizes a decimal literal so that equal values share a key.
func numberKey(s string) (Key, error) {
	f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
	if err != nil {
		return "", fmt.Errorf("%w: bad number %q", ErrNonScalarID, s)
	}
	return Key("n:" + f.Text('g', -1)), nil
}
