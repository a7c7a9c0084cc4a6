package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DataField is the top-level key holding the record collection.
const DataField = "data"

var (
	ErrNotObject      = errors.New("document is not a JSON object")
	ErrNoData         = errors.New(`document has no "data" array`)
	ErrBadRecord      = errors.New("record is not a JSON object")
	ErrEmptyBatch     = errors.New("batch is empty")
	ErrMalformedBatch = errors.New("batch is not an array of objects")
)

// Document is the durable unit of storage: a "data" array of records plus
// any sibling top-level keys, which are carried through rewrites untouched.
type Document struct {
	Data  []Record
	Extra map[string]json.RawMessage
}

// UnmarshalJSON decodes a document, keeping numbers as json.Number.
func (d *Document) UnmarshalJSON(b []byte) error {
	if !startsWith(b, '{') {
		return ErrNotObject
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil {
		return err
	}
	raw, ok := top[DataField]
	if !ok || !startsWith(raw, '[') {
		return ErrNoData
	}
	records, err := decodeRecords(raw)
	if err != nil {
		return err
	}
	delete(top, DataField)
	if len(top) == 0 {
		top = nil
	}
	d.Data = records
	d.Extra = top
	return nil
}

// MarshalJSON encodes the document without HTML escaping. Keys are emitted
// in sorted order at every level.
func (d Document) MarshalJSON() ([]byte, error) {
	data := d.Data
	if data == nil {
		data = []Record{}
	}
	rawData, err := encodeJSON(data)
	if err != nil {
		return nil, err
	}
	top := make(map[string]json.RawMessage, len(d.Extra)+1)
	for k, v := range d.Extra {
		top[k] = v
	}
	top[DataField] = rawData
	return encodeJSON(top)
}

// Clone returns a deep copy of d. Nothing reachable from the result is
// shared with d.
func (d *Document) Clone() *Document {
	out := &Document{Data: make([]Record, len(d.Data))}
	for i, r := range d.Data {
		out.Data[i] = r.Clone()
	}
	if d.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(d.Extra))
		for k, v := range d.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// ParseBatch decodes a request body into an ordered batch of partial records.
func ParseBatch(b []byte) ([]Record, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil, ErrEmptyBatch
	}
	if !startsWith(b, '[') {
		return nil, ErrMalformedBatch
	}
	records, err := decodeRecords(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBatch, err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyBatch
	}
	return records, nil
}

func decodeRecords(raw []byte) ([]Record, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(items))
	for i, item := range items {
		if !startsWith(item, '{') {
			return nil, fmt.Errorf("%w: index %d", ErrBadRecord, i)
		}
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		var r Record
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func startsWith(b []byte, c byte) bool {
	b = bytes.TrimLeft(b, " \t\r\n")
	return len(b) > 0 && b[0] == c
}
