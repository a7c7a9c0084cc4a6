package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/recordstore/internal/model"
)

// FileStore implements Store on a single JSON document on disk.
//
// MergeUpdate holds the write lock across read, merge and write, so
// concurrent updates never lose each other's changes. GetAll takes the read
// lock. The document is replaced by rename, never edited in place.
type FileStore struct {
	path   string
	log    zerolog.Logger
	rename func(oldpath, newpath string) error

	mu sync.RWMutex

	cacheMu sync.Mutex
	cache   *snapshot
}

// snapshot is a parsed document together with the file state it was read from.
type snapshot struct {
	size    int64
	modTime time.Time
	doc     *model.Document
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger sets the logger used for store events.
func WithLogger(l zerolog.Logger) Option {
	return func(s *FileStore) { s.log = l }
}

// NewFileStore returns a store backed by the document at path. The file is
// not opened until the first operation; a missing file surfaces as
// ErrStorageUnavailable then.
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path:   path,
		log:    zerolog.Nop(),
		rename: os.Rename,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the document path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) GetAll(ctx context.Context) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, _, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

func (s *FileStore) MergeUpdate(ctx context.Context, batch []model.Record) (*MergeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lookup, err := indexBatch(batch)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := s.load()
	if err != nil {
		return nil, err
	}

	records, res := mergeRecords(doc.Data, lookup)
	if !res.Changed {
		s.log.Debug().Int("matched", res.Matched).Int("ignored", res.Ignored).Msg("merge left document unchanged")
		return &res, nil
	}

	next := &model.Document{Data: records, Extra: doc.Extra}
	if err := s.write(next); err != nil {
		return nil, err
	}

	s.log.Debug().
		Int("batch", len(batch)).
		Int("matched", res.Matched).
		Int("ignored", res.Ignored).
		Msg("document updated")
	return &res, nil
}

func (s *FileStore) Stats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, info, err := s.load()
	if err != nil {
		return nil, err
	}

	st := &Stats{
		Path:       s.path,
		SizeBytes:  info.Size(),
		ModifiedAt: info.ModTime().UTC(),
		Records:    len(doc.Data),
	}
	for k := range doc.Extra {
		st.MetaKeys = append(st.MetaKeys, k)
	}
	sort.Strings(st.MetaKeys)
	return st, nil
}

// Close is a no-op; the file is only open during an operation.
func (s *FileStore) Close() error {
	return nil
}

// load returns the current document. The file is opened on every call so
// permission and I/O errors surface even when the parse can be reused. The
// parse is reused while the file's size and modification time are unchanged.
// The returned document is shared with the cache and must not be mutated.
func (s *FileStore) load() (*model.Document, os.FileInfo, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open %s: %w", ErrStorageUnavailable, s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: stat %s: %w", ErrStorageUnavailable, s.path, err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is a directory", ErrStorageUnavailable, s.path)
	}

	s.cacheMu.Lock()
	c := s.cache
	s.cacheMu.Unlock()
	if c != nil && c.size == info.Size() && c.modTime.Equal(info.ModTime()) {
		return c.doc, info, nil
	}

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read %s: %w", ErrStorageUnavailable, s.path, err)
	}
	var doc model.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: parse %s: %w", ErrCorruptDocument, s.path, err)
	}

	s.remember(info, &doc)
	return &doc, info, nil
}

func (s *FileStore) write(doc *model.Document) error {
	b, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrStorageWriteFailure, err)
	}
	if err := writeFileAtomic(s.path, b, s.rename); err != nil {
		s.forget()
		return fmt.Errorf("%w: %w", ErrStorageWriteFailure, err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		s.forget()
		return nil
	}
	s.remember(info, doc)
	return nil
}

func (s *FileStore) remember(info os.FileInfo, doc *model.Document) {
	s.cacheMu.Lock()
	s.cache = &snapshot{size: info.Size(), modTime: info.ModTime(), doc: doc}
	s.cacheMu.Unlock()
}

func (s *FileStore) forget() {
	s.cacheMu.Lock()
	s.cache = nil
	s.cacheMu.Unlock()
}

// InitFile writes an empty document at path, creating parent directories.
// An existing file is only replaced when force is set.
func InitFile(path string, force bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create document dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrDocumentExists, path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %w", ErrStorageUnavailable, path, err)
	}

	b, err := model.Document{}.MarshalJSON()
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, b, os.Rename); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWriteFailure, err)
	}
	return nil
}

// Import replaces the whole document with doc after checking that every
// record has a distinct scalar id.
func (s *FileStore) Import(ctx context.Context, doc *model.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateIDs(doc.Data); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(doc.Clone())
}
