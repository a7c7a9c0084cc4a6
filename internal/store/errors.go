package store

import "errors"

// Failure kinds. Operations wrap one of these around the underlying cause.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrCorruptDocument     = errors.New("corrupt document")
	ErrStorageWriteFailure = errors.New("storage write failure")
	ErrDocumentExists      = errors.New("document already exists")
)

// Kind returns a stable label for the failure kind of err, for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrCorruptDocument):
		return "corrupt_document"
	case errors.Is(err, ErrStorageWriteFailure):
		return "storage_write_failure"
	default:
		return "internal"
	}
}
