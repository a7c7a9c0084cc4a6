package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rcliao/recordstore/internal/journal"
	"github.com/rcliao/recordstore/internal/model"
	"github.com/rcliao/recordstore/internal/store"
)

// Plain-text bodies returned to clients. Causes stay in the logs.
const (
	msgReadError    = "Error reading file"
	msgWriteError   = "Error writing file"
	msgNoData       = "No data received"
	msgInvalidBatch = "Invalid update batch"
	msgTooLarge     = "Request body too large"
	msgInternal     = "Internal Server Error"
)

func (s *Server) registerHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /data", s.handleGetData)
	mux.HandleFunc("POST /updateData", s.handleUpdateData)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetAll(r.Context())
	s.observe("get_all", err)
	if err != nil {
		s.storeFailure(w, r, err)
		return
	}
	s.metrics.Records.Set(float64(len(doc.Data)))

	b, err := doc.MarshalJSON()
	if err != nil {
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("encode document")
		writeText(w, http.StatusInternalServerError, msgInternal)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func (s *Server) handleUpdateData(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeText(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		writeText(w, http.StatusBadRequest, msgNoData)
		return
	}

	batch, err := model.ParseBatch(body)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("kind", store.Kind(store.ErrInvalidRequest)).
			Str("request_id", requestID(r.Context())).
			Msg("rejected update batch")
		if errors.Is(err, model.ErrEmptyBatch) {
			writeText(w, http.StatusBadRequest, msgNoData)
		} else {
			writeText(w, http.StatusBadRequest, msgInvalidBatch)
		}
		return
	}

	res, err := s.store.MergeUpdate(r.Context(), batch)
	s.observe("merge_update", err)
	if err != nil {
		s.storeFailure(w, r, err)
		return
	}
	s.metrics.RecordsMerged.Add(float64(res.Matched))

	s.recordUpdate(r, body, res)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// recordUpdate appends the applied batch to the journal. The update is
// already durable, so failures are only logged.
func (s *Server) recordUpdate(r *http.Request, body []byte, res *store.MergeResult) {
	if s.journal == nil {
		return
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		compact.Reset()
		compact.Write(body)
	}

	actor, _ := model.ActorFromContext(r.Context())
	_, err := s.journal.Append(r.Context(), journal.Entry{
		ActorID:      actor.ID,
		ActorAccount: actor.Account,
		RequestID:    requestID(r.Context()),
		Matched:      res.Matched,
		Ignored:      res.Ignored,
		Batch:        compact.Bytes(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("journal append failed")
	}
}

// storeFailure logs err with its kind and writes the generic client message.
func (s *Server) storeFailure(w http.ResponseWriter, r *http.Request, err error) {
	kind := store.Kind(err)
	ev := s.log.Error()
	if errors.Is(err, store.ErrInvalidRequest) {
		ev = s.log.Warn()
	}
	ev.Err(err).
		Str("kind", kind).
		Str("path", r.URL.Path).
		Str("request_id", requestID(r.Context())).
		Msg("store operation failed")

	switch {
	case errors.Is(err, store.ErrInvalidRequest):
		writeText(w, http.StatusBadRequest, msgInvalidBatch)
	case errors.Is(err, store.ErrStorageUnavailable), errors.Is(err, store.ErrCorruptDocument):
		writeText(w, http.StatusInternalServerError, msgReadError)
	case errors.Is(err, store.ErrStorageWriteFailure):
		writeText(w, http.StatusInternalServerError, msgWriteError)
	default:
		writeText(w, http.StatusInternalServerError, msgInternal)
	}
}

func (s *Server) observe(op string, err error) {
	s.metrics.StoreOperations.WithLabelValues(op, store.Kind(err)).Inc()
}

func writeText(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	io.WriteString(w, message)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
