package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/recordstore/internal/config"
	"github.com/rcliao/recordstore/internal/journal"
	"github.com/rcliao/recordstore/internal/metrics"
	"github.com/rcliao/recordstore/internal/model"
	"github.com/rcliao/recordstore/internal/store"
)

type testEnv struct {
	srv     *Server
	path    string
	journal *journal.SQLiteJournal
	metrics *metrics.Metrics
	logs    *bytes.Buffer
}

func newTestEnv(t *testing.T, content string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "yapi.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	j, err := journal.NewSQLiteJournal(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	logs := &bytes.Buffer{}
	m := metrics.New()
	cfg := config.Default()
	cfg.File = path
	cfg.MaxBodyBytes = 1024

	srv := New(store.NewFileStore(path), cfg, Options{
		Journal: j,
		Logger:  zerolog.New(logs),
		Metrics: m,
	})
	return &testEnv{srv: srv, path: path, journal: j, metrics: m, logs: logs}
}

func (e *testEnv) do(t *testing.T, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) file(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(e.path)
	require.NoError(t, err)
	return string(b)
}

const seed = `{"data":[{"id":1,"name":"a","tag":"x"},{"id":2,"name":"b"}]}`

func TestGetData(t *testing.T) {
	env := newTestEnv(t, seed)

	rec := env.do(t, http.MethodGet, "/data", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, seed, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.Records))
}

func TestGetDataStorageFailures(t *testing.T) {
	env := newTestEnv(t, `{"data":`)

	rec := env.do(t, http.MethodGet, "/data", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgReadError, rec.Body.String())
	assert.Contains(t, env.logs.String(), `"kind":"corrupt_document"`)

	require.NoError(t, os.Remove(env.path))
	rec = env.do(t, http.MethodGet, "/data", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgReadError, rec.Body.String())
	assert.Contains(t, env.logs.String(), `"kind":"storage_unavailable"`)
	assert.NotContains(t, rec.Body.String(), env.path)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.StoreOperations.WithLabelValues("get_all", "corrupt_document")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.StoreOperations.WithLabelValues("get_all", "storage_unavailable")))
}

func TestUpdateData(t *testing.T) {
	env := newTestEnv(t, seed)

	rec := env.do(t, http.MethodPost, "/updateData", `[{"id":1,"name":"b"},{"id":99,"name":"z"}]`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.JSONEq(t, `{"data":[{"id":1,"name":"b","tag":"x"},{"id":2,"name":"b"}]}`, env.file(t))

	rec = env.do(t, http.MethodGet, "/data", "", nil)
	assert.JSONEq(t, env.file(t), rec.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.RecordsMerged))
}

func TestUpdateDataBadRequests(t *testing.T) {
	env := newTestEnv(t, seed)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing body", "", msgNoData},
		{"empty array", "[]", msgNoData},
		{"null", "null", msgNoData},
		{"object", `{"id":1}`, msgInvalidBatch},
		{"scalars", `[1,2]`, msgInvalidBatch},
		{"broken json", `[{"id":1`, msgInvalidBatch},
		{"missing id", `[{"name":"x"}]`, msgInvalidBatch},
		{"null id", `[{"id":null}]`, msgInvalidBatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/updateData", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.want, rec.Body.String())
		})
	}

	assert.Equal(t, seed, env.file(t))
	n, err := env.journal.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateDataTooLarge(t *testing.T) {
	env := newTestEnv(t, seed)

	body := `[{"id":1,"name":"` + strings.Repeat("x", 2048) + `"}]`
	rec := env.do(t, http.MethodPost, "/updateData", body, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, seed, env.file(t))
}

func TestUpdateDataStorageFailure(t *testing.T) {
	env := newTestEnv(t, `garbage`)

	rec := env.do(t, http.MethodPost, "/updateData", `[{"id":1}]`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgReadError, rec.Body.String())
}

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) MergeUpdate(ctx context.Context, batch []model.Record) (*store.MergeResult, error) {
	return nil, f.err
}

func TestUpdateDataWriteFailure(t *testing.T) {
	logs := &bytes.Buffer{}
	cause := errors.New("disk full at /secret/path")
	srv := New(failingStore{err: errors.Join(store.ErrStorageWriteFailure, cause)}, config.Default(), Options{
		Logger: zerolog.New(logs),
	})

	req := httptest.NewRequest(http.MethodPost, "/updateData", strings.NewReader(`[{"id":1}]`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgWriteError, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Contains(t, logs.String(), `"kind":"storage_write_failure"`)
	assert.Contains(t, logs.String(), "disk full")
}

func TestUpdateDataJournalsActor(t *testing.T) {
	env := newTestEnv(t, seed)

	header := http.Header{}
	header.Set(model.HeaderUserID, "7")
	header.Set(model.HeaderUserAccount, "alice")
	header.Set(HeaderRequestID, "req-abc")

	rec := env.do(t, http.MethodPost, "/updateData", "[ {\"id\": 2, \"name\": \"c\"} ]", header)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-abc", rec.Header().Get(HeaderRequestID))

	entries, err := env.journal.List(context.Background(), journal.ListParams{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "7", entries[0].ActorID)
	assert.Equal(t, "alice", entries[0].ActorAccount)
	assert.Equal(t, "req-abc", entries[0].RequestID)
	assert.Equal(t, 1, entries[0].Matched)
	assert.Equal(t, `[{"id":2,"name":"c"}]`, string(entries[0].Batch))
}

func TestUpdateDataWithoutJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yapi.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))
	srv := New(store.NewFileStore(path), config.Default(), Options{Logger: zerolog.Nop()})

	req := httptest.NewRequest(http.MethodPost, "/updateData", strings.NewReader(`[{"id":2,"name":"c"}]`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, seed)

	assert.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodPost, "/data", "[]", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodGet, "/updateData", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/nope", "", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, seed)

	header := http.Header{}
	header.Set("Origin", "http://localhost:8080")
	header.Set("Access-Control-Request-Method", http.MethodPost)
	header.Set("Access-Control-Request-Headers", "content-type,x-user-id,x-user-account")

	rec := env.do(t, http.MethodOptions, "/updateData", "", header)
	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), "x-user-id")
}

func TestHealthzAndMetrics(t *testing.T) {
	env := newTestEnv(t, seed)
	env.do(t, http.MethodGet, "/data", "", nil)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `recordstore_http_requests_total{method="GET",path="/data",status="200"} 1`)
}

type panicStore struct{ store.Store }

func (panicStore) GetAll(ctx context.Context) (*model.Document, error) {
	panic("boom")
}

func TestRecoveryMiddleware(t *testing.T) {
	logs := &bytes.Buffer{}
	srv := New(panicStore{}, config.Default(), Options{Logger: zerolog.New(logs)})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgInternal, rec.Body.String())
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestRunAndShutdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yapi.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	srv := New(store.NewFileStore(path), cfg, Options{Logger: zerolog.Nop()})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, srv.Shutdown(context.Background()))
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
