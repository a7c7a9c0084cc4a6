package journal

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// NewSQLiteJournal opens or creates a journal database at the given path.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return j, nil
}

func (j *SQLiteJournal) newID(t time.Time) string {
	j.entropyMu.Lock()
	defer j.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), j.entropy).String()
}

func (j *SQLiteJournal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS updates (
		id            TEXT PRIMARY KEY,
		applied_at    TEXT NOT NULL,
		actor_id      TEXT,
		actor_account TEXT,
		request_id    TEXT,
		matched       INTEGER NOT NULL DEFAULT 0,
		ignored       INTEGER NOT NULL DEFAULT 0,
		batch         TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_updates_actor ON updates(actor_id);
	`
	_, err := j.db.Exec(schema)
	return err
}

func (j *SQLiteJournal) Append(ctx context.Context, e Entry) (*Entry, error) {
	now := time.Now().UTC()
	e.ID = j.newID(now)
	e.AppliedAt = now.Truncate(time.Millisecond)

	batch := string(e.Batch)
	if batch == "" {
		batch = "[]"
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO updates (id, applied_at, actor_id, actor_account, request_id, matched, ignored, batch)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AppliedAt.Format(time.RFC3339Nano), nullable(e.ActorID), nullable(e.ActorAccount),
		nullable(e.RequestID), e.Matched, e.Ignored, batch)
	if err != nil {
		return nil, fmt.Errorf("insert update: %w", err)
	}
	return &e, nil
}

func (j *SQLiteJournal) List(ctx context.Context, p ListParams) ([]Entry, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	var where []string
	var args []interface{}
	if p.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, p.ActorID)
	}

	query := `SELECT id, applied_at, actor_id, actor_account, request_id, matched, ignored, batch
	          FROM updates`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (j *SQLiteJournal) Count(ctx context.Context) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM updates`).Scan(&n)
	return n, err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	var actorID, actorAccount, requestID sql.NullString
	var appliedAt, batch string

	err := row.Scan(&e.ID, &appliedAt, &actorID, &actorAccount, &requestID,
		&e.Matched, &e.Ignored, &batch)
	if err != nil {
		return e, err
	}

	e.AppliedAt, _ = time.Parse(time.RFC3339Nano, appliedAt)
	e.ActorID = actorID.String
	e.ActorAccount = actorAccount.String
	e.RequestID = requestID.String
	e.Batch = []byte(batch)
	return e, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
