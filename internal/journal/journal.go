// Package journal keeps a SQLite record of every file a batch committed.
// It is history only; nothing is ever replayed or undone from it.
package journal

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/magtheo/Differ-sub000/internal/patch"
)

const schema = `
CREATE TABLE IF NOT EXISTS commits (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	batch      TEXT NOT NULL,
	file       TEXT NOT NULL,
	op         TEXT NOT NULL,
	requests   INTEGER NOT NULL,
	before_sha TEXT NOT NULL,
	after_sha  TEXT NOT NULL,
	created    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_commits_batch ON commits(batch);
CREATE INDEX IF NOT EXISTS idx_commits_created ON commits(created);
`

// Ops recorded per file.
const (
	OpCreate = "create"
	OpModify = "modify"
)

// Entry is one committed file.
type Entry struct {
	ID       int64
	Batch    string
	File     string
	Op       string
	Requests int
	// Before and After are sha256 hex digests of the content.
	Before  string
	After   string
	Created time.Time
}

// Journal is a SQLite-backed commit log. A nil *Journal records nothing.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens a journal database at the given path.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}

// NewBatch returns a fresh batch id.
func NewBatch() string { return uuid.NewString() }

// Record stores every committed file of res under batch. Uncommitted
// results are skipped. No-op on nil receiver.
func (j *Journal) Record(batch string, res patch.BatchResult) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := time.Now().UnixNano()
	n := 0
	for _, f := range res.Files {
		if !f.Committed {
			continue
		}
		op := OpModify
		if f.Created {
			op = OpCreate
		}
		if _, err := tx.Exec(
			"INSERT INTO commits (batch, file, op, requests, before_sha, after_sha, created) VALUES (?, ?, ?, ?, ?, ?, ?)",
			batch, f.File, op, len(f.Edits), digest(f.Original), digest(f.Content), now,
		); err != nil {
			return fmt.Errorf("record %s: %w", f.File, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Debug().Str("batch", batch).Int("files", n).Msg("journal: recorded")
	return nil
}

// Batch returns the entries of one batch in commit order.
func (j *Journal) Batch(id string) ([]Entry, error) {
	return j.query("SELECT id, batch, file, op, requests, before_sha, after_sha, created FROM commits WHERE batch = ? ORDER BY id", id)
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	return j.query("SELECT id, batch, file, op, requests, before_sha, after_sha, created FROM commits ORDER BY id DESC LIMIT ?", limit)
}

func (j *Journal) query(q string, args ...any) ([]Entry, error) {
	if j == nil {
		return nil, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.Batch, &e.File, &e.Op, &e.Requests, &e.Before, &e.After, &created); err != nil {
			return nil, err
		}
		e.Created = time.Unix(0, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
