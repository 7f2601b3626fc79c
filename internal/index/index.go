// Package index implements the pointer index: the only state agtrace
// persists across runs. It maps sessions to the files that compose them
// and the projects those sessions ran under — never assembled events or
// turns, which are always rebuilt on demand.
//
// Schema is created idempotently at Open, the way
// peakyragnar-subluminal's ledger package creates its schema inline
// rather than through a migration pipeline — appropriate here since
// there is exactly one schema version and no multi-tenant deployment to
// coordinate across.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	hash TEXT PRIMARY KEY,
	cwd  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id   TEXT PRIMARY KEY,
	provider     TEXT NOT NULL,
	project_hash TEXT NOT NULL REFERENCES projects(hash),
	start_ts     INTEGER NOT NULL,
	end_ts       INTEGER NOT NULL,
	header       TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_hash);
CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(start_ts);

CREATE TABLE IF NOT EXISTS session_files (
	session_id TEXT NOT NULL REFERENCES sessions(session_id),
	path       TEXT NOT NULL,
	size       INTEGER NOT NULL,
	mtime      INTEGER NOT NULL,
	UNIQUE(session_id, path)
);
`

// Index is the single-writer, concurrent-reader handle onto the sqlite
// pointer database. One mutex serializes every write transaction; reads
// share the pooled *sql.DB connection, which sqlite's WAL mode permits
// concurrently with an in-flight write.
type Index struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (if absent) and opens the pointer index at path.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("index.Open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("index.Open: create schema: %w", err)
	}
	return &Index{db: db}, nil
}

func (idx *Index) Close() error { return idx.db.Close() }

// ProjectRow is one row of the projects table.
type ProjectRow struct {
	Hash string
	Cwd  string
}

// SessionRow is one row of the sessions table.
type SessionRow struct {
	SessionID   string
	Provider    string
	ProjectHash string
	StartTS     time.Time
	EndTS       time.Time
	Header      string
}

// FileRow is one row of the session_files table.
type FileRow struct {
	SessionID string
	Path      string
	Size      int64
	MTime     time.Time
}

// UpsertProject inserts or refreshes a project's cwd.
func (idx *Index) UpsertProject(ctx context.Context, p ProjectRow) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, err := idx.db.ExecContext(ctx,
		`INSERT INTO projects(hash, cwd) VALUES (?, ?)
		 ON CONFLICT(hash) DO UPDATE SET cwd = excluded.cwd`,
		p.Hash, p.Cwd)
	if err != nil {
		return fmt.Errorf("index.UpsertProject: %w", err)
	}
	return nil
}

// UpsertSessionWithFile transactionally upserts a session row and one of
// its backing files, never lowering start_ts once recorded — a session's
// earliest-seen start time is authoritative even if a later scan sees a
// file header with a different value due to vendor clock skew.
func (idx *Index) UpsertSessionWithFile(ctx context.Context, s SessionRow, f FileRow) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index.UpsertSessionWithFile: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions(session_id, provider, project_hash, start_ts, end_ts, header)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   start_ts = MIN(sessions.start_ts, excluded.start_ts),
		   end_ts   = MAX(sessions.end_ts, excluded.end_ts),
		   header   = excluded.header`,
		s.SessionID, s.Provider, s.ProjectHash, s.StartTS.Unix(), s.EndTS.Unix(), s.Header)
	if err != nil {
		return fmt.Errorf("index.UpsertSessionWithFile: session: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO session_files(session_id, path, size, mtime) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id, path) DO UPDATE SET size = excluded.size, mtime = excluded.mtime`,
		f.SessionID, f.Path, f.Size, f.MTime.Unix())
	if err != nil {
		return fmt.Errorf("index.UpsertSessionWithFile: file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index.UpsertSessionWithFile: commit: %w", err)
	}
	return nil
}

// FileState returns the recorded (size, mtime) for path, used by the
// scanner to decide whether a file needs re-parsing.
func (idx *Index) FileState(ctx context.Context, path string) (size int64, mtime time.Time, found bool, err error) {
	row := idx.db.QueryRowContext(ctx, `SELECT size, mtime FROM session_files WHERE path = ?`, path)
	var unixMtime int64
	if err := row.Scan(&size, &unixMtime); err != nil {
		if err == sql.ErrNoRows {
			return 0, time.Time{}, false, nil
		}
		return 0, time.Time{}, false, fmt.Errorf("index.FileState: %w", err)
	}
	return size, time.Unix(unixMtime, 0).UTC(), true, nil
}

// ListSessions returns session rows for a project in start-time descending
// order, optionally filtered by provider.
func (idx *Index) ListSessions(ctx context.Context, projectHash, provider string, limit int) ([]SessionRow, error) {
	query := `SELECT session_id, provider, project_hash, start_ts, end_ts, header FROM sessions WHERE 1=1`
	var args []any
	if projectHash != "" {
		query += ` AND project_hash = ?`
		args = append(args, projectHash)
	}
	if provider != "" {
		query += ` AND provider = ?`
		args = append(args, provider)
	}
	query += ` ORDER BY start_ts DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("index.ListSessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var s SessionRow
		var start, end int64
		var header sql.NullString
		if err := rows.Scan(&s.SessionID, &s.Provider, &s.ProjectHash, &start, &end, &header); err != nil {
			return nil, fmt.Errorf("index.ListSessions: scan: %w", err)
		}
		s.StartTS = time.Unix(start, 0).UTC()
		s.EndTS = time.Unix(end, 0).UTC()
		s.Header = header.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// SessionFiles returns every file backing a session, in no particular
// order (the caller merges/sorts by event timestamp after parsing).
func (idx *Index) SessionFiles(ctx context.Context, sessionID string) ([]FileRow, error) {
	rows, err := idx.db.QueryContext(ctx, `SELECT session_id, path, size, mtime FROM session_files WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("index.SessionFiles: %w", err)
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		var f FileRow
		var mtime int64
		if err := rows.Scan(&f.SessionID, &f.Path, &f.Size, &mtime); err != nil {
			return nil, fmt.Errorf("index.SessionFiles: scan: %w", err)
		}
		f.MTime = time.Unix(mtime, 0).UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}
