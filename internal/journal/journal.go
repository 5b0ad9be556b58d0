// Package journal keeps the before-images of files changed by tool batches
// so the operator can undo the most recent batch.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrEmpty is returned by Undo when no batch is recorded.
var ErrEmpty = errors.New("journal: nothing to undo")

// Entry is the state of one file before a batch first touched it.
type Entry struct {
	Path    string // absolute
	Existed bool
	Before  []byte
	Mode    os.FileMode
}

// Batch groups the entries recorded under one batch ID.
type Batch struct {
	ID         string
	RecordedAt time.Time
	Entries    []Entry
}

// Journal is an SQLite-backed undo journal.
type Journal struct {
	db *sql.DB
}

// DefaultPath returns the journal location for a repository hash under the
// user cache directory.
func DefaultPath(repoHash string) (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get cache dir: %w", err)
	}
	return filepath.Join(dir, "nanocoder", "journal-"+repoHash+".db"), nil
}

// Open opens (or creates) the journal database at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal dir: %w", err)
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	j := &Journal{db: db}
	if err := j.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id    TEXT NOT NULL,
		path        TEXT NOT NULL,
		existed     INTEGER NOT NULL,
		before      BLOB,
		mode        INTEGER NOT NULL,
		recorded_at INTEGER NOT NULL,
		UNIQUE (batch_id, path)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_batch ON entries(batch_id);
	`
	_, err := j.db.ExecContext(ctx, schema)
	return err
}

// Record stores the before-image of path for batchID. Only the first record
// per file and batch is kept, so undo returns the file to its state before
// the batch started.
func (j *Journal) Record(ctx context.Context, batchID, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	var (
		existed int
		before  []byte
		mode    = os.FileMode(0644)
	)
	info, err := os.Stat(abs)
	switch {
	case err == nil:
		if before, err = os.ReadFile(abs); err != nil {
			return fmt.Errorf("failed to read before-image of %s: %w", path, err)
		}
		existed = 1
		mode = info.Mode().Perm()
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	query := `
		INSERT INTO entries (batch_id, path, existed, before, mode, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(batch_id, path) DO NOTHING
	`
	_, err = j.db.ExecContext(ctx, query, batchID, abs, existed, before, int64(mode), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", path, err)
	}
	return nil
}

// Last returns the most recently recorded batch without changing anything.
func (j *Journal) Last(ctx context.Context) (*Batch, error) {
	var id string
	err := j.db.QueryRowContext(ctx, `SELECT batch_id FROM entries ORDER BY seq DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find last batch: %w", err)
	}
	return j.batch(ctx, id)
}

func (j *Journal) batch(ctx context.Context, id string) (*Batch, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT path, existed, before, mode, recorded_at
		FROM entries WHERE batch_id = ?
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch: %w", err)
	}
	defer rows.Close()

	b := &Batch{ID: id}
	for rows.Next() {
		var (
			e       Entry
			existed int
			mode    int64
			at      int64
		)
		if err := rows.Scan(&e.Path, &existed, &e.Before, &mode, &at); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Existed = existed == 1
		e.Mode = os.FileMode(mode)
		if b.RecordedAt.IsZero() {
			b.RecordedAt = time.Unix(0, at)
		}
		b.Entries = append(b.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return b, nil
}

// Undo restores every file of the most recent batch to its before-image and
// removes the batch from the journal. Files that did not exist before the
// batch are deleted.
func (j *Journal) Undo(ctx context.Context) (*Batch, error) {
	b, err := j.Last(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(b.Entries) - 1; i >= 0; i-- {
		if err := restore(b.Entries[i]); err != nil {
			return nil, err
		}
	}
	if _, err := j.db.ExecContext(ctx, `DELETE FROM entries WHERE batch_id = ?`, b.ID); err != nil {
		return nil, fmt.Errorf("failed to forget batch %s: %w", b.ID, err)
	}
	return b, nil
}

func restore(e Entry) error {
	if !e.Existed {
		if err := os.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", e.Path, err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(e.Path), 0755); err != nil {
		return fmt.Errorf("failed to recreate dir for %s: %w", e.Path, err)
	}
	if err := os.WriteFile(e.Path, e.Before, e.Mode); err != nil {
		return fmt.Errorf("failed to restore %s: %w", e.Path, err)
	}
	return nil
}
