package cache

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

// SQLiteBackend stores records in a single SQLite table keyed by cache key.
// Each Save is one upsert, so payload and timestamp are replaced together.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db}
	if err := b.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) init() error {
	_, err := b.db.Exec(`
		PRAGMA busy_timeout = 5000;
		CREATE TABLE IF NOT EXISTS cache_entries (
			key        TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			written_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_cache_entries_written_at ON cache_entries(written_at);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Load reads the row for key.
func (b *SQLiteBackend) Load(ctx context.Context, key string) (Record, bool, error) {
	var (
		payload   []byte
		writtenAt int64
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT payload, written_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&payload, &writtenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("loading %s: %w", key, err)
	}
	return Record{Key: key, Payload: payload, WrittenAt: time.Unix(0, writtenAt)}, true, nil
}

// Save upserts rec.
func (b *SQLiteBackend) Save(ctx context.Context, rec Record) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, payload, written_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			written_at = excluded.written_at
	`, rec.Key, rec.Payload, rec.WrittenAt.UnixNano())
	if err != nil {
		return fmt.Errorf("saving %s: %w", rec.Key, err)
	}
	return nil
}

// Delete removes the row for key. A missing key is not an error.
func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// DeleteAll removes every row.
func (b *SQLiteBackend) DeleteAll(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// ExpiredKeys lists keys written before cutoff, oldest first.
func (b *SQLiteBackend) ExpiredKeys(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT key FROM cache_entries WHERE written_at < ? ORDER BY written_at`, cutoff.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("listing expired: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning expired key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Ping checks the database connection.
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

var _ Backend = (*SQLiteBackend)(nil)
