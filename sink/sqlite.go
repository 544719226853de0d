package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/regsnap/record"
)

// SQLiteStore keeps artifacts in a SQLite database: one row per artifact plus
// an ordered tag table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &StorageError{Op: "open", Key: path, Err: err}
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, &StorageError{Op: "init", Key: path, Err: err}
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		key TEXT PRIMARY KEY,
		body BLOB NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS artifact_tags (
		key TEXT NOT NULL,
		position INTEGER NOT NULL,
		tag_key TEXT NOT NULL,
		tag_value TEXT NOT NULL,
		PRIMARY KEY (key, position)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put inserts body under key. Artifacts are write-once; reusing a key is an
// error.
func (s *SQLiteStore) Put(ctx context.Context, key string, body []byte) error {
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO artifacts (key, body, created_at) VALUES (?, ?, ?)",
		key, body, createdAt,
	)
	if err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Tag replaces the artifact's tag set, preserving tag order by position.
func (s *SQLiteStore) Tag(ctx context.Context, key string, tags []record.Tag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "tag", Key: key, Err: err}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM artifact_tags WHERE key = ?", key); err != nil {
		tx.Rollback()
		return &StorageError{Op: "tag", Key: key, Err: err}
	}
	for i, tag := range tags {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO artifact_tags (key, position, tag_key, tag_value) VALUES (?, ?, ?, ?)",
			key, i, tag.Key, tag.Value,
		)
		if err != nil {
			tx.Rollback()
			return &StorageError{Op: "tag", Key: key, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "tag", Key: key, Err: err}
	}
	return nil
}

// Object reads back an artifact body. A key that was never written returns
// (nil, nil).
func (s *SQLiteStore) Object(key string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRow("SELECT body FROM artifacts WHERE key = ?", key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	return body, nil
}

// Tags reads back an artifact's tag set in stored order.
func (s *SQLiteStore) Tags(key string) ([]record.Tag, error) {
	rows, err := s.db.Query(
		"SELECT tag_key, tag_value FROM artifact_tags WHERE key = ? ORDER BY position",
		key,
	)
	if err != nil {
		return nil, &StorageError{Op: "get-tags", Key: key, Err: err}
	}
	defer rows.Close()

	var tags []record.Tag
	for rows.Next() {
		var tag record.Tag
		if err := rows.Scan(&tag.Key, &tag.Value); err != nil {
			return nil, &StorageError{Op: "get-tags", Key: key, Err: fmt.Errorf("failed to scan tag: %w", err)}
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "get-tags", Key: key, Err: err}
	}
	return tags, nil
}
