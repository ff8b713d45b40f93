package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const dbFile = "offline.db"

// SQLiteBackend stores all collections in a single SQLite database.
// Insertion order is the autoincrement position; secondary indexes live in
// a side table so lookups by syncStatus or dayKey avoid a full scan.
type SQLiteBackend struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database under baseDir and runs the schema.
func OpenSQLite(baseDir string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	conn, err := sql.Open("sqlite", filepath.Join(baseDir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL for concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	b := &SQLiteBackend{conn: conn}
	if err := b.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

// NewSQLiteBackend wraps an already-open connection (used by tests with an
// in-memory database).
func NewSQLiteBackend(conn *sql.DB) (*SQLiteBackend, error) {
	b := &SQLiteBackend{conn: conn}
	if err := b.migrate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	_, err := b.conn.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			position   INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      BLOB NOT NULL,
			UNIQUE(collection, key)
		);
		CREATE TABLE IF NOT EXISTS record_index (
			collection TEXT NOT NULL,
			idx_name   TEXT NOT NULL,
			idx_value  TEXT NOT NULL,
			key        TEXT NOT NULL,
			PRIMARY KEY (collection, idx_name, key)
		);
		CREATE INDEX IF NOT EXISTS idx_record_index_lookup
			ON record_index(collection, idx_name, idx_value);
	`)
	if err != nil {
		return fmt.Errorf("init store schema: %w", err)
	}
	return nil
}

// Put inserts or replaces a record. An update keeps the record's original
// position so iteration order stays stable.
func (b *SQLiteBackend) Put(ctx context.Context, collection, key string, value []byte, indexes Indexes) error {
	tx, err := b.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (collection, key, value) VALUES (?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET value = excluded.value
	`, collection, key, value)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, key, err)
	}

	// Indexes are replaced wholesale on every write
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM record_index WHERE collection = ? AND key = ?`,
		collection, key); err != nil {
		return fmt.Errorf("clear indexes %s/%s: %w", collection, key, err)
	}
	for name, val := range indexes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO record_index (collection, idx_name, idx_value, key) VALUES (?, ?, ?, ?)`,
			collection, name, val, key); err != nil {
			return fmt.Errorf("index %s/%s %s: %w", collection, key, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Get(ctx context.Context, collection, key string) ([]byte, error) {
	var value []byte
	err := b.conn.QueryRowContext(ctx,
		`SELECT value FROM records WHERE collection = ? AND key = ?`,
		collection, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return value, nil
}

func (b *SQLiteBackend) GetAll(ctx context.Context, collection string) ([]Item, error) {
	rows, err := b.conn.QueryContext(ctx,
		`SELECT key, value FROM records WHERE collection = ? ORDER BY position ASC`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("get all %s: %w", collection, err)
	}
	defer rows.Close()
	return scanItems(rows, collection)
}

func (b *SQLiteBackend) GetAllByIndex(ctx context.Context, collection, indexName, indexValue string) ([]Item, error) {
	rows, err := b.conn.QueryContext(ctx, `
		SELECT r.key, r.value FROM records r
		JOIN record_index i ON i.collection = r.collection AND i.key = r.key
		WHERE r.collection = ? AND i.idx_name = ? AND i.idx_value = ?
		ORDER BY r.position ASC
	`, collection, indexName, indexValue)
	if err != nil {
		return nil, fmt.Errorf("get by index %s/%s: %w", collection, indexName, err)
	}
	defer rows.Close()
	return scanItems(rows, collection)
}

func (b *SQLiteBackend) Delete(ctx context.Context, collection, key string) error {
	tx, err := b.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND key = ?`,
		collection, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM record_index WHERE collection = ? AND key = ?`,
		collection, key); err != nil {
		return fmt.Errorf("delete indexes %s/%s: %w", collection, key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.conn.Close()
}

func scanItems(rows *sql.Rows, collection string) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Key, &it.Value); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", collection, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration %s: %w", collection, err)
	}
	return items, nil
}
