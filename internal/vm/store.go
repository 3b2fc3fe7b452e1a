package vm

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/glyphlang/glyph/internal/object"
)

// Store is the SQLite database behind the persist and query opcodes.
// Values are stored as JSON rows in insertion order.
type Store struct {
	db *sql.DB
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS persisted (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL,
	value      TEXT NOT NULL
);`

// OpenStore opens or creates the database at path. An empty path gives an
// in-memory database private to this store.
func OpenStore(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", dsn, err)
	}
	// An in-memory database exists per connection; a second pooled
	// connection would see an empty schema.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Persist appends one value as a JSON row.
func (s *Store) Persist(v object.Value) error {
	raw, err := json.Marshal(v.Interface())
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO persisted (created_at, value) VALUES (?, ?)",
		time.Now().UTC().Format(time.RFC3339Nano), string(raw),
	)
	if err != nil {
		return fmt.Errorf("insert value: %w", err)
	}
	return nil
}

// Query returns every persisted value in insertion order.
func (s *Store) Query() ([]object.Value, error) {
	rows, err := s.db.Query("SELECT value FROM persisted ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("select values: %w", err)
	}
	defer rows.Close()

	var out []object.Value
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, fmt.Errorf("decode stored value: %w", err)
		}
		out = append(out, object.FromInterface(data))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
