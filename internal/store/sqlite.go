package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"github.com/sheetforge/sheetforge/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id         TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
`

// SQLite persists entity records as JSON blobs in a single-table SQLite
// database. Records are opaque to the schema on purpose: the kernel owns
// the entity shape, the store only round-trips it.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens or creates the entity database at the given DSN
// (a file path or ":memory:")
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open entity database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize entity schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// FetchEntity loads one entity record by id
func (s *SQLite) FetchEntity(ctx context.Context, id string) (*types.Entity, error) {
	var data []byte
	err := s.conn.QueryRowContext(ctx, "SELECT data FROM entities WHERE id = ?", id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch entity %s: %w", id, err)
	}

	var e types.Entity
	if err := sonic.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode entity %s: %w", id, err)
	}
	return &e, nil
}

// Persist stores one entity record, replacing any prior version
func (s *SQLite) Persist(ctx context.Context, id string, e *types.Entity) error {
	data, err := sonic.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entity %s: %w", id, err)
	}
	_, err = s.conn.ExecContext(ctx,
		"INSERT INTO entities (id, data, updated_at) VALUES (?, ?, ?) "+
			"ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at",
		id, data, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("persist entity %s: %w", id, err)
	}
	return nil
}

// Close releases the database handle
func (s *SQLite) Close() error {
	return s.conn.Close()
}
