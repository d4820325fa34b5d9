package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var sqliteDialect = dialect{
	name:   "sqlite",
	driver: "sqlite",
	create: `CREATE TABLE IF NOT EXISTS rx_state (
		resource TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`,
	upsert: `INSERT INTO rx_state(resource,payload) VALUES(?,?) ON CONFLICT(resource) DO UPDATE SET payload=excluded.payload`,
	remove: `DELETE FROM rx_state WHERE resource = ?`,
	load:   `SELECT resource, payload FROM rx_state`,
}

// DefaultSQLitePath is used when OpenSQLite is given an empty path.
const DefaultSQLitePath = "rxdata.db"

// OpenSQLite opens or creates the SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	return open(ctx, sqliteDialect, path)
}
