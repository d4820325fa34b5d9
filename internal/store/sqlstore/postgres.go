package sqlstore

import (
	"context"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var postgresDialect = dialect{
	name:   "postgres",
	driver: "pgx",
	create: `CREATE TABLE IF NOT EXISTS rx_state (
		resource TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`,
	upsert: `INSERT INTO rx_state(resource,payload) VALUES($1,$2) ON CONFLICT(resource) DO UPDATE SET payload=EXCLUDED.payload`,
	remove: `DELETE FROM rx_state WHERE resource = $1`,
	load:   `SELECT resource, payload FROM rx_state`,
}

// DefaultPostgresDSN is used when OpenPostgres is given an empty DSN.
const DefaultPostgresDSN = "postgres://localhost/rxdata?sslmode=disable"

// OpenPostgres connects to the Postgres database at dsn.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultPostgresDSN
	}
	return open(ctx, postgresDialect, dsn)
}
