// Package sqlstore persists a memory store into a SQL database.
//
// Reads are served from memory. Every mutation snapshots the affected
// resource as one JSON row of the rx_state table inside a transaction, and
// opening a store hydrates memory from the table.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/dshills/rxdata/internal/model"
	"github.com/dshills/rxdata/internal/store"
	"github.com/dshills/rxdata/internal/store/memory"
)

var _ store.Backend = (*Store)(nil)
var _ model.Syncer = (*Store)(nil)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// dialect holds the statements that differ between databases.
type dialect struct {
	name   string
	driver string
	create string
	upsert string
	remove string
	load   string
}

// Store is a memory store snapshotted to SQL.
type Store struct {
	*memory.Store
	db      *sql.DB
	dialect dialect
	mu      sync.Mutex
}

func open(ctx context.Context, d dialect, dsn string) (*Store, error) {
	openMu.Lock()
	db, err := sqlOpen(d.driver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}
	if _, err := db.ExecContext(ctx, d.create); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create rx_state table: %w", err)
	}
	s := &Store{Store: memory.New(), db: db, dialect: d}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, s.dialect.load)
	if err != nil {
		return fmt.Errorf("select rx_state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snap := store.Snapshot{}
	for rows.Next() {
		var resource string
		var payload []byte
		if err := rows.Scan(&resource, &payload); err != nil {
			return fmt.Errorf("scan rx_state: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		items := map[string]model.Attributes{}
		if err := json.Unmarshal(payload, &items); err != nil {
			return fmt.Errorf("decode %s: %w", resource, err)
		}
		snap[resource] = items
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rx_state: %w", err)
	}
	s.Import(snap)
	glog.V(2).Infof("[%s]loaded %d resources", s.dialect.name, len(snap))
	return nil
}

// Sync implements model.Syncer.
func (s *Store) Sync(ctx context.Context, op model.Operation, target model.Target, _ *model.Options) (any, error) {
	return store.Dispatch(ctx, s.dialect.name, s, op, target)
}

// Put creates or replaces a record and persists its resource.
func (s *Store) Put(ctx context.Context, resource, id string, attrs model.Attributes) error {
	if err := s.Store.Put(ctx, resource, id, attrs); err != nil {
		return err
	}
	return s.persist(ctx, resource)
}

// Delete removes a record and persists its resource.
func (s *Store) Delete(ctx context.Context, resource, id string) error {
	if err := s.Store.Delete(ctx, resource, id); err != nil {
		return err
	}
	return s.persist(ctx, resource)
}

// persist writes the current content of resource, removing the row once the
// resource is empty.
func (s *Store) persist(ctx context.Context, resource string) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.ExportResource(resource)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if len(items) == 0 {
		if _, err := tx.ExecContext(ctx, s.dialect.remove, resource); err != nil {
			return fmt.Errorf("delete %s: %w", resource, err)
		}
	} else {
		data, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("encode %s: %w", resource, err)
		}
		if _, err := tx.ExecContext(ctx, s.dialect.upsert, resource, data); err != nil {
			return fmt.Errorf("upsert %s: %w", resource, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	glog.V(2).Infof("[%s]persisted %s (%d records)", s.dialect.name, resource, len(items))
	return nil
}

// DB exposes the underlying database.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
