package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dshills/rxdata/internal/config"
	"github.com/dshills/rxdata/internal/model"
	"github.com/dshills/rxdata/internal/store"
	"github.com/dshills/rxdata/internal/store/jsonfile"
	"github.com/dshills/rxdata/internal/store/memory"
	"github.com/dshills/rxdata/internal/store/sqlstore"
)

// Backend is a store that records and collections can sync through.
type Backend interface {
	model.Syncer
	store.Backend
}

// watchFunc reports external changes to a store until ctx is done.
type watchFunc func(ctx context.Context, delay time.Duration, onChange func()) error

// opened is a store together with its optional capabilities.
type opened struct {
	backend Backend
	closer  io.Closer
	watch   watchFunc
}

// openStore opens the backend selected by cfg.
func openStore(ctx context.Context, cfg *config.Config) (*opened, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return &opened{backend: memory.New()}, nil

	case config.DriverJSONFile:
		s, err := jsonfile.Open(cfg.StorePath())
		if err != nil {
			return nil, err
		}
		return &opened{backend: s, watch: s.Watch}, nil

	case config.DriverSQLite:
		s, err := sqlstore.OpenSQLite(ctx, cfg.StorePath())
		if err != nil {
			return nil, err
		}
		return &opened{backend: s, closer: s}, nil

	case config.DriverPostgres:
		s, err := sqlstore.OpenPostgres(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		return &opened{backend: s, closer: s}, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Store.Driver)
	}
}
