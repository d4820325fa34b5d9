// Package app wires configuration, stores, validators and collections into
// a running data layer.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/golang/glog"

	"github.com/dshills/rxdata/internal/config"
	"github.com/dshills/rxdata/internal/model"
	"github.com/dshills/rxdata/internal/script"
)

// App holds one collection per configured kind, all synced through a
// single store.
//
// Records and collections are not safe for concurrent use. App methods
// serialise access with a mutex; callers touching collections directly from
// several goroutines should go through Do.
type App struct {
	mu sync.Mutex

	cfg     *config.Config
	store   *opened
	metrics *Metrics

	names       []string
	kinds       map[string]*model.Kind
	collections map[string]*model.Collection
	validators  []*script.Validator

	closed bool
}

// Open opens the configured store and builds every kind and collection.
// Collections start empty; call Fetch to load them.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, NewOperationError("open store", cfg.Store.Driver, err)
	}

	a := &App{
		cfg:         cfg,
		store:       st,
		metrics:     NewMetrics(),
		kinds:       make(map[string]*model.Kind),
		collections: make(map[string]*model.Collection),
	}
	for _, kc := range cfg.Kinds {
		if err := a.addKind(kc); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	glog.V(1).Infof("[app]opened %s store with %d kinds", cfg.Store.Driver, len(a.names))
	return a, nil
}

func (a *App) addKind(kc config.KindConfig) error {
	syncer := a.metrics.Instrument(a.store.backend)
	k := &model.Kind{
		Name:        kc.Name,
		IDAttribute: kc.IDAttribute,
		Defaults:    model.Attributes(kc.Defaults).Clone(),
		URLRoot:     kc.ResourceURL(),
		Sync:        syncer,
	}

	if kc.Validator != "" {
		v, err := script.LoadValidator(a.cfg.Resolve(kc.Validator))
		if err != nil {
			return NewOperationError("load validator", kc.Name, err)
		}
		a.validators = append(a.validators, v)
		k.Validate = v.Func()
	}

	opts := []model.CollectionOption{
		model.WithURL(kc.ResourceURL()),
		model.WithSyncer(syncer),
	}
	if kc.SortBy != "" {
		cmp := model.ByAttribute(kc.SortBy)
		if kc.Descending {
			cmp = model.Descending(cmp)
		}
		opts = append(opts, model.WithComparator(cmp))
	}

	c := model.NewCollection(k, opts...)
	logEvents(kc.Name, c)
	a.metrics.observe(c.Emitter)

	a.names = append(a.names, kc.Name)
	a.kinds[kc.Name] = k
	a.collections[kc.Name] = c
	return nil
}

// Config returns the configuration the application was opened with.
func (a *App) Config() *config.Config { return a.cfg }

// Metrics returns the application's metrics tracker.
func (a *App) Metrics() *Metrics { return a.metrics }

// Store returns the underlying store.
func (a *App) Store() Backend { return a.store.backend }

// Names returns the configured kind names in configuration order.
func (a *App) Names() []string { return slices.Clone(a.names) }

// Kind returns the named kind.
func (a *App) Kind(name string) (*model.Kind, error) {
	k, ok := a.kinds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return k, nil
}

// Collection returns the named collection.
func (a *App) Collection(name string) (*model.Collection, error) {
	c, ok := a.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return c, nil
}

// Do runs fn while holding the application lock.
func (a *App) Do(fn func() error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	return fn()
}

// Fetch reloads every collection from the store.
func (a *App) Fetch(ctx context.Context, opts ...model.Option) error {
	return a.Do(func() error {
		return a.fetchLocked(ctx, opts)
	})
}

// FetchKind reloads the named collection from the store.
func (a *App) FetchKind(ctx context.Context, name string, opts ...model.Option) error {
	return a.Do(func() error {
		c, err := a.Collection(name)
		if err != nil {
			return err
		}
		if err := c.Fetch(ctx, opts...); err != nil {
			return NewOperationError("fetch", name, err)
		}
		return nil
	})
}

func (a *App) fetchLocked(ctx context.Context, opts []model.Option) error {
	var errs []error
	for _, name := range a.names {
		if err := a.collections[name].Fetch(ctx, opts...); err != nil {
			errs = append(errs, NewOperationError("fetch", name, err))
		}
	}
	return errors.Join(errs...)
}

// Watch refetches every collection whenever the store changes outside this
// process, until ctx is done. Only file-backed stores can be watched, and
// only when store.watch is set.
func (a *App) Watch(ctx context.Context) error {
	if a.store.watch == nil {
		return fmt.Errorf("%w: %s", ErrWatchUnsupported, a.cfg.Store.Driver)
	}
	if !a.cfg.Store.Watch {
		return ErrWatchDisabled
	}
	delay, err := a.cfg.DebounceDuration()
	if err != nil {
		return err
	}
	return a.store.watch(ctx, delay, func() {
		if err := a.Fetch(ctx); err != nil {
			glog.Warningf("[app]refetch after external change: %v", err)
		}
	})
}

// Close releases validators and the store. It is safe to call more than once.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	for _, v := range a.validators {
		errs = append(errs, v.Close())
	}
	if a.store.closer != nil {
		errs = append(errs, a.store.closer.Close())
	}
	return errors.Join(errs...)
}
