package model

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dshills/rxdata/internal/event"
)

// Operation is a persistence operation requested from a Syncer.
type Operation int

const (
	// OpCreate persists a new record.
	OpCreate Operation = iota

	// OpRead loads a record or a collection.
	OpRead

	// OpUpdate persists changes to an existing record.
	OpUpdate

	// OpDelete removes a record.
	OpDelete
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpRead:
		return "read"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Target is what a Syncer operates on: a *Record or a *Collection.
type Target interface {
	// URL returns the resource location, such as "/notes" or "/notes/42".
	URL() (string, error)

	// IDAttribute names the identity attribute of the target's records.
	IDAttribute() string

	// Payload returns the serialised form: Attributes for a record,
	// []Attributes for a collection.
	Payload() any
}

// Syncer is the persistence collaborator. Sync blocks until the operation
// completes and returns the raw response body, which the caller parses.
type Syncer interface {
	Sync(ctx context.Context, op Operation, target Target, opts *Options) (any, error)
}

// SyncerFunc is a function adapter for Syncer.
type SyncerFunc func(ctx context.Context, op Operation, target Target, opts *Options) (any, error)

// Sync implements the Syncer interface.
func (f SyncerFunc) Sync(ctx context.Context, op Operation, target Target, opts *Options) (any, error) {
	return f(ctx, op, target, opts)
}

// URL returns the record's resource location: the Kind's URL root, or the
// owning collection's URL, followed by the escaped identity unless the
// record is new.
func (r *Record) URL() (string, error) {
	base := r.kind.URLRoot
	if base == "" && r.collection != nil {
		base = r.collection.url
	}
	if base == "" {
		return "", ErrNoURL
	}
	if r.IsNew() {
		return base, nil
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + url.PathEscape(fmt.Sprint(r.identity)), nil
}

func (r *Record) syncer() Syncer {
	if r.kind.Sync != nil {
		return r.kind.Sync
	}
	if r.collection != nil {
		return r.collection.syncer()
	}
	return nil
}

func (r *Record) sync(ctx context.Context, op Operation, o *Options) (any, error) {
	s := r.syncer()
	if s == nil {
		return nil, ErrNoSyncer
	}
	return s.Sync(ctx, op, r, o)
}

// Fetch reads the record from its syncer and sets the parsed response.
func (r *Record) Fetch(ctx context.Context, opts ...Option) error {
	o := newOptions(opts)
	resp, err := r.sync(ctx, OpRead, o)
	if err != nil {
		r.routeError(err, o)
		return err
	}
	attrs, err := r.kind.parse(resp)
	if err != nil {
		r.routeError(err, o)
		return err
	}
	if !r.set(attrs, o) {
		return r.lastError
	}
	if o.Success != nil {
		o.Success(r, resp)
	}
	return nil
}

// Save sets attrs (which may be nil) and persists the record, creating it
// when it is new and updating it otherwise. With Wait, attrs are validated
// up front but only applied once the syncer has responded.
func (r *Record) Save(ctx context.Context, attrs Attributes, opts ...Option) error {
	return r.save(ctx, attrs, newOptions(opts))
}

func (r *Record) save(ctx context.Context, attrs Attributes, o *Options) error {
	var current Attributes
	if o.Wait {
		if !r.validate(attrs, o) {
			return r.lastError
		}
		current = r.attributes.Clone()
	}

	if attrs == nil && !o.Wait {
		vo := o.clone()
		vo.Notification = Notify
		if !r.validate(Attributes{}, vo) {
			return r.lastError
		}
	}
	if attrs != nil {
		setOpts := o
		if o.Wait {
			setOpts = o.silenced()
		}
		if !r.set(attrs, setOpts) {
			return r.lastError
		}
	}

	op := OpUpdate
	if r.IsNew() {
		op = OpCreate
	}
	resp, err := r.sync(ctx, op, o)
	if o.Wait {
		r.restore(current, o)
	}
	if err != nil {
		r.routeError(err, o)
		return err
	}

	serverAttrs, err := r.kind.parse(resp)
	if err != nil {
		r.routeError(err, o)
		return err
	}
	if o.Wait {
		merged := attrs.Clone()
		for key, val := range serverAttrs {
			merged[key] = val
		}
		serverAttrs = merged
	}
	if !r.set(serverAttrs, o) {
		return r.lastError
	}

	if o.Success != nil {
		o.Success(r, resp)
	} else {
		r.Publish(event.Sync, r, resp, o)
	}
	return nil
}

// restore silently replaces the attributes with snapshot.
func (r *Record) restore(snapshot Attributes, o *Options) {
	clear := o.silenced()
	clear.Unset = true
	r.set(r.attributes.Clone(), clear)

	reset := o.silenced()
	reset.Unset = false
	r.set(snapshot, reset)
}

// Destroy deletes the record through its syncer and publishes "destroy" so
// that collections holding it let go. A new record is never synced; it is
// only announced. Without Wait the announcement happens as soon as the
// request has been made, whatever its outcome.
func (r *Record) Destroy(ctx context.Context, opts ...Option) error {
	o := newOptions(opts)
	announce := func() {
		r.Publish(event.Destroy, r, r.collection, o)
	}
	if r.IsNew() {
		announce()
		return nil
	}

	resp, err := r.sync(ctx, OpDelete, o)
	if !o.Wait {
		announce()
	}
	if err != nil {
		r.routeError(err, o)
		return err
	}
	if o.Wait {
		announce()
	}

	if o.Success != nil {
		o.Success(r, resp)
	} else {
		r.Publish(event.Sync, r, resp, o)
	}
	return nil
}
