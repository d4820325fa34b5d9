// Package store provides persistence collaborators for records and
// collections.
//
// Every store addresses data by resource and id, the two segments of a
// record URL such as "/notes/01HF...". Backend is that addressing scheme;
// Dispatch maps the persistence operations of a model.Syncer onto it, so
// each concrete store only has to implement four methods.
//
// Stores, unlike records and collections, are safe for concurrent use.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"

	"github.com/dshills/rxdata/internal/model"
)

// Common errors.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrBadPath is returned when a URL is not "/<resource>" or
	// "/<resource>/<id>".
	ErrBadPath = errors.New("invalid resource path")

	// ErrMissingID is returned for item operations on a resource URL.
	ErrMissingID = errors.New("operation requires a record id")

	// ErrPayload is returned when a target's payload is not an attribute set.
	ErrPayload = errors.New("unsupported payload")

	// ErrClosed is returned after a store has been closed.
	ErrClosed = errors.New("store closed")
)

// Snapshot is the full content of a store, keyed by resource then id.
type Snapshot map[string]map[string]model.Attributes

// Clone returns a copy of s that shares no maps with it.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for resource, items := range s {
		cp := make(map[string]model.Attributes, len(items))
		for id, attrs := range items {
			cp[id] = attrs.Clone()
		}
		out[resource] = cp
	}
	return out
}

// Backend stores attribute sets by resource and id.
type Backend interface {
	// List returns every record of resource ordered by id.
	List(ctx context.Context, resource string) ([]model.Attributes, error)

	// Get returns one record, or ErrNotFound.
	Get(ctx context.Context, resource, id string) (model.Attributes, error)

	// Put creates or replaces a record.
	Put(ctx context.Context, resource, id string, attrs model.Attributes) error

	// Delete removes a record, or returns ErrNotFound.
	Delete(ctx context.Context, resource, id string) error
}

// ParsePath splits a record or collection URL into its resource and id.
// The id is path-unescaped and empty for a collection URL.
func ParsePath(u string) (resource, id string, err error) {
	trimmed := strings.Trim(u, "/")
	if trimmed == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadPath, u)
	}
	parts := strings.Split(trimmed, "/")
	switch len(parts) {
	case 1:
		return parts[0], "", nil
	case 2:
		id, err := url.PathUnescape(parts[1])
		if err != nil || id == "" {
			return "", "", fmt.Errorf("%w: %q", ErrBadPath, u)
		}
		return parts[0], id, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrBadPath, u)
	}
}

// NewID returns a new lexically sortable record id.
func NewID() string {
	return ulid.Make().String()
}

// Dispatch performs op against b. Create assigns a new id to the target's
// identity attribute unless it already carries one; the response of create
// and update is the stored attribute set, of read the record or the
// resource's list, and of delete nil.
func Dispatch(ctx context.Context, name string, b Backend, op model.Operation, target model.Target) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := target.URL()
	if err != nil {
		return nil, err
	}
	resource, id, err := ParsePath(u)
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("[%s]%s %s", name, op, u)

	switch op {
	case model.OpRead:
		if id == "" {
			return b.List(ctx, resource)
		}
		return b.Get(ctx, resource, id)

	case model.OpCreate:
		attrs, err := payload(target)
		if err != nil {
			return nil, err
		}
		idAttr := target.IDAttribute()
		if v, ok := attrs[idAttr]; ok && v != nil {
			id = fmt.Sprint(v)
		} else {
			id = NewID()
			attrs[idAttr] = id
		}
		if err := b.Put(ctx, resource, id, attrs); err != nil {
			return nil, err
		}
		return attrs, nil

	case model.OpUpdate:
		if id == "" {
			return nil, ErrMissingID
		}
		attrs, err := payload(target)
		if err != nil {
			return nil, err
		}
		if err := b.Put(ctx, resource, id, attrs); err != nil {
			return nil, err
		}
		return attrs, nil

	case model.OpDelete:
		if id == "" {
			return nil, ErrMissingID
		}
		return nil, b.Delete(ctx, resource, id)

	default:
		return nil, fmt.Errorf("unsupported operation %s", op)
	}
}

// payload returns a private copy of a record target's attributes.
func payload(target model.Target) (model.Attributes, error) {
	switch p := target.Payload().(type) {
	case model.Attributes:
		return p.Clone(), nil
	case map[string]any:
		return model.Attributes(p).Clone(), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrPayload, p)
	}
}
