package model

import (
	"fmt"
	"html"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/dshills/rxdata/internal/event"
)

// Record is an observable attribute store.
type Record struct {
	*event.Emitter

	kind *Kind

	attributes Attributes
	previous   Attributes
	changed    Attributes

	pending keySet
	silent  keySet
	escaped map[string]string

	identity any
	cid      string

	changing   bool
	collection *Collection
	lastError  error
}

// NewRecord creates a record of kind k seeded with attrs. The Kind's
// defaults are applied underneath attrs, the identity is extracted, and the
// result is the record's settled state: nothing has changed and no events
// are published. A nil kind behaves like an empty Kind.
//
// With WithParse, attrs go through the Kind's parser first. A parse failure
// leaves the record with its defaults only; the error is routed to the
// Error option or published as "error" and kept as ValidationError.
func NewRecord(k *Kind, attrs Attributes, opts ...Option) *Record {
	o := newOptions(opts)
	r, err := newRecord(k, attrs, o)
	if err != nil {
		r.routeError(err, o)
	}
	return r
}

func newRecord(k *Kind, attrs Attributes, o *Options) (*Record, error) {
	if k == nil {
		k = &Kind{}
	}
	r := &Record{
		kind:       k,
		attributes: Attributes{},
		previous:   Attributes{},
		changed:    Attributes{},
		pending:    keySet{},
		silent:     keySet{},
		escaped:    make(map[string]string),
		cid:        "c" + uuid.NewString(),
	}
	r.Emitter = event.NewEmitter(r)

	var parseErr error
	if o.Parse && k.Parse != nil {
		parsed, err := k.Parse(attrs)
		if err != nil {
			parseErr = fmt.Errorf("%w: %v", ErrUnparseable, err)
			attrs = nil
		} else {
			attrs = parsed
		}
	}
	seed := k.Defaults.Clone()
	maps.Copy(seed, attrs)

	if o.owner != nil {
		r.collection = o.owner
	}

	r.set(seed, &Options{Notification: Suppress, At: -1})
	r.changed = Attributes{}
	r.silent = keySet{}
	r.pending = keySet{}
	r.previous = r.attributes.Clone()

	if k.Initialize != nil {
		k.Initialize(r)
	}
	r.lastError = parseErr
	return r, parseErr
}

// Kind returns the record's kind.
func (r *Record) Kind() *Kind { return r.kind }

// Identity returns the externally assigned identity, or nil for a record
// that has never been persisted.
func (r *Record) Identity() any { return r.identity }

// EphemeralID returns the locally unique id assigned at construction.
func (r *Record) EphemeralID() string { return r.cid }

// IDAttribute returns the name of the identity attribute.
func (r *Record) IDAttribute() string { return r.kind.idAttribute() }

// IsNew returns true if the record has no identity.
func (r *Record) IsNew() bool { return r.identity == nil }

// Collection returns the collection that owns the record, if any.
func (r *Record) Collection() *Collection { return r.collection }

// Get returns the current value of key, or nil.
func (r *Record) Get(key string) any {
	return r.attributes[key]
}

// Has returns true if key holds a non-nil value.
func (r *Record) Has(key string) bool {
	return r.attributes[key] != nil
}

// Escape returns the HTML-escaped string form of key. The result is cached
// until the raw value changes.
func (r *Record) Escape(key string) string {
	if s, ok := r.escaped[key]; ok {
		return s
	}
	s := ""
	if v := r.attributes[key]; v != nil {
		s = html.EscapeString(fmt.Sprint(v))
	}
	r.escaped[key] = s
	return s
}

// Set merges attrs into the record. It returns false, leaving the record
// untouched, when validation rejects the prospective attribute set.
func (r *Record) Set(attrs Attributes, opts ...Option) bool {
	return r.set(attrs, newOptions(opts))
}

// SetKey sets a single attribute.
func (r *Record) SetKey(key string, value any, opts ...Option) bool {
	return r.set(Attributes{key: value}, newOptions(opts))
}

// Unset removes key.
func (r *Record) Unset(key string, opts ...Option) bool {
	o := newOptions(opts)
	o.Unset = true
	return r.set(Attributes{key: nil}, o)
}

// Clear removes every attribute.
func (r *Record) Clear(opts ...Option) bool {
	o := newOptions(opts)
	o.Unset = true
	return r.set(r.attributes.Clone(), o)
}

func (r *Record) set(attrs Attributes, o *Options) bool {
	if attrs == nil {
		return true
	}
	if !r.validate(attrs, o) {
		return false
	}

	idAttr := r.kind.idAttribute()
	if id, ok := attrs[idAttr]; ok {
		if o.Unset {
			id = nil
		}
		r.identity = id
	}

	silent := o.IsSilent()
	o.changes = keySet{}
	for key, val := range attrs {
		if o.Unset {
			val = nil
		}

		// Diff against the current value.
		cur, has := r.attributes[key]
		if !equal(cur, val) || (o.Unset && has) {
			delete(r.escaped, key)
			if silent {
				r.silent.add(key)
			} else {
				o.changes.add(key)
			}
		}
		if o.Unset {
			delete(r.attributes, key)
		} else {
			r.attributes[key] = val
		}

		// Diff against the settled snapshot.
		prev, hadPrev := r.previous[key]
		_, hasNow := r.attributes[key]
		if !equal(prev, val) || hasNow != hadPrev {
			r.changed[key] = val
			if !silent {
				r.pending.add(key)
			}
		} else {
			delete(r.changed, key)
			delete(r.pending, key)
		}
	}

	if !silent {
		r.settle(o)
	}
	return true
}

// Settle announces suppressed changes without mutating anything.
func (r *Record) Settle(opts ...Option) {
	o := newOptions(opts)
	o.changes = keySet{}
	r.settle(o)
}

// settle publishes "change:<key>" for the keys changed by the current call
// and every suppressed key, then, unless a settlement is already running,
// publishes "change" until a pass leaves nothing pending.
func (r *Record) settle(o *Options) {
	changing := r.changing
	r.changing = true
	if !changing {
		defer func() { r.changing = false }()
	}

	announce := keySet{}
	for key := range o.changes {
		announce.add(key)
	}
	for key := range r.silent {
		r.pending.add(key)
		announce.add(key)
	}
	r.silent = keySet{}

	for _, key := range slices.Sorted(maps.Keys(announce)) {
		r.Publish(event.ChangeOf(key), r, r.attributes[key], o)
	}
	if changing {
		return
	}

	for len(r.pending) > 0 {
		r.pending = keySet{}
		r.Publish(event.Change, r, o)
		for key := range r.changed {
			if r.pending.has(key) || r.silent.has(key) {
				continue
			}
			delete(r.changed, key)
		}
		r.previous = r.attributes.Clone()
	}
}

// validate runs the Kind's validator against the attributes the record would
// hold after applying attrs. Silent mutations are not validated.
func (r *Record) validate(attrs Attributes, o *Options) bool {
	if o.IsSilent() || r.kind.Validate == nil {
		return true
	}
	prospective := r.attributes.Clone()
	for key, val := range attrs {
		if o.Unset {
			delete(prospective, key)
		} else {
			prospective[key] = val
		}
	}
	err := r.kind.Validate(prospective, o)
	if err == nil {
		r.lastError = nil
		return true
	}
	r.lastError = &ValidationError{Kind: r.kind.Name, Err: err}
	r.routeError(err, o)
	return false
}

// routeError hands err to the operation's error callback, or publishes it.
func (r *Record) routeError(err error, o *Options) {
	if o.Error != nil {
		o.Error(r, err, o)
		return
	}
	r.Publish(event.Error, r, err, o)
}

// IsValid returns true if the current attributes pass validation.
func (r *Record) IsValid() bool {
	if r.kind.Validate == nil {
		return true
	}
	return r.kind.Validate(r.attributes.Clone(), newOptions(nil)) == nil
}

// ValidationError returns the most recent validation failure, or nil if the
// last validated mutation passed.
func (r *Record) ValidationError() error {
	return r.lastError
}

// HasChanged returns true if any attribute differs from the settled snapshot.
func (r *Record) HasChanged() bool {
	return len(r.changed) > 0
}

// HasChangedKey returns true if key differs from the settled snapshot.
func (r *Record) HasChangedKey(key string) bool {
	_, ok := r.changed[key]
	return ok
}

// ChangedAttributes returns a copy of the attributes that differ from the
// settled snapshot. The second result is false when nothing has changed.
func (r *Record) ChangedAttributes() (Attributes, bool) {
	if len(r.changed) == 0 {
		return nil, false
	}
	return r.changed.Clone(), true
}

// ChangedAttributesFrom returns the entries of diff that differ from the
// settled snapshot, independent of the record's own tracked changes.
func (r *Record) ChangedAttributesFrom(diff Attributes) (Attributes, bool) {
	var changed Attributes
	for key, val := range diff {
		if equal(r.previous[key], val) {
			continue
		}
		if changed == nil {
			changed = Attributes{}
		}
		changed[key] = val
	}
	return changed, changed != nil
}

// Previous returns the settled value of key.
func (r *Record) Previous(key string) any {
	return r.previous[key]
}

// PreviousAttributes returns a copy of the settled snapshot.
func (r *Record) PreviousAttributes() Attributes {
	return r.previous.Clone()
}

// Clone returns a new record of the same kind seeded with a copy of the
// current attributes.
func (r *Record) Clone() *Record {
	return NewRecord(r.kind, r.attributes.Clone())
}

// ToJSON returns a shallow copy of the attributes.
func (r *Record) ToJSON() Attributes {
	return r.attributes.Clone()
}

// Payload implements Target.
func (r *Record) Payload() any {
	return r.ToJSON()
}

// Keys returns the attribute keys in sorted order.
func (r *Record) Keys() []string {
	return slices.Sorted(maps.Keys(r.attributes))
}

// String returns a short description for logs.
func (r *Record) String() string {
	name := r.kind.Name
	if name == "" {
		name = "record"
	}
	if r.identity != nil {
		return fmt.Sprintf("%s(%v)", name, r.identity)
	}
	return fmt.Sprintf("%s(%s)", name, r.cid)
}

func (*Record) member() {}
