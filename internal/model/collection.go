package model

import (
	"slices"

	"github.com/dshills/rxdata/internal/event"
)

// Collection is an ordered, indexed set of records.
type Collection struct {
	*event.Emitter

	kind       *Kind
	models     []*Record
	byID       map[string]*Record
	byCid      map[string]*Record
	comparator Comparator

	url     string
	backend Syncer
	parse   func(response any) ([]Attributes, error)

	relay *event.Listener
}

// CollectionOption configures a Collection.
type CollectionOption func(*Collection)

// WithComparator keeps the collection sorted by c.
func WithComparator(c Comparator) CollectionOption {
	return func(col *Collection) {
		col.comparator = c
	}
}

// WithURL sets the collection's resource location.
func WithURL(u string) CollectionOption {
	return func(col *Collection) {
		col.url = u
	}
}

// WithSyncer sets the collection's persistence collaborator. Records
// without a syncer of their own use it too.
func WithSyncer(s Syncer) CollectionOption {
	return func(col *Collection) {
		col.backend = s
	}
}

// WithListParser replaces the decoding of fetch responses.
func WithListParser(fn func(response any) ([]Attributes, error)) CollectionOption {
	return func(col *Collection) {
		col.parse = fn
	}
}

// NewCollection creates an empty collection whose raw members become
// records of kind k.
func NewCollection(k *Kind, opts ...CollectionOption) *Collection {
	if k == nil {
		k = &Kind{}
	}
	c := &Collection{kind: k}
	c.Emitter = event.NewEmitter(c)
	c.relay = event.NewListener(c.onRecordEvent)
	for _, opt := range opts {
		opt(c)
	}
	c.resetState()
	return c
}

func (c *Collection) resetState() {
	c.models = nil
	c.byID = make(map[string]*Record)
	c.byCid = make(map[string]*Record)
}

// Kind returns the kind raw members are turned into.
func (c *Collection) Kind() *Kind { return c.kind }

// Comparator returns the configured comparator, or nil.
func (c *Collection) Comparator() Comparator { return c.comparator }

// SetComparator replaces the comparator. It does not re-sort.
func (c *Collection) SetComparator(cmp Comparator) { c.comparator = cmp }

// Len returns the number of members.
func (c *Collection) Len() int { return len(c.models) }

// Models returns a copy of the members in order.
func (c *Collection) Models() []*Record { return slices.Clone(c.models) }

// Add admits members. Raw attributes become records of the collection's
// kind and must pass validation. Members already present, by ephemeral id or
// identity, and repeats within the batch are dropped silently. Members are
// inserted at the At option (default: the end), or in comparator order when
// the collection is sorted, and each admitted record publishes "add" with
// its final position in Options.Index.
//
// Invalid members are dropped while the rest are admitted; the returned
// error is then an *InvalidMemberError.
func (c *Collection) Add(members []Member, opts ...Option) error {
	return c.add(members, newOptions(opts))
}

func (c *Collection) add(members []Member, o *Options) error {
	var invalid *InvalidMemberError
	admitted := make([]*Record, 0, len(members))
	cids := keySet{}
	ids := keySet{}

	for i, m := range members {
		r, err := c.prepare(m, o)
		if err != nil {
			invalid = invalid.append(i, err)
			continue
		}
		key, hasID := identityKey(r.identity)
		if cids.has(r.cid) || c.byCid[r.cid] != nil || (hasID && (ids.has(key) || c.byID[key] != nil)) {
			continue
		}
		cids.add(r.cid)
		if hasID {
			ids.add(key)
		}
		admitted = append(admitted, r)
	}

	for _, r := range admitted {
		r.Subscribe(event.All, c.relay, c)
		c.byCid[r.cid] = r
		if key, ok := identityKey(r.identity); ok {
			c.byID[key] = r
		}
	}

	index := o.At
	if index < 0 || index > len(c.models) {
		index = len(c.models)
	}
	c.models = slices.Insert(c.models, index, admitted...)
	if c.comparator != nil {
		sortRecords(c.models, c.comparator)
	}

	if !o.IsSilent() && len(admitted) > 0 {
		for i, r := range slices.Clone(c.models) {
			if !cids.has(r.cid) {
				continue
			}
			o.Index = i
			r.Publish(event.Add, r, c, o)
		}
	}

	if invalid != nil {
		return invalid
	}
	return nil
}

// prepare turns a member into a record owned by c where possible.
func (c *Collection) prepare(m Member, o *Options) (*Record, error) {
	switch v := m.(type) {
	case *Record:
		if v == nil {
			return nil, ErrInvalidMember
		}
		if v.collection == nil {
			v.collection = c
		}
		return v, nil
	case Attributes:
		ro := o.clone()
		ro.owner = c
		r, err := newRecord(c.kind, v, ro)
		if err != nil {
			return nil, err
		}

		// Raw members are always validated, even by silent adds.
		vo := ro.clone()
		vo.Notification = Notify
		if !r.validate(r.attributes, vo) {
			return nil, r.lastError
		}
		return r, nil
	default:
		return nil, ErrInvalidMember
	}
}

// Remove drops the members that targets resolve to and returns them.
// A target is a *Record, an ephemeral id or an identity. Each removed record
// publishes "remove" with its former position in Options.Index.
func (c *Collection) Remove(targets []any, opts ...Option) []*Record {
	return c.remove(targets, newOptions(opts))
}

// RemoveOne drops a single member.
func (c *Collection) RemoveOne(target any, opts ...Option) *Record {
	removed := c.remove([]any{target}, newOptions(opts))
	if len(removed) == 0 {
		return nil
	}
	return removed[0]
}

func (c *Collection) remove(targets []any, o *Options) []*Record {
	var removed []*Record
	for _, target := range targets {
		r := c.resolve(target)
		if r == nil {
			continue
		}
		if key, ok := identityKey(r.identity); ok && c.byID[key] == r {
			delete(c.byID, key)
		}
		delete(c.byCid, r.cid)
		index := slices.Index(c.models, r)
		if index >= 0 {
			c.models = slices.Delete(c.models, index, index+1)
		}
		if !o.IsSilent() {
			o.Index = index
			r.Publish(event.Remove, r, c, o)
		}
		c.detach(r)
		removed = append(removed, r)
	}
	return removed
}

// resolve finds the member a target refers to, by ephemeral id first and
// identity second.
func (c *Collection) resolve(target any) *Record {
	if r, ok := target.(*Record); ok {
		if r == nil {
			return nil
		}
		if m := c.byCid[r.cid]; m != nil {
			return m
		}
		return c.Get(r.identity)
	}
	if s, ok := target.(string); ok {
		if m := c.byCid[s]; m != nil {
			return m
		}
	}
	return c.Get(target)
}

// detach releases the collection's hold on r.
func (c *Collection) detach(r *Record) {
	if r.collection == c {
		r.collection = nil
	}
	r.Unsubscribe(event.All, c.relay, c)
}

// Push appends a member and returns its record.
func (c *Collection) Push(m Member, opts ...Option) (*Record, error) {
	o := newOptions(opts)
	r, err := c.prepare(m, o)
	if err != nil {
		return nil, (*InvalidMemberError)(nil).append(0, err)
	}
	return r, c.add([]Member{r}, o)
}

// Pop removes and returns the last member.
func (c *Collection) Pop(opts ...Option) *Record {
	r := c.At(len(c.models) - 1)
	if r == nil {
		return nil
	}
	return c.RemoveOne(r, opts...)
}

// Unshift inserts a member at the front and returns its record.
func (c *Collection) Unshift(m Member, opts ...Option) (*Record, error) {
	o := newOptions(opts)
	o.At = 0
	r, err := c.prepare(m, o)
	if err != nil {
		return nil, (*InvalidMemberError)(nil).append(0, err)
	}
	return r, c.add([]Member{r}, o)
}

// Shift removes and returns the first member.
func (c *Collection) Shift(opts ...Option) *Record {
	r := c.At(0)
	if r == nil {
		return nil
	}
	return c.RemoveOne(r, opts...)
}

// Get returns the member with the given identity. A *Record argument is
// looked up by its identity.
func (c *Collection) Get(id any) *Record {
	if r, ok := id.(*Record); ok {
		if r == nil {
			return nil
		}
		id = r.identity
	}
	key, ok := identityKey(id)
	if !ok {
		return nil
	}
	return c.byID[key]
}

// GetByEphemeralID returns the member with the given ephemeral id. A
// *Record argument is looked up by its ephemeral id.
func (c *Collection) GetByEphemeralID(id any) *Record {
	switch v := id.(type) {
	case *Record:
		if v == nil {
			return nil
		}
		return c.byCid[v.cid]
	case string:
		return c.byCid[v]
	default:
		return nil
	}
}

// At returns the member at index i, or nil when out of range.
func (c *Collection) At(i int) *Record {
	if i < 0 || i >= len(c.models) {
		return nil
	}
	return c.models[i]
}

// IndexOf returns the position of r, or -1.
func (c *Collection) IndexOf(r *Record) int {
	return slices.Index(c.models, r)
}

// Contains returns true if r is a member.
func (c *Collection) Contains(r *Record) bool {
	return r != nil && c.byCid[r.cid] == r
}

// Where returns the members whose attributes match every entry of attrs.
// An empty attrs matches nothing.
func (c *Collection) Where(attrs Attributes) []*Record {
	if len(attrs) == 0 {
		return nil
	}
	return c.Filter(func(r *Record) bool {
		for key, val := range attrs {
			if !equal(val, r.attributes[key]) {
				return false
			}
		}
		return true
	})
}

// Filter returns the members for which keep returns true.
func (c *Collection) Filter(keep func(*Record) bool) []*Record {
	var out []*Record
	for _, r := range c.models {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the first member for which match returns true.
func (c *Collection) Find(match func(*Record) bool) *Record {
	for _, r := range c.models {
		if match(r) {
			return r
		}
	}
	return nil
}

// Each calls fn for every member in order.
func (c *Collection) Each(fn func(i int, r *Record)) {
	for i, r := range slices.Clone(c.models) {
		fn(i, r)
	}
}

// Pluck returns the value of key for every member.
func (c *Collection) Pluck(key string) []any {
	out := make([]any, len(c.models))
	for i, r := range c.models {
		out[i] = r.Get(key)
	}
	return out
}

// Sort re-orders the members with the comparator and publishes "reset".
// It returns ErrNoComparator when none is configured.
func (c *Collection) Sort(opts ...Option) error {
	if c.comparator == nil {
		return ErrNoComparator
	}
	o := newOptions(opts)
	sortRecords(c.models, c.comparator)
	if !o.IsSilent() {
		c.Publish(event.Reset, c, o)
	}
	return nil
}

// Reset replaces the whole membership without individual "add" or "remove"
// events, then publishes a single "reset".
func (c *Collection) Reset(members []Member, opts ...Option) error {
	return c.reset(members, newOptions(opts))
}

func (c *Collection) reset(members []Member, o *Options) error {
	for _, r := range c.models {
		c.detach(r)
	}
	c.resetState()
	err := c.add(members, o.silenced())
	if !o.IsSilent() {
		c.Publish(event.Reset, c, o)
	}
	return err
}

// ToJSON returns the serialised form of every member.
func (c *Collection) ToJSON() []Attributes {
	out := make([]Attributes, len(c.models))
	for i, r := range c.models {
		out[i] = r.ToJSON()
	}
	return out
}

// Payload implements Target.
func (c *Collection) Payload() any {
	return c.ToJSON()
}

// IDAttribute implements Target.
func (c *Collection) IDAttribute() string {
	return c.kind.idAttribute()
}

// onRecordEvent is the relay bound to every member's "all" channel.
func (c *Collection) onRecordEvent(e event.Event) {
	r, _ := e.Source.(*Record)

	if e.Name == event.Add || e.Name == event.Remove {
		if owner, _ := e.Arg(1).(*Collection); owner != c {
			return
		}
	}
	if e.Name == event.Destroy && r != nil {
		o := newOptions(nil)
		if given, ok := e.Arg(2).(*Options); ok && given != nil {
			o = given.clone()
		}
		c.remove([]any{r}, o)
	}
	if r != nil && e.Name == event.ChangeOf(r.IDAttribute()) {
		c.rekey(r)
	}
	c.Publish(e.Name, e.Args...)
}

// rekey points the identity index at r's current identity.
func (c *Collection) rekey(r *Record) {
	current, hasID := identityKey(r.identity)
	for key, m := range c.byID {
		if m == r && (!hasID || key != current) {
			delete(c.byID, key)
		}
	}
	if hasID {
		c.byID[current] = r
	}
}
