package model

// Notification selects whether a mutation is announced.
type Notification int

const (
	// Notify publishes change events as part of the mutation.
	Notify Notification = iota

	// Suppress records the mutation without publishing. Suppressed keys are
	// announced by the next mutation that notifies.
	Suppress
)

// String returns the notification mode name.
func (n Notification) String() string {
	switch n {
	case Notify:
		return "notify"
	case Suppress:
		return "suppress"
	default:
		return "unknown"
	}
}

// ErrorFunc receives validation and persistence failures in place of the
// "error" event.
type ErrorFunc func(target any, err error, opts *Options)

// SuccessFunc receives the raw response of a successful sync in place of the
// "sync" event.
type SuccessFunc func(target any, response any)

// Options carries the settings of one operation. A pointer to it is passed
// to every listener the operation triggers.
type Options struct {
	// Notification selects whether the operation publishes events.
	Notification Notification

	// Unset treats the supplied attributes as deletions.
	Unset bool

	// At is the insertion position for collection adds; negative appends.
	At int

	// Index is the position of the record an "add" or "remove" event is
	// about.
	Index int

	// Parse runs raw attributes through the Kind's parser first.
	Parse bool

	// Wait defers local changes until the syncer has responded.
	Wait bool

	// Append makes a collection fetch add to the membership instead of
	// resetting it.
	Append bool

	// Error replaces the "error" event for this operation.
	Error ErrorFunc

	// Success replaces the "sync" event for this operation.
	Success SuccessFunc

	owner   *Collection
	changes keySet
}

// IsSilent returns true if the operation suppresses notification.
func (o *Options) IsSilent() bool {
	return o.Notification == Suppress
}

// clone returns a copy that can be adjusted without affecting o.
func (o *Options) clone() *Options {
	c := *o
	c.changes = nil
	return &c
}

// silenced returns a copy of o with notification suppressed.
func (o *Options) silenced() *Options {
	c := o.clone()
	c.Notification = Suppress
	return c
}

// Option configures an operation.
type Option func(*Options)

func newOptions(opts []Option) *Options {
	o := &Options{At: -1}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Silent suppresses notification.
func Silent() Option {
	return WithNotification(Suppress)
}

// WithNotification sets the notification mode.
func WithNotification(n Notification) Option {
	return func(o *Options) {
		o.Notification = n
	}
}

// WithUnset treats supplied attributes as deletions.
func WithUnset() Option {
	return func(o *Options) {
		o.Unset = true
	}
}

// At inserts added records at index i.
func At(i int) Option {
	return func(o *Options) {
		o.At = i
	}
}

// WithParse runs raw attributes through the Kind's parser.
func WithParse() Option {
	return func(o *Options) {
		o.Parse = true
	}
}

// Wait defers local changes until the syncer responds.
func Wait() Option {
	return func(o *Options) {
		o.Wait = true
	}
}

// Append makes Collection.Fetch add instead of reset.
func Append() Option {
	return func(o *Options) {
		o.Append = true
	}
}

// OnError routes failures to fn instead of the "error" event.
func OnError(fn ErrorFunc) Option {
	return func(o *Options) {
		o.Error = fn
	}
}

// OnSuccess routes sync responses to fn instead of the "sync" event.
func OnSuccess(fn SuccessFunc) Option {
	return func(o *Options) {
		o.Success = fn
	}
}
