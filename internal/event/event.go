package event

import "strings"

// Names published by records and collections.
const (
	// All is the wildcard name. Listeners bound to it receive every event.
	All = "all"

	// Change is published once per settlement pass after attribute events.
	Change = "change"

	// Add is published on a record when a collection admits it.
	Add = "add"

	// Remove is published on a record when a collection drops it.
	Remove = "remove"

	// Reset is published on a collection after its membership or order is
	// replaced wholesale.
	Reset = "reset"

	// Destroy asks every holder of a record to let go of it.
	Destroy = "destroy"

	// Error reports validation or persistence failures.
	Error = "error"

	// Sync is published after a successful round trip to a persistence
	// collaborator when no success callback was supplied.
	Sync = "sync"
)

// changePrefix is the prefix of per-attribute change names.
const changePrefix = Change + ":"

// ChangeOf returns the per-attribute change name for key.
func ChangeOf(key string) string {
	return changePrefix + key
}

// ChangedKey reports the attribute key carried by a "change:<key>" name.
func ChangedKey(name string) (string, bool) {
	if !strings.HasPrefix(name, changePrefix) {
		return "", false
	}
	return name[len(changePrefix):], true
}

// Event is a single delivery to a listener.
type Event struct {
	// Name is the event that was published. Listeners bound to All see the
	// real name here, never "all".
	Name string

	// Args are the values passed to Publish after the name.
	Args []any

	// Source is the owner of the emitter that published the event.
	Source any

	// Context is the value the listener was bound with, or Source when the
	// binding had none.
	Context any
}

// Arg returns the i-th argument, or nil when there are fewer arguments.
func (e Event) Arg(i int) any {
	if i < 0 || i >= len(e.Args) {
		return nil
	}
	return e.Args[i]
}

// Listener is a subscribable callback. The pointer identity of a Listener is
// what Unsubscribe matches against.
type Listener struct {
	fn func(Event)
}

// NewListener wraps fn in a Listener. A nil fn yields a nil Listener.
func NewListener(fn func(Event)) *Listener {
	if fn == nil {
		return nil
	}
	return &Listener{fn: fn}
}

// Call invokes the listener directly.
func (l *Listener) Call(e Event) {
	l.fn(e)
}

// splitNames splits a space separated list of event names.
func splitNames(names string) []string {
	return strings.Fields(names)
}
