package event

import "reflect"

// binding ties a listener to the context it was registered with.
type binding struct {
	listener *Listener
	context  any
}

// Emitter manages listener bindings organised by event name.
// The zero value is ready to use; its owner is the Emitter itself.
type Emitter struct {
	owner any
	subs  map[string][]binding
}

// NewEmitter creates an emitter whose events carry owner as their Source.
func NewEmitter(owner any) *Emitter {
	e := &Emitter{owner: owner}
	if owner == nil {
		e.owner = e
	}
	return e
}

// Owner returns the value events are published on behalf of.
func (e *Emitter) Owner() any {
	if e.owner == nil {
		return e
	}
	return e.owner
}

// Subscribe binds l to every name in names. A nil listener is ignored.
// The same listener and context may be bound to many names, and binding it
// twice to one name delivers twice.
func (e *Emitter) Subscribe(names string, l *Listener, context any) {
	if l == nil {
		return
	}
	if e.subs == nil {
		e.subs = make(map[string][]binding)
	}
	for _, name := range splitNames(names) {
		e.subs[name] = append(e.subs[name], binding{listener: l, context: context})
	}
}

// On wraps fn in a new Listener, binds it to names and returns the handle.
func (e *Emitter) On(names string, fn func(Event)) *Listener {
	l := NewListener(fn)
	e.Subscribe(names, l, nil)
	return l
}

// Unsubscribe removes bindings. Each argument narrows the match when given:
// names restricts the event names, l matches the listener by identity and
// context matches the bound context. With no arguments at all every binding
// is removed. Removing something that is not bound is a no-op.
func (e *Emitter) Unsubscribe(names string, l *Listener, context any) {
	if len(e.subs) == 0 {
		return
	}
	if names == "" && l == nil && context == nil {
		e.subs = nil
		return
	}

	var targets []string
	if names == "" {
		targets = make([]string, 0, len(e.subs))
		for name := range e.subs {
			targets = append(targets, name)
		}
	} else {
		targets = splitNames(names)
	}

	for _, name := range targets {
		current, ok := e.subs[name]
		if !ok {
			continue
		}
		if l == nil && context == nil {
			delete(e.subs, name)
			continue
		}

		// Build a fresh slice so that an in-flight Publish keeps iterating the
		// list it started with.
		kept := make([]binding, 0, len(current))
		for _, b := range current {
			if (l != nil && b.listener != l) || (context != nil && !sameContext(b.context, context)) {
				kept = append(kept, b)
			}
		}
		if len(kept) == 0 {
			delete(e.subs, name)
		} else {
			e.subs[name] = kept
		}
	}
}

// UnsubscribeAll removes every binding.
func (e *Emitter) UnsubscribeAll() {
	e.subs = nil
}

// Publish delivers an event to the listeners bound to each name in names,
// followed by the listeners bound to All. Publishing a name nobody listens
// to is a no-op.
func (e *Emitter) Publish(names string, args ...any) {
	if len(e.subs) == 0 {
		return
	}
	source := e.Owner()
	for _, name := range splitNames(names) {
		e.deliver(e.subs[name], name, source, args)
		if name != All {
			e.deliver(e.subs[All], name, source, args)
		}
	}
}

// deliver runs every binding in list. The list is never mutated in place,
// so later subscription changes do not affect this pass.
func (e *Emitter) deliver(list []binding, name string, source any, args []any) {
	for _, b := range list {
		ctx := b.context
		if ctx == nil {
			ctx = source
		}
		b.listener.fn(Event{
			Name:    name,
			Args:    args,
			Source:  source,
			Context: ctx,
		})
	}
}

// HasListeners returns true if anything is bound to name.
func (e *Emitter) HasListeners(name string) bool {
	return len(e.subs[name]) > 0
}

// ListenerCount returns the number of bindings for name.
func (e *Emitter) ListenerCount(name string) int {
	return len(e.subs[name])
}

// Names returns the event names that currently have bindings.
func (e *Emitter) Names() []string {
	if len(e.subs) == 0 {
		return nil
	}
	names := make([]string, 0, len(e.subs))
	for name := range e.subs {
		names = append(names, name)
	}
	return names
}

// sameContext compares two bound contexts without panicking on
// uncomparable values, which never match.
func sameContext(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}
