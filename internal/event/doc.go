// Package event provides the publish/subscribe registry shared by records
// and collections.
//
// An Emitter keeps, per event name, an ordered list of listener bindings.
// Publishing an event invokes every listener bound to that name in
// subscription order, then every listener bound to the wildcard name "all".
// Delivery is synchronous: Publish returns only after the last listener has
// run, and a panicking listener unwinds straight through the publisher.
//
// # Names
//
// Event names are plain strings. Subscribe, Unsubscribe and Publish accept
// several names separated by spaces:
//
//	rec.On("change:title change:body", redraw)
//	rec.Publish("change")
//
// The data layer publishes a small vocabulary of names, exported as
// constants: [All], [Change], [Add], [Remove], [Reset], [Destroy], [Error]
// and [Sync]. Per-attribute changes use "change:<key>", built by [ChangeOf].
//
// # Listeners
//
// Go functions are not comparable, so callback identity is carried by a
// *Listener handle. Keep the handle returned by On (or passed to Subscribe)
// to remove exactly that callback later:
//
//	l := rec.On("change", redraw)
//	...
//	rec.Unsubscribe("change", l, nil)
//
// A listener may be bound with a context value. The context is delivered as
// Event.Context and is also a filter for Unsubscribe. When no context is
// given the emitter's owner is used instead.
//
// # Re-entrancy
//
// Listener lists are copy-on-write. Publish iterates over the list as it was
// when delivery of that name began, so listeners may subscribe or
// unsubscribe (themselves or others) from inside a callback without causing
// the in-flight pass to skip or repeat anyone. Changes take effect from the
// next Publish.
//
// # Thread Safety
//
// An Emitter is not safe for concurrent use. The data layer is single
// threaded; callers that share records between goroutines must serialise
// access themselves.
package event
