// Package model implements observable records and ordered collections.
//
// A Record is a keyed attribute store. Every mutation made through Set,
// SetKey, Unset or Clear is diffed against the current attributes and
// against the snapshot taken when the record last settled, and the result is
// announced through the record's event.Emitter:
//
//	"change:<key>"  (record, newValue, *Options)   once per changed key per pass
//	"change"        (record, *Options)             until no new changes arrive
//	"error"         (record, error, *Options)      on validation failure
//
// Listeners may mutate the record from inside a change handler. Nested
// mutations announce their own per-attribute events immediately, while the
// outermost Set keeps publishing "change" until a whole pass produces no new
// pending keys. A chain of derived attributes therefore converges inside a
// single external call.
//
// Mutations made with the Silent option are recorded but not announced. They
// surface, as "change:<key>" events, on the next mutation that notifies.
//
// # Collections
//
// A Collection is an ordered set of records indexed by identity and by
// ephemeral id. It subscribes to the "all" channel of every member and
// re-publishes member events on itself, so one subscription on the
// collection observes every record in it. The relay also keeps the identity
// index current when a member's identity attribute changes and drops members
// that publish "destroy".
//
// Members are passed as the Member sum type: either raw Attributes, which
// the collection turns into records of its Kind, or an existing *Record.
//
// # Persistence
//
// Records and collections do not talk to storage themselves. Fetch, Save,
// Destroy and Create call a Syncer with one of the create, read, update or
// delete operations and apply its response through the Kind's parser. See
// the store packages for implementations.
//
// # Thread Safety
//
// Records and collections are not safe for concurrent use.
package model
