package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/dshills/rxdata/internal/event"
)

func TestNewRecord_Settled(t *testing.T) {
	k := &Kind{Name: "note", Defaults: Attributes{"title": "untitled", "done": false}}
	r := k.New(Attributes{"id": 7, "title": "groceries"})

	assert.Equal(t, r.Get("title"), "groceries")
	assert.Equal(t, r.Get("done"), false)
	assert.Equal(t, r.Identity(), 7)
	assert.Equal(t, r.IsNew(), false)
	assert.Equal(t, r.PreviousAttributes(), Attributes{"id": 7, "title": "groceries", "done": false})
	assert.Equal(t, r.HasChanged(), false)

	_, changed := r.ChangedAttributes()
	assert.Equal(t, changed, false)
}

func TestNewRecord_EphemeralIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewRecord(nil, nil).EphemeralID()
		if id == "" || seen[id] {
			t.Fatalf("ephemeral id %q reused or empty", id)
		}
		seen[id] = true
	}
}

func TestNewRecord_DefaultsNotShared(t *testing.T) {
	k := &Kind{Defaults: Attributes{"n": 1}}
	a := k.New(nil)
	a.SetKey("n", 2)

	assert.Equal(t, k.New(nil).Get("n"), 1)
	assert.Equal(t, k.Defaults["n"], 1)
}

func TestNewRecord_Initialize(t *testing.T) {
	var seen *Record
	k := &Kind{Initialize: func(r *Record) { seen = r }}
	r := k.New(nil)

	assert.Equal(t, seen == r, true)
}

func TestRecord_SetKeyFiresOnce(t *testing.T) {
	m := NewRecord(nil, Attributes{"id": 1, "count": 0})

	var calls []event.Event
	var previousDuring any
	m.On("change:count", func(e event.Event) {
		calls = append(calls, e)
		previousDuring = m.Previous("count")
	})

	assert.Equal(t, m.Previous("count"), 0)
	ok := m.Set(Attributes{"count": 1})

	assert.Equal(t, ok, true)
	assert.Equal(t, len(calls), 1)
	assert.Equal(t, calls[0].Arg(0) == any(m), true)
	assert.Equal(t, calls[0].Arg(1), 1)
	_, isOpts := calls[0].Arg(2).(*Options)
	assert.Equal(t, isOpts, true)
	assert.Equal(t, previousDuring, 0)
	assert.Equal(t, m.Previous("count"), 1)
}

func TestRecord_SetSameValuesIsNoop(t *testing.T) {
	r := NewRecord(nil, nil)
	events := watch(r, event.All)

	attrs := Attributes{"a": 1, "b": []string{"x", "y"}}
	r.Set(attrs)
	assert.Equal(t, events.count("change"), 1)
	assert.Equal(t, events.count("change:a"), 1)
	assert.Equal(t, events.count("change:b"), 1)

	events.events = nil
	r.Set(Attributes{"a": 1, "b": []string{"x", "y"}})
	assert.Equal(t, len(events.events), 0)
}

func TestRecord_AttributeEventsPrecedeChange(t *testing.T) {
	r := NewRecord(nil, nil)
	events := watch(r, event.All)

	r.Set(Attributes{"b": 2, "a": 1})

	assert.Equal(t, events.names(), []string{"change:a", "change:b", "change"})
}

func TestRecord_SilentChangesSurfaceLater(t *testing.T) {
	r := NewRecord(nil, Attributes{"x": 0})
	events := watch(r, event.All)

	r.Set(Attributes{"x": 1}, Silent())

	assert.Equal(t, r.HasChangedKey("x"), true)
	assert.Equal(t, r.Get("x"), 1)
	assert.Equal(t, len(events.events), 0)

	r.Set(Attributes{"y": 2})

	assert.Equal(t, events.names(), []string{"change:x", "change:y", "change"})
	assert.Equal(t, events.events[0].Arg(1), 1)
	assert.Equal(t, r.HasChanged(), false)
	assert.Equal(t, r.Previous("x"), 1)
}

func TestRecord_SettleAnnouncesSuppressed(t *testing.T) {
	r := NewRecord(nil, nil)
	events := watch(r, event.All)

	r.SetKey("x", 1, Silent())
	r.Settle()

	assert.Equal(t, events.names(), []string{"change:x", "change"})
	assert.Equal(t, r.HasChanged(), false)
}

func TestRecord_SilentRevertClearsChange(t *testing.T) {
	r := NewRecord(nil, Attributes{"x": 0})

	r.SetKey("x", 1, Silent())
	r.SetKey("x", 0, Silent())

	assert.Equal(t, r.HasChangedKey("x"), false)
}

func TestRecord_ReentrantMutationConverges(t *testing.T) {
	r := NewRecord(nil, Attributes{"a": 1, "b": 2})
	r.On("change:a", func(e event.Event) {
		r.SetKey("b", e.Arg(1).(int)*2)
	})
	events := watch(r, event.All)

	r.SetKey("a", 5)

	assert.Equal(t, r.Get("b"), 10)
	assert.Equal(t, events.count("change"), 1)
	assert.Equal(t, events.count("change:b"), 1)
	assert.Equal(t, r.HasChanged(), false)
	assert.Equal(t, r.PreviousAttributes(), Attributes{"a": 5, "b": 10})
}

func TestRecord_ChangeHandlerMutationLoops(t *testing.T) {
	r := NewRecord(nil, Attributes{"n": 0})
	r.On("change", func(event.Event) {
		if n := r.Get("n").(int); n < 3 {
			r.SetKey("n", n+1)
		}
	})
	events := watch(r, event.All)

	r.SetKey("n", 1)

	assert.Equal(t, r.Get("n"), 3)
	// Nested mutations announce their keys while the outer "change" is
	// still being delivered.
	assert.Equal(t, events.names(), []string{
		"change:n",
		"change:n", "change",
		"change:n", "change",
		"change",
	})
	assert.Equal(t, r.HasChanged(), false)
}

func TestRecord_GuardResetAfterPanic(t *testing.T) {
	r := NewRecord(nil, nil)
	l := r.On("change", func(event.Event) { panic("listener failed") })

	func() {
		defer func() { _ = recover() }()
		r.SetKey("a", 1)
	}()

	r.Unsubscribe("change", l, nil)
	events := watch(r, "change")
	r.SetKey("a", 2)

	assert.Equal(t, events.count("change"), 1)
}

func TestRecord_ValidationRejectsWholeSet(t *testing.T) {
	errNegative := errors.New("count must not be negative")
	k := &Kind{
		Name: "counter",
		Validate: func(attrs Attributes, _ *Options) error {
			if n, ok := attrs["count"].(int); ok && n < 0 {
				return errNegative
			}
			return nil
		},
	}
	r := k.New(Attributes{"count": 0, "label": "a"})
	events := watch(r, event.All)

	ok := r.Set(Attributes{"count": -1, "label": "b"})

	assert.Equal(t, ok, false)
	assert.Equal(t, r.Get("count"), 0)
	assert.Equal(t, r.Get("label"), "a")
	assert.Equal(t, events.names(), []string{"error"})
	assert.Equal(t, events.events[0].Arg(1) == any(errNegative), true)
	assert.Equal(t, errors.Is(r.ValidationError(), ErrInvalid), true)
	assert.Equal(t, errors.Is(r.ValidationError(), errNegative), true)

	var cbErr error
	events.events = nil
	ok = r.SetKey("count", -5, OnError(func(_ any, err error, _ *Options) { cbErr = err }))
	assert.Equal(t, ok, false)
	assert.Equal(t, cbErr == errNegative, true)
	assert.Equal(t, len(events.events), 0)

	assert.Equal(t, r.SetKey("count", -5, Silent()), true)
	assert.Equal(t, r.IsValid(), false)
}

func TestRecord_ValidationSeesProspectiveAttributes(t *testing.T) {
	var seen Attributes
	k := &Kind{Validate: func(attrs Attributes, _ *Options) error {
		seen = attrs
		return nil
	}}
	r := k.New(Attributes{"a": 1, "b": 2})

	r.Set(Attributes{"b": 3, "c": 4})
	assert.Equal(t, seen, Attributes{"a": 1, "b": 3, "c": 4})

	r.Unset("a")
	assert.Equal(t, seen, Attributes{"b": 3, "c": 4})
}

func TestRecord_UnsetAndClear(t *testing.T) {
	r := NewRecord(nil, Attributes{"a": 1, "b": 2})
	events := watch(r, event.All)

	r.Unset("a")
	assert.Equal(t, r.Has("a"), false)
	assert.Equal(t, events.names(), []string{"change:a", "change"})
	assert.Equal(t, events.events[0].Arg(1), nil)

	events.events = nil
	r.Unset("missing")
	assert.Equal(t, len(events.events), 0)

	r.Clear()
	assert.Equal(t, len(r.Keys()), 0)
	assert.Equal(t, events.names(), []string{"change:b", "change"})
}

func TestRecord_UnsetIdentity(t *testing.T) {
	r := NewRecord(nil, Attributes{"id": "n1"})

	r.Unset("id")

	assert.Equal(t, r.Identity(), nil)
	assert.Equal(t, r.IsNew(), true)
}

func TestRecord_IdentityUpdatedBeforeEvents(t *testing.T) {
	k := &Kind{IDAttribute: "_key"}
	r := k.New(nil)

	var during any
	r.On("change:_key", func(event.Event) { during = r.Identity() })
	r.SetKey("_key", "k1")

	assert.Equal(t, during, "k1")
	assert.Equal(t, r.IDAttribute(), "_key")
}

func TestRecord_Has(t *testing.T) {
	r := NewRecord(nil, Attributes{"a": 0, "b": nil, "c": ""})

	assert.Equal(t, r.Has("a"), true)
	assert.Equal(t, r.Has("b"), false)
	assert.Equal(t, r.Has("c"), true)
	assert.Equal(t, r.Has("d"), false)
}

func TestRecord_Escape(t *testing.T) {
	r := NewRecord(nil, Attributes{"html": "<b>\"hi\" & 'bye'</b>", "n": 3})

	assert.Equal(t, r.Escape("html"), "&lt;b&gt;&#34;hi&#34; &amp; &#39;bye&#39;&lt;/b&gt;")
	assert.Equal(t, r.Escape("n"), "3")
	assert.Equal(t, r.Escape("missing"), "")

	r.SetKey("html", "a<b")
	assert.Equal(t, r.Escape("html"), "a&lt;b")

	r.SetKey("n", 4, Silent())
	assert.Equal(t, r.Escape("n"), "4")
}

func TestRecord_ChangedAttributes(t *testing.T) {
	r := NewRecord(nil, Attributes{"a": 1, "b": 2})

	var during Attributes
	r.On("change", func(event.Event) {
		during, _ = r.ChangedAttributes()
	})
	r.Set(Attributes{"a": 10, "b": 2})

	assert.Equal(t, during, Attributes{"a": 10})
	_, ok := r.ChangedAttributes()
	assert.Equal(t, ok, false)

	diff, ok := r.ChangedAttributesFrom(Attributes{"a": 10, "b": 3, "c": nil})
	assert.Equal(t, ok, true)
	assert.Equal(t, diff, Attributes{"b": 3})

	_, ok = r.ChangedAttributesFrom(Attributes{"a": 10})
	assert.Equal(t, ok, false)
}

func TestRecord_CloneAndToJSON(t *testing.T) {
	k := &Kind{Name: "note"}
	r := k.New(Attributes{"id": 1, "title": "a"})
	c := r.Clone()

	assert.Equal(t, c.Kind() == k, true)
	assert.Equal(t, c.ToJSON(), r.ToJSON())
	assert.NotEqual(t, c.EphemeralID(), r.EphemeralID())

	c.SetKey("title", "b")
	assert.Equal(t, r.Get("title"), "a")

	js := r.ToJSON()
	js["title"] = "mutated"
	assert.Equal(t, r.Get("title"), "a")
}

func TestRecord_String(t *testing.T) {
	k := &Kind{Name: "note"}

	assert.Equal(t, k.New(Attributes{"id": 3}).String(), "note(3)")
	r := NewRecord(nil, nil)
	assert.Equal(t, r.String(), "record("+r.EphemeralID()+")")
}

func TestNewRecord_EphemeralIDPrefix(t *testing.T) {
	r := NewRecord(nil, nil)

	assert.Equal(t, strings.HasPrefix(r.EphemeralID(), "c"), true)
	assert.Equal(t, len(r.EphemeralID()), 37)
}

func TestNewRecord_ParseFailure(t *testing.T) {
	fail := errors.New("bad envelope")
	k := &Kind{
		Defaults: Attributes{"done": false},
		Parse:    func(any) (Attributes, error) { return nil, fail },
	}
	var routed error

	r := k.New(Attributes{"raw": "envelope"}, WithParse(), OnError(func(_ any, err error, _ *Options) { routed = err }))

	assert.Equal(t, errors.Is(routed, ErrUnparseable), true)
	assert.Equal(t, errors.Is(r.ValidationError(), ErrUnparseable), true)
	assert.Equal(t, r.Has("raw"), false)
	assert.Equal(t, r.ToJSON(), Attributes{"done": false})
}
