package model

import (
	"testing"

	"github.com/dshills/rxdata/internal/event"
)

type subscriber interface {
	On(names string, fn func(event.Event)) *event.Listener
}

// capture records every event published under names.
type capture struct {
	events []event.Event
}

func watch(s subscriber, names string) *capture {
	c := &capture{}
	s.On(names, func(e event.Event) {
		c.events = append(c.events, e)
	})
	return c
}

func (c *capture) names() []string {
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Name
	}
	return out
}

func (c *capture) count(name string) int {
	n := 0
	for _, e := range c.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

// checkIndices verifies that every member is reachable through both indices.
func checkIndices(t *testing.T, c *Collection) {
	t.Helper()
	if len(c.byCid) != c.Len() {
		t.Fatalf("ephemeral index has %d entries, collection has %d members", len(c.byCid), c.Len())
	}
	for i := 0; i < c.Len(); i++ {
		r := c.At(i)
		if got := c.GetByEphemeralID(r.EphemeralID()); got != r {
			t.Fatalf("member %d not reachable by ephemeral id", i)
		}
		if r.Identity() != nil {
			if got := c.Get(r.Identity()); got != r {
				t.Fatalf("member %d not reachable by identity %v", i, r.Identity())
			}
		}
	}
	for key, r := range c.byID {
		if !c.Contains(r) {
			t.Fatalf("identity index entry %q points outside the collection", key)
		}
	}
}
