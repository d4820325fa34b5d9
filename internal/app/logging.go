package app

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/dshills/rxdata/internal/event"
	"github.com/dshills/rxdata/internal/model"
)

// logEvents logs the events of the named collection. Errors are always
// logged, other events at verbosity 1 and per-attribute changes at 2.
func logEvents(name string, c *model.Collection) *event.Listener {
	return c.On(event.All, func(e event.Event) {
		if e.Name == event.Error {
			glog.Warningf("[%s]%s %s: %v", name, e.Name, describe(e.Arg(0)), e.Arg(1))
			return
		}
		level := glog.Level(1)
		if _, ok := event.ChangedKey(e.Name); ok {
			level = 2
		}
		if glog.V(level) {
			glog.Infof("[%s]%s %s", name, e.Name, describe(e.Arg(0)))
		}
	})
}

func describe(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case *model.Collection:
		return fmt.Sprintf("collection(%d)", v.Len())
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
