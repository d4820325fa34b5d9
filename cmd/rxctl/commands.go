package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/dshills/rxdata/internal/app"
	"github.com/dshills/rxdata/internal/event"
	"github.com/dshills/rxdata/internal/model"
)

// errNotFound is returned when a record does not exist.
var errNotFound = errors.New("record not found")

// command runs one rxctl subcommand against an open application.
type command struct {
	app    *app.App
	out    io.Writer
	pretty bool
}

func (c *command) dispatch(ctx context.Context, opts docopt.Opts) error {
	kind, _ := opts.String("<kind>")
	id, _ := opts.String("<id>")

	switch {
	case isSet(opts, "kinds"):
		return c.kinds(ctx)
	case isSet(opts, "list"):
		return c.list(ctx, kind)
	case isSet(opts, "get"):
		return c.get(ctx, kind, id)
	case isSet(opts, "set"):
		target, _ := opts.String("--id")
		assignments, _ := opts["<assignment>"].([]string)
		return c.set(ctx, kind, target, assignments)
	case isSet(opts, "remove"):
		return c.remove(ctx, kind, id)
	case isSet(opts, "watch"):
		kinds, _ := opts["<name>"].([]string)
		return c.watch(ctx, kinds)
	default:
		return fmt.Errorf("no command given")
	}
}

func isSet(opts docopt.Opts, name string) bool {
	v, _ := opts.Bool(name)
	return v
}

func (c *command) kinds(ctx context.Context) error {
	if err := c.app.Fetch(ctx); err != nil {
		return err
	}
	for _, name := range c.app.Names() {
		col, _ := c.app.Collection(name)
		u, _ := col.URL()
		fmt.Fprintf(c.out, "%s\t%s\t%d\n", name, u, col.Len())
	}
	return nil
}

func (c *command) list(ctx context.Context, kind string) error {
	col, err := c.fetch(ctx, kind)
	if err != nil {
		return err
	}
	for _, r := range col.Models() {
		if err := c.print(r); err != nil {
			return err
		}
	}
	return nil
}

func (c *command) get(ctx context.Context, kind, id string) error {
	col, err := c.fetch(ctx, kind)
	if err != nil {
		return err
	}
	r := col.Get(id)
	if r == nil {
		return fmt.Errorf("%s %s: %w", kind, id, errNotFound)
	}
	return c.print(r)
}

func (c *command) set(ctx context.Context, kind, id string, assignments []string) error {
	attrs, err := parseAssignments(assignments)
	if err != nil {
		return err
	}
	col, err := c.fetch(ctx, kind)
	if err != nil {
		return err
	}

	var r *model.Record
	err = c.app.Do(func() error {
		if id != "" {
			if r = col.Get(id); r != nil {
				return r.Save(ctx, attrs, model.Wait())
			}
			attrs[col.IDAttribute()] = id
		}
		created, err := col.Create(ctx, attrs, model.Wait())
		r = created
		return err
	})
	if err != nil {
		return err
	}
	return c.print(r)
}

func (c *command) remove(ctx context.Context, kind, id string) error {
	col, err := c.fetch(ctx, kind)
	if err != nil {
		return err
	}
	return c.app.Do(func() error {
		r := col.Get(id)
		if r == nil {
			return fmt.Errorf("%s %s: %w", kind, id, errNotFound)
		}
		return r.Destroy(ctx, model.Wait())
	})
}

// watch prints the events of the given kinds, or all kinds, as the store
// changes underneath them.
func (c *command) watch(ctx context.Context, kinds []string) error {
	if len(kinds) == 0 {
		kinds = c.app.Names()
	}
	for _, name := range kinds {
		col, err := c.app.Collection(name)
		if err != nil {
			return err
		}
		col.On(event.All, func(e event.Event) {
			fmt.Fprintf(c.out, "%s\t%s\t%v\n", name, e.Name, e.Arg(0))
		})
	}
	if err := c.app.Fetch(ctx); err != nil {
		return err
	}
	err := c.app.Watch(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *command) fetch(ctx context.Context, kind string) (*model.Collection, error) {
	if err := c.app.FetchKind(ctx, kind); err != nil {
		return nil, err
	}
	return c.app.Collection(kind)
}

func (c *command) print(r *model.Record) error {
	data, err := json.Marshal(r.ToJSON())
	if err != nil {
		return fmt.Errorf("encoding %s: %w", r, err)
	}
	if c.pretty {
		data = pretty.Pretty(data)
	} else {
		data = append(data, '\n')
	}
	_, err = c.out.Write(data)
	return err
}

// parseAssignments turns key=value pairs into attributes. JSON values keep
// their type; other values are strings.
func parseAssignments(assignments []string) (model.Attributes, error) {
	attrs := model.Attributes{}
	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, want key=value", a)
		}
		if gjson.Valid(value) {
			attrs[key] = gjson.Parse(value).Value()
		} else {
			attrs[key] = value
		}
	}
	return attrs, nil
}
