package model

import (
	"context"

	"github.com/dshills/rxdata/internal/event"
)

// URL returns the collection's resource location.
func (c *Collection) URL() (string, error) {
	if c.url == "" {
		return "", ErrNoURL
	}
	return c.url, nil
}

func (c *Collection) syncer() Syncer {
	if c.backend != nil {
		return c.backend
	}
	return c.kind.Sync
}

func (c *Collection) parseResponse(resp any) ([]Attributes, error) {
	if c.parse != nil {
		return c.parse(resp)
	}
	return DecodeList(resp, c.kind.RootPath)
}

// routeError hands err to the operation's error callback, or publishes it.
func (c *Collection) routeError(err error, o *Options) {
	if o.Error != nil {
		o.Error(c, err, o)
		return
	}
	c.Publish(event.Error, c, err, o)
}

// Fetch reads the collection from its syncer and resets the membership to
// the response, or adds to it with the Append option. Members are parsed
// with the Kind's parser.
func (c *Collection) Fetch(ctx context.Context, opts ...Option) error {
	o := newOptions(opts)
	o.Parse = true

	s := c.syncer()
	if s == nil {
		c.routeError(ErrNoSyncer, o)
		return ErrNoSyncer
	}
	resp, err := s.Sync(ctx, OpRead, c, o)
	if err != nil {
		c.routeError(err, o)
		return err
	}
	items, err := c.parseResponse(resp)
	if err != nil {
		c.routeError(err, o)
		return err
	}

	members := make([]Member, len(items))
	for i, attrs := range items {
		members[i] = attrs
	}
	if o.Append {
		err = c.add(members, o)
	} else {
		err = c.reset(members, o)
	}
	if o.Success != nil {
		o.Success(c, resp)
	}
	return err
}

// Create turns m into a record of the collection, adds it and saves it.
// With Wait the record is added only after the syncer has responded.
func (c *Collection) Create(ctx context.Context, m Member, opts ...Option) (*Record, error) {
	o := newOptions(opts)
	r, err := c.prepare(m, o)
	if err != nil {
		return nil, (*InvalidMemberError)(nil).append(0, err)
	}
	if !o.Wait {
		if err := c.add([]Member{r}, o); err != nil {
			return r, err
		}
	}

	var addErr error
	success := o.Success
	so := o.clone()
	so.Success = func(_ any, resp any) {
		if o.Wait {
			addErr = c.add([]Member{r}, o)
		}
		if success != nil {
			success(r, resp)
		} else {
			r.Publish(event.Sync, r, resp, o)
		}
	}
	if err := r.save(ctx, nil, so); err != nil {
		return r, err
	}
	return r, addErr
}
