package model

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/dshills/rxdata/internal/event"
)

type syncCall struct {
	op      Operation
	url     string
	payload any
}

// fakeSyncer records requests and answers each one with the next response.
type fakeSyncer struct {
	calls     []syncCall
	responses []any
	err       error
	during    func(Target)
}

func (f *fakeSyncer) Sync(_ context.Context, op Operation, target Target, _ *Options) (any, error) {
	u, _ := target.URL()
	f.calls = append(f.calls, syncCall{op: op, url: u, payload: target.Payload()})
	if f.during != nil {
		f.during(target)
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, OpCreate.String(), "create")
	assert.Equal(t, OpRead.String(), "read")
	assert.Equal(t, OpUpdate.String(), "update")
	assert.Equal(t, OpDelete.String(), "delete")
	assert.Equal(t, Operation(9).String(), "unknown")
}

func TestRecord_URL(t *testing.T) {
	tests := []struct {
		name    string
		kind    *Kind
		attrs   Attributes
		colURL  string
		want    string
		wantErr error
	}{
		{name: "root new", kind: &Kind{URLRoot: "/notes"}, want: "/notes"},
		{name: "root with id", kind: &Kind{URLRoot: "/notes"}, attrs: Attributes{"id": 4}, want: "/notes/4"},
		{name: "root trailing slash", kind: &Kind{URLRoot: "/notes/"}, attrs: Attributes{"id": "a"}, want: "/notes/a"},
		{name: "escaped id", kind: &Kind{URLRoot: "/notes"}, attrs: Attributes{"id": "a b/c"}, want: "/notes/a%20b%2Fc"},
		{name: "collection", kind: &Kind{}, attrs: Attributes{"id": 1}, colURL: "/todos", want: "/todos/1"},
		{name: "none", kind: &Kind{}, attrs: Attributes{"id": 1}, wantErr: ErrNoURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.kind.New(tt.attrs)
			if tt.colURL != "" {
				NewCollection(tt.kind, WithURL(tt.colURL)).Add([]Member{r})
			}
			got, err := r.URL()
			if tt.wantErr != nil {
				assert.Equal(t, errors.Is(err, tt.wantErr), true)
				return
			}
			assert.Equal(t, err, nil)
			assert.Equal(t, got, tt.want)
		})
	}
}

func TestRecord_SaveCreatesThenUpdates(t *testing.T) {
	fs := &fakeSyncer{responses: []any{
		[]byte(`{"id":"n1","created":true}`),
		map[string]any{"rev": 2},
	}}
	k := &Kind{Name: "note", URLRoot: "/notes", Sync: fs}
	r := k.New(Attributes{"title": "a"})
	events := watch(r, event.All)

	assert.Equal(t, r.Save(context.Background(), nil), nil)
	assert.Equal(t, fs.calls[0].op, OpCreate)
	assert.Equal(t, fs.calls[0].url, "/notes")
	assert.Equal(t, fs.calls[0].payload, Attributes{"title": "a"})
	assert.Equal(t, r.Identity(), "n1")
	assert.Equal(t, r.Get("created"), true)
	assert.Equal(t, events.count(event.Sync), 1)

	assert.Equal(t, r.Save(context.Background(), Attributes{"title": "b"}), nil)
	assert.Equal(t, fs.calls[1].op, OpUpdate)
	assert.Equal(t, fs.calls[1].url, "/notes/n1")
	assert.Equal(t, fs.calls[1].payload, Attributes{"id": "n1", "title": "b", "created": true})
	assert.Equal(t, r.Get("rev"), 2)
}

func TestRecord_SaveWait(t *testing.T) {
	fs := &fakeSyncer{responses: []any{map[string]any{"id": 7}}}
	k := &Kind{URLRoot: "/notes", Sync: fs}
	r := k.New(Attributes{"title": "old"})
	events := watch(r, event.All)
	fs.during = func(Target) {
		assert.Equal(t, len(events.events), 0)
	}

	err := r.Save(context.Background(), Attributes{"title": "new", "tag": "x"}, Wait())

	assert.Equal(t, err, nil)
	assert.Equal(t, fs.calls[0].payload, Attributes{"title": "new", "tag": "x"})
	assert.Equal(t, r.ToJSON(), Attributes{"id": 7, "title": "new", "tag": "x"})
	assert.Equal(t, events.names(), []string{"change:id", "change:tag", "change:title", "change", "sync"})
}

func TestRecord_SaveWaitFailureRestores(t *testing.T) {
	fs := &fakeSyncer{err: errors.New("unavailable")}
	k := &Kind{URLRoot: "/notes", Sync: fs}
	r := k.New(Attributes{"id": 1, "title": "old"})
	events := watch(r, event.Error)

	err := r.Save(context.Background(), Attributes{"title": "new", "tag": "x"}, Wait())

	assert.Equal(t, err == fs.err, true)
	assert.Equal(t, r.ToJSON(), Attributes{"id": 1, "title": "old"})
	assert.Equal(t, events.count(event.Error), 1)
}

func TestRecord_SaveWaitValidatesFirst(t *testing.T) {
	fs := &fakeSyncer{}
	k := &Kind{
		URLRoot: "/notes",
		Sync:    fs,
		Validate: func(attrs Attributes, _ *Options) error {
			if attrs["title"] == "" {
				return errors.New("empty title")
			}
			return nil
		},
	}
	r := k.New(Attributes{"title": "a"})

	err := r.Save(context.Background(), Attributes{"title": ""}, Wait(), OnError(func(any, error, *Options) {}))

	assert.Equal(t, errors.Is(err, ErrInvalid), true)
	assert.Equal(t, len(fs.calls), 0)
	assert.Equal(t, r.Get("title"), "a")
}

func TestRecord_SaveValidatesCurrentAttributes(t *testing.T) {
	fs := &fakeSyncer{}
	k := &Kind{
		URLRoot: "/notes",
		Sync:    fs,
		Validate: func(attrs Attributes, _ *Options) error {
			if attrs["title"] == "" {
				return errors.New("empty title")
			}
			return nil
		},
	}
	r := k.New(Attributes{"title": "a"})
	errs := watch(r, event.Error)

	assert.Equal(t, r.Set(Attributes{"title": ""}, Silent()), true)
	err := r.Save(context.Background(), nil)

	assert.Equal(t, errors.Is(err, ErrInvalid), true)
	assert.Equal(t, len(fs.calls), 0)
	assert.Equal(t, len(errs.events), 1)
	assert.Equal(t, r.IsValid(), false)
}

func TestRecord_SaveWithoutSyncer(t *testing.T) {
	r := NewRecord(nil, nil)
	var got error

	err := r.Save(context.Background(), nil, OnError(func(_ any, err error, _ *Options) { got = err }))

	assert.Equal(t, errors.Is(err, ErrNoSyncer), true)
	assert.Equal(t, errors.Is(got, ErrNoSyncer), true)
}

func TestRecord_SaveSuccessCallback(t *testing.T) {
	fs := &fakeSyncer{responses: []any{`{"id":3}`}}
	r := (&Kind{Sync: fs}).New(nil)
	events := watch(r, event.Sync)

	var resp any
	err := r.Save(context.Background(), nil, OnSuccess(func(_ any, body any) { resp = body }))

	assert.Equal(t, err, nil)
	assert.Equal(t, resp, `{"id":3}`)
	assert.Equal(t, r.Identity(), float64(3))
	assert.Equal(t, len(events.events), 0)
}

func TestRecord_Fetch(t *testing.T) {
	fs := &fakeSyncer{responses: []any{[]byte(`{"data":{"id":1,"title":"remote"}}`)}}
	k := &Kind{URLRoot: "/notes", RootPath: "data", Sync: fs}
	r := k.New(Attributes{"id": 1})

	assert.Equal(t, r.Fetch(context.Background()), nil)
	assert.Equal(t, fs.calls[0].op, OpRead)
	assert.Equal(t, r.Get("title"), "remote")
}

func TestRecord_FetchUnparseable(t *testing.T) {
	fs := &fakeSyncer{responses: []any{[]byte(`{"id":`)}}
	r := (&Kind{Sync: fs}).New(nil)
	events := watch(r, event.Error)

	err := r.Fetch(context.Background())

	assert.Equal(t, errors.Is(err, ErrUnparseable), true)
	assert.Equal(t, events.count(event.Error), 1)
}

func TestRecord_DestroyNew(t *testing.T) {
	fs := &fakeSyncer{}
	c := NewCollection(&Kind{Sync: fs})
	r, _ := c.Push(Attributes{"title": "draft"})

	assert.Equal(t, r.Destroy(context.Background()), nil)
	assert.Equal(t, len(fs.calls), 0)
	assert.Equal(t, c.Len(), 0)
}

func TestRecord_Destroy(t *testing.T) {
	fs := &fakeSyncer{}
	c := NewCollection(nil, WithURL("/notes"), WithSyncer(fs))
	r, _ := c.Push(Attributes{"id": 5})
	events := watch(r, event.All)

	assert.Equal(t, r.Destroy(context.Background()), nil)
	assert.Equal(t, fs.calls[0].op, OpDelete)
	assert.Equal(t, fs.calls[0].url, "/notes/5")
	assert.Equal(t, c.Len(), 0)
	assert.Equal(t, events.names(), []string{"remove", "destroy", "sync"})
}

func TestRecord_DestroyWaitFailure(t *testing.T) {
	fs := &fakeSyncer{err: errors.New("conflict")}
	c := NewCollection(nil, WithURL("/notes"), WithSyncer(fs))
	r, _ := c.Push(Attributes{"id": 5})

	err := r.Destroy(context.Background(), Wait())

	assert.Equal(t, err == fs.err, true)
	assert.Equal(t, c.Contains(r), true)

	err = r.Destroy(context.Background())
	assert.Equal(t, err == fs.err, true)
	assert.Equal(t, c.Contains(r), false)
}

func TestCollection_Fetch(t *testing.T) {
	fs := &fakeSyncer{responses: []any{
		[]byte(`{"items":[{"id":1,"t":"a"},{"id":2,"t":"b"}]}`),
		[]byte(`{"items":[{"id":3,"t":"c"}]}`),
		[]byte(`{"items":[{"id":4}]}`),
	}}
	k := &Kind{RootPath: "items"}
	c := NewCollection(k, WithURL("/notes"), WithSyncer(fs))
	c.Push(Attributes{"id": 0})
	events := watch(c, event.All)

	assert.Equal(t, c.Fetch(context.Background()), nil)
	assert.Equal(t, fs.calls[0].op, OpRead)
	assert.Equal(t, fs.calls[0].url, "/notes")
	assert.Equal(t, c.Pluck("t"), []any{"a", "b"})
	assert.Equal(t, events.names(), []string{"reset"})

	assert.Equal(t, c.Fetch(context.Background(), Append()), nil)
	assert.Equal(t, c.Pluck("id"), []any{float64(1), float64(2), float64(3)})
	assert.Equal(t, events.names(), []string{"reset", "add"})

	var resp any
	c.Fetch(context.Background(), Silent(), OnSuccess(func(_ any, body any) { resp = body }))
	assert.Equal(t, c.Pluck("id"), []any{float64(4)})
	assert.Equal(t, resp != nil, true)
	assert.Equal(t, len(events.events), 2)
}

func TestCollection_FetchListParser(t *testing.T) {
	fs := &fakeSyncer{responses: []any{"ignored"}}
	c := NewCollection(nil, WithSyncer(fs), WithListParser(func(any) ([]Attributes, error) {
		return []Attributes{{"id": "p"}}, nil
	}))

	assert.Equal(t, c.Fetch(context.Background()), nil)
	assert.Equal(t, c.Pluck("id"), []any{"p"})
}

func TestCollection_FetchFailure(t *testing.T) {
	c := NewCollection(nil)
	events := watch(c, event.Error)

	err := c.Fetch(context.Background())

	assert.Equal(t, errors.Is(err, ErrNoSyncer), true)
	assert.Equal(t, events.count(event.Error), 1)
}

func TestCollection_Create(t *testing.T) {
	fs := &fakeSyncer{responses: []any{map[string]any{"id": "srv"}}}
	c := NewCollection(nil, WithURL("/notes"), WithSyncer(fs))
	events := watch(c, event.All)

	r, err := c.Create(context.Background(), Attributes{"title": "a"})

	assert.Equal(t, err, nil)
	assert.Equal(t, fs.calls[0].op, OpCreate)
	assert.Equal(t, c.Get("srv") == r, true)
	assert.Equal(t, events.names(), []string{"add", "change:id", "change", "sync"})
	checkIndices(t, c)
}

func TestCollection_CreateWait(t *testing.T) {
	fs := &fakeSyncer{responses: []any{map[string]any{"id": "srv"}}}
	c := NewCollection(nil, WithURL("/notes"), WithSyncer(fs))
	fs.during = func(Target) {
		assert.Equal(t, c.Len(), 0)
	}

	var succeeded any
	r, err := c.Create(context.Background(), Attributes{"title": "a"}, Wait(),
		OnSuccess(func(target any, _ any) { succeeded = target }))

	assert.Equal(t, err, nil)
	assert.Equal(t, succeeded == any(r), true)
	assert.Equal(t, c.Contains(r), true)
	assert.Equal(t, r.Identity(), "srv")
}

func TestCollection_CreateWaitFailure(t *testing.T) {
	fs := &fakeSyncer{err: errors.New("rejected")}
	c := NewCollection(nil, WithURL("/notes"), WithSyncer(fs))

	r, err := c.Create(context.Background(), Attributes{"title": "a"}, Wait(), OnError(func(any, error, *Options) {}))

	assert.Equal(t, err == fs.err, true)
	assert.Equal(t, r != nil, true)
	assert.Equal(t, c.Len(), 0)
}

func TestCollection_CreateInvalid(t *testing.T) {
	k := &Kind{Validate: func(Attributes, *Options) error { return errors.New("no") }}
	c := NewCollection(k, WithSyncer(&fakeSyncer{}))

	r, err := c.Create(context.Background(), Attributes{})

	assert.Equal(t, r == nil, true)
	assert.Equal(t, errors.Is(err, ErrInvalidMember), true)
}
