// Package jsonfile provides a store backed by a single JSON document.
//
// The document maps resources to objects of records keyed by id:
//
//	{"notes": {"01HF...": {"id": "01HF...", "title": "groceries"}}}
//
// Every operation reads the file, and every mutation rewrites it atomically
// through a temporary file in the same directory. External edits can be
// observed with Watch.
package jsonfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/golang/glog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/rxdata/internal/model"
	"github.com/dshills/rxdata/internal/store"
)

var _ store.Backend = (*Store)(nil)
var _ model.Syncer = (*Store)(nil)

// ErrCorrupt is returned when the document is not a JSON object.
var ErrCorrupt = errors.New("jsonfile: document is not a JSON object")

// Store is a JSON document store.
type Store struct {
	mu   sync.Mutex
	path string

	// written is the last content this store wrote or observed, used to
	// tell external edits from its own.
	written []byte
}

// Open returns a store for the document at path. The document is created on
// the first write.
func Open(path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("jsonfile: resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return nil, fmt.Errorf("jsonfile: create dirs: %w", err)
	}
	s := &Store{path: abs}
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	s.written = data
	return s, nil
}

// Path returns the absolute document path.
func (s *Store) Path() string { return s.path }

// Sync implements model.Syncer.
func (s *Store) Sync(ctx context.Context, op model.Operation, target model.Target, _ *model.Options) (any, error) {
	return store.Dispatch(ctx, "jsonfile", s, op, target)
}

// List returns the records of resource ordered by id.
func (s *Store) List(ctx context.Context, resource string) ([]model.Attributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	data, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	items := gjson.GetBytes(data, escape(resource))
	if !items.IsObject() {
		return []model.Attributes{}, nil
	}
	var ids []string
	byID := map[string]model.Attributes{}
	items.ForEach(func(key, value gjson.Result) bool {
		if attrs, ok := value.Value().(map[string]any); ok {
			ids = append(ids, key.String())
			byID[key.String()] = attrs
		}
		return true
	})
	slices.Sort(ids)
	out := make([]model.Attributes, len(ids))
	for i, id := range ids {
		out[i] = byID[id]
	}
	return out, nil
}

// Get returns one record.
func (s *Store) Get(ctx context.Context, resource, id string) (model.Attributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	data, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	item := gjson.GetBytes(data, itemPath(resource, id))
	attrs, ok := item.Value().(map[string]any)
	if !ok {
		return nil, store.ErrNotFound
	}
	return attrs, nil
}

// Put creates or replaces a record.
func (s *Store) Put(ctx context.Context, resource, id string, attrs model.Attributes) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}
	if attrs == nil {
		attrs = model.Attributes{}
	}
	// Numeric ids are only written as object keys into an existing object.
	if !gjson.GetBytes(data, escape(resource)).IsObject() {
		if data, err = sjson.SetRawBytes(data, escape(resource), []byte("{}")); err != nil {
			return fmt.Errorf("jsonfile: set %s: %w", resource, err)
		}
	}
	out, err := sjson.SetBytes(data, itemPath(resource, id), map[string]any(attrs))
	if err != nil {
		return fmt.Errorf("jsonfile: set %s/%s: %w", resource, id, err)
	}
	return s.write(out)
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, resource, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}
	if !gjson.GetBytes(data, itemPath(resource, id)).Exists() {
		return store.ErrNotFound
	}
	out, err := sjson.DeleteBytes(data, itemPath(resource, id))
	if err != nil {
		return fmt.Errorf("jsonfile: delete %s/%s: %w", resource, id, err)
	}
	return s.write(out)
}

// Export returns the whole document as a snapshot.
func (s *Store) Export() (store.Snapshot, error) {
	s.mu.Lock()
	data, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	snap := store.Snapshot{}
	gjson.ParseBytes(data).ForEach(func(resource, items gjson.Result) bool {
		records := map[string]model.Attributes{}
		items.ForEach(func(id, value gjson.Result) bool {
			if attrs, ok := value.Value().(map[string]any); ok {
				records[id.String()] = attrs
			}
			return true
		})
		snap[resource.String()] = records
		return true
	})
	return snap, nil
}

// read returns the document, or an empty object when the file is missing.
// The caller holds s.mu.
func (s *Store) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []byte("{}"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("jsonfile: read: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []byte("{}"), nil
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, ErrCorrupt
	}
	return data, nil
}

// write replaces the document atomically. The caller holds s.mu.
func (s *Store) write(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("jsonfile: create temp: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("jsonfile: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("jsonfile: close temp: %w", err)
	}
	if err := os.Rename(name, s.path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("jsonfile: replace: %w", err)
	}
	s.written = data
	glog.V(3).Infof("[jsonfile]wrote %s (%d bytes)", s.path, len(data))
	return nil
}

// escape quotes the characters that gjson and sjson path syntax give
// meaning to.
func escape(component string) string {
	var b strings.Builder
	for _, r := range component {
		switch r {
		case '\\', '.', '*', '?', '|', '#', '@', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func itemPath(resource, id string) string {
	return escape(resource) + "." + escape(id)
}
