package jsonfile

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"
)

// DefaultDebounce coalesces bursts of file events into one notification.
const DefaultDebounce = 100 * time.Millisecond

// Watch calls onChange whenever the document is modified by someone other
// than this store, until ctx is done. Bursts of file events within delay
// are coalesced; a non-positive delay uses DefaultDebounce. Watch blocks
// and returns ctx.Err() once ctx is done.
func (s *Store) Watch(ctx context.Context, delay time.Duration, onChange func()) error {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("jsonfile: watch: %w", err)
	}
	defer func() { _ = w.Close() }()

	// The directory is watched because atomic writes replace the file.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("jsonfile: watch %s: %w", filepath.Dir(s.path), err)
	}

	timer := time.NewTimer(delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(delay)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			glog.Warningf("[jsonfile]watch %s: %v", s.path, err)

		case <-timer.C:
			if s.changedExternally() {
				glog.V(2).Infof("[jsonfile]external change %s", s.path)
				onChange()
			}
		}
	}
}

// changedExternally reports whether the document differs from what this
// store last wrote or observed, and records the current content.
func (s *Store) changedExternally() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		glog.Warningf("[jsonfile]reload %s: %v", s.path, err)
		return false
	}
	if bytes.Equal(data, s.written) {
		return false
	}
	s.written = data
	return true
}
