package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/rxdata/internal/event"
	"github.com/dshills/rxdata/internal/model"
)

// Metrics tracks event and persistence activity.
type Metrics struct {
	mu     sync.RWMutex
	events map[string]uint64

	syncCount   atomic.Uint64
	syncErrors  atomic.Uint64
	syncTotalNs atomic.Int64
	syncMaxNs   atomic.Int64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{
		events:    make(map[string]uint64),
		startTime: time.Now(),
	}
}

// RecordEvent counts one delivery of the named event.
func (m *Metrics) RecordEvent(name string) {
	m.mu.Lock()
	m.events[name]++
	m.mu.Unlock()
}

// RecordSync records one syncer round trip.
func (m *Metrics) RecordSync(duration time.Duration, err error) {
	ns := duration.Nanoseconds()
	m.syncCount.Add(1)
	m.syncTotalNs.Add(ns)
	if err != nil {
		m.syncErrors.Add(1)
	}

	for {
		old := m.syncMaxNs.Load()
		if ns <= old {
			break
		}
		if m.syncMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Instrument wraps s so that every round trip is recorded.
func (m *Metrics) Instrument(s model.Syncer) model.Syncer {
	return model.SyncerFunc(func(ctx context.Context, op model.Operation, target model.Target, opts *model.Options) (any, error) {
		start := time.Now()
		resp, err := s.Sync(ctx, op, target, opts)
		m.RecordSync(time.Since(start), err)
		return resp, err
	})
}

// observe counts every event published on e.
func (m *Metrics) observe(e *event.Emitter) *event.Listener {
	return e.On(event.All, func(ev event.Event) {
		m.RecordEvent(ev.Name)
	})
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	events := make(map[string]uint64, len(m.events))
	var total uint64
	for name, n := range m.events {
		events[name] = n
		total += n
	}
	m.mu.RUnlock()

	count := m.syncCount.Load()
	var avg int64
	if count > 0 {
		avg = m.syncTotalNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		Uptime:     time.Since(m.startTime),
		Events:     events,
		EventCount: total,
		SyncCount:  count,
		SyncErrors: m.syncErrors.Load(),
		AvgSyncNs:  avg,
		MaxSyncNs:  m.syncMaxNs.Load(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	m.events = make(map[string]uint64)
	m.startTime = time.Now()
	m.mu.Unlock()

	m.syncCount.Store(0)
	m.syncErrors.Store(0)
	m.syncTotalNs.Store(0)
	m.syncMaxNs.Store(0)
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime     time.Duration
	Events     map[string]uint64
	EventCount uint64
	SyncCount  uint64
	SyncErrors uint64
	AvgSyncNs  int64
	MaxSyncNs  int64
}
