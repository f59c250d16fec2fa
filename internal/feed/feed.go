// Package feed is the live-data synchronization engine behind every dashboard
// page: a polled, overlap-safe snapshot of one remote collection plus the
// selection that survives snapshot replacement.
//
// Each Feed holds exactly one current snapshot, replaced wholesale on every
// successful fetch and never patched in place. The fetch guard admits at most
// one fetch at a time per feed; a load issued while one is in flight is
// dropped, not queued. Completed fetches carry a monotonically increasing
// token and a result older than the applied one is discarded, so the snapshot
// can never regress to stale data.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"carewatch.dev/carewatch/pkg/metrics"
)

// NotifyFunc reports a user-visible event. Kind is one of "ok", "err" or
// "info". The engine never reaches into a global notifier; the callback is
// injected.
type NotifyFunc func(kind, text string)

// FetchFunc loads the remote collection.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Config holds the configuration for a Feed.
type Config[T any] struct {
	Logger *slog.Logger

	// Name is the logical resource name, e.g. "alerts".
	Name string
	// Fetch loads the collection from the remote API.
	Fetch FetchFunc[T]
	// Key extracts the stable identity used for selection resolution.
	Key func(T) string

	// Notify receives transport-failure notifications. Optional.
	Notify NotifyFunc
	// Metrics instruments fetches. Optional.
	Metrics *metrics.FeedMetrics
	// OnApply is invoked after each snapshot replacement, outside the
	// snapshot lock. Optional; used for live push.
	OnApply func(name string, version uint64)
}

// Feed is the snapshot store for one resource.
type Feed[T any] struct {
	logger  *slog.Logger
	name    string
	fetch   FetchFunc[T]
	key     func(T) string
	notify  NotifyFunc
	metrics *metrics.FeedMetrics
	onApply func(string, uint64)

	inflight atomic.Bool
	loading  atomic.Bool
	live     atomic.Bool
	seq      atomic.Uint64

	mu          sync.RWMutex
	items       []T
	applied     uint64
	appliedAt   time.Time
	lastErr     error
	selectedKey string
	hasSelected bool
}

// New creates a Feed. Live defaults to on.
func New[T any](cfg Config[T]) (*Feed[T], error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Name == "" {
		return nil, errors.New("feed name cannot be empty")
	}
	if cfg.Fetch == nil {
		return nil, errors.New("fetch function cannot be nil")
	}
	if cfg.Key == nil {
		return nil, errors.New("key function cannot be nil")
	}
	f := &Feed[T]{
		logger:  cfg.Logger.With("feed", cfg.Name),
		name:    cfg.Name,
		fetch:   cfg.Fetch,
		key:     cfg.Key,
		notify:  cfg.Notify,
		metrics: cfg.Metrics,
		onApply: cfg.OnApply,
	}
	f.live.Store(true)
	return f, nil
}

// Name returns the logical resource name.
func (f *Feed[T]) Name() string { return f.name }

// Load fetches the collection and, on success, replaces the snapshot.
// A load issued while another is in flight is a no-op. Silent loads do not
// toggle the visible loading indicator. On failure the previous snapshot is
// retained and the error is reported through Notify and the return value;
// the loading indicator is always cleared.
func (f *Feed[T]) Load(ctx context.Context, silent bool) error {
	if !f.inflight.CompareAndSwap(false, true) {
		f.count(metrics.OutcomeDropped)
		return nil
	}
	token := f.seq.Add(1)
	if !silent {
		f.loading.Store(true)
	}
	defer func() {
		f.loading.Store(false)
		f.inflight.Store(false)
	}()

	start := time.Now()
	items, err := f.fetch(ctx)
	if f.metrics != nil {
		f.metrics.FetchDuration.WithLabelValues(f.name).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		f.count(metrics.OutcomeError)
		f.mu.Lock()
		f.lastErr = err
		f.mu.Unlock()
		f.logger.Warn("snapshot fetch failed", "error", err)
		if f.notify != nil {
			f.notify("err", fmt.Sprintf("%s refresh failed", f.name))
		}
		return err
	}

	if !f.apply(token, items) {
		f.count(metrics.OutcomeDiscarded)
		return nil
	}
	f.count(metrics.OutcomeSuccess)
	return nil
}

// apply replaces the snapshot if token is newer than the applied one and
// re-resolves the selection against the new collection.
func (f *Feed[T]) apply(token uint64, items []T) bool {
	f.mu.Lock()
	if token <= f.applied {
		f.mu.Unlock()
		f.logger.Debug("discarding stale snapshot", "token", token, "applied", f.applied)
		return false
	}
	f.applied = token
	f.appliedAt = time.Now()
	f.items = items
	f.lastErr = nil
	if f.hasSelected {
		if _, ok := f.lookup(f.selectedKey); !ok {
			// The selected entity disappeared (e.g. purged); clear it so no
			// detail view keeps showing an entity that no longer exists.
			f.selectedKey = ""
			f.hasSelected = false
		}
	}
	onApply := f.onApply
	f.mu.Unlock()

	if f.metrics != nil {
		f.metrics.SnapshotSize.WithLabelValues(f.name).Set(float64(len(items)))
		f.metrics.SnapshotAge.WithLabelValues(f.name).Set(0)
	}
	if onApply != nil {
		onApply(f.name, token)
	}
	return true
}

// lookup finds an item by key. Caller holds at least a read lock.
func (f *Feed[T]) lookup(key string) (T, bool) {
	for _, item := range f.items {
		if f.key(item) == key {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Items returns the current snapshot. The returned slice is replaced, never
// mutated, so callers may read it without copying but must not modify it.
func (f *Feed[T]) Items() []T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.items
}

// Version returns the token of the applied snapshot, zero before the first
// successful fetch.
func (f *Feed[T]) Version() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.applied
}

// FetchedAt returns when the current snapshot was applied.
func (f *Feed[T]) FetchedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.appliedAt
}

// Err returns the error of the most recent fetch, nil after a success.
func (f *Feed[T]) Err() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastErr
}

// Loading reports whether a non-silent load is in flight.
func (f *Feed[T]) Loading() bool { return f.loading.Load() }

// Live reports whether polling is active.
func (f *Feed[T]) Live() bool { return f.live.Load() }

// SetLive pauses or resumes polling without touching the timer: the polled
// effect becomes a no-op while live is off.
func (f *Feed[T]) SetLive(live bool) { f.live.Store(live) }

// Select marks the entity with the given key as the open detail. Selecting a
// key absent from the current snapshot is a no-op.
func (f *Feed[T]) Select(key string) (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.lookup(key)
	if !ok {
		var zero T
		return zero, false
	}
	f.selectedKey = key
	f.hasSelected = true
	return item, true
}

// Selected resolves the current selection against the current snapshot. It
// always reflects the freshest entity with that key, never a copy taken at
// click time.
func (f *Feed[T]) Selected() (T, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.hasSelected {
		var zero T
		return zero, false
	}
	return f.lookup(f.selectedKey)
}

// Deselect clears the selection.
func (f *Feed[T]) Deselect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectedKey = ""
	f.hasSelected = false
}

// Effect returns the polled effect: a silent load gated by the live flag.
// The poller itself knows nothing about the flag.
func (f *Feed[T]) Effect() func(context.Context) {
	return func(ctx context.Context) {
		if !f.live.Load() {
			return
		}
		_ = f.Load(ctx, true)
	}
}

func (f *Feed[T]) count(outcome string) {
	if f.metrics != nil {
		f.metrics.FetchesTotal.WithLabelValues(f.name, outcome).Inc()
	}
}
