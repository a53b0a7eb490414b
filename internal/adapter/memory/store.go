// Package memory is an in-process host scene service: a selection, an ordered
// item list with all-or-nothing transactions, and change notifications.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/couchcryptid/weather-fx-panel/internal/scene"
)

// ErrIDChanged is returned when a mutator rewrites an item id.
var ErrIDChanged = errors.New("mutator changed an item id")

// Store implements scene.Host.
//
// Every committed change gets a version. Notifications are delivered one at a
// time in version order, and a snapshot older than one already delivered is
// dropped, so subscribers never step back to an earlier state. Subscribers
// must not write to the store from the callback.
type Store struct {
	logger *slog.Logger

	mu        sync.Mutex
	items     []scene.Item
	index     map[string]int
	selection []string
	version   uint64

	subsMu  sync.Mutex
	subs    map[int]func([]scene.Item)
	nextSub int

	deliverMu sync.Mutex
	delivered uint64
}

// New returns an empty store.
func New(logger *slog.Logger) *Store {
	return &Store{
		logger: logger,
		index:  make(map[string]int),
		subs:   make(map[int]func([]scene.Item)),
	}
}

// Put adds items, replacing any with the same id, and notifies subscribers.
func (s *Store) Put(items ...scene.Item) {
	s.mu.Lock()
	for _, it := range items {
		it = scene.Clone(it)
		if i, ok := s.index[it.ID]; ok {
			s.items[i] = it
			continue
		}
		s.index[it.ID] = len(s.items)
		s.items = append(s.items, it)
	}
	version, snap := s.commitLocked()
	s.mu.Unlock()
	s.notify(version, snap)
}

// Delete removes items and notifies subscribers. Unknown ids are ignored.
func (s *Store) Delete(ids ...string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	kept := s.items[:0]
	for _, it := range s.items {
		if !drop[it.ID] {
			kept = append(kept, it)
		}
	}
	s.items = kept
	s.reindexLocked()
	version, snap := s.commitLocked()
	s.mu.Unlock()
	s.notify(version, snap)
}

// SetSelection replaces the player's selection. Selection changes are not pushed.
func (s *Store) SetSelection(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = append([]string(nil), ids...)
}

// Selection returns the current selection.
func (s *Store) Selection(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selection...), nil
}

// Items returns copies of the items with the given ids in request order.
// Unknown ids are skipped.
func (s *Store) Items(ctx context.Context, ids []string) ([]scene.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]scene.Item, 0, len(ids))
	for _, id := range ids {
		if i, ok := s.index[id]; ok {
			out = append(out, scene.Clone(s.items[i]))
		}
	}
	return out, nil
}

// All returns copies of every item in store order.
func (s *Store) All() []scene.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// UpdateItems runs mutate over copies of the live items with the given ids and
// commits them together. Unknown ids are skipped.
func (s *Store) UpdateItems(ctx context.Context, ids []string, mutate scene.Mutator) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	work := make([]*scene.Item, 0, len(ids))
	pos := make([]int, 0, len(ids))
	for _, id := range ids {
		i, ok := s.index[id]
		if !ok {
			continue
		}
		cp := scene.Clone(s.items[i])
		work = append(work, &cp)
		pos = append(pos, i)
	}

	mutate(work)

	for n, it := range work {
		if it.ID != s.items[pos[n]].ID {
			s.mu.Unlock()
			return ErrIDChanged
		}
	}
	for n, it := range work {
		s.items[pos[n]] = *it
	}
	version, snap := s.commitLocked()
	s.mu.Unlock()

	s.logger.Debug("transaction committed", "items", len(work))
	s.notify(version, snap)
	return nil
}

// OnChange registers fn to receive the full item list after every change.
func (s *Store) OnChange(fn func([]scene.Item)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			delete(s.subs, id)
		})
	}
}

// CheckReadiness implements the readiness check; the store is always ready.
func (s *Store) CheckReadiness(context.Context) error {
	return nil
}

func (s *Store) notify(version uint64, items []scene.Item) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if version <= s.delivered {
		s.logger.Debug("dropping superseded change notification", "version", version, "delivered", s.delivered)
		return
	}
	s.delivered = version

	s.subsMu.Lock()
	fns := make([]func([]scene.Item), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(cloneAll(items))
	}
}

// commitLocked stamps a change with the next version and snapshots the items.
// Callers hold s.mu.
func (s *Store) commitLocked() (uint64, []scene.Item) {
	s.version++
	return s.version, s.snapshotLocked()
}

func (s *Store) snapshotLocked() []scene.Item {
	return cloneAll(s.items)
}

func (s *Store) reindexLocked() {
	s.index = make(map[string]int, len(s.items))
	for i, it := range s.items {
		s.index[it.ID] = i
	}
}

func cloneAll(items []scene.Item) []scene.Item {
	out := make([]scene.Item, len(items))
	for i, it := range items {
		out[i] = scene.Clone(it)
	}
	return out
}
