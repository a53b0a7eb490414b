// Package scene defines the contracts of the host scene service the panel
// talks to: the player's selection and the shared item store.
package scene

import (
	"context"
	"errors"
)

// ErrConflict is returned by stores that detect a concurrent modification
// while committing a transaction.
var ErrConflict = errors.New("scene items changed concurrently")

// Item is a scene object as seen by the panel.
type Item struct {
	ID       string         `json:"id" yaml:"id"`
	Metadata map[string]any `json:"metadata" yaml:"metadata"`
}

// Mutator edits items in place inside a transaction.
type Mutator func(items []*Item)

// SelectionProvider reports the player's current selection. It does not push
// selection changes.
type SelectionProvider interface {
	Selection(ctx context.Context) ([]string, error)
}

// ItemReader takes snapshot reads of items.
type ItemReader interface {
	Items(ctx context.Context, ids []string) ([]Item, error)
}

// ItemWriter applies a mutating transaction to the live items with the given
// ids. It returns once the change is durable.
type ItemWriter interface {
	UpdateItems(ctx context.Context, ids []string, mutate Mutator) error
}

// ChangeNotifier pushes the full current item list on every change.
type ChangeNotifier interface {
	OnChange(fn func(items []Item)) (unsubscribe func())
}

// ItemStore is the full item surface of the host.
type ItemStore interface {
	ItemReader
	ItemWriter
	ChangeNotifier
}

// Host bundles everything the panel needs from the scene service.
type Host interface {
	SelectionProvider
	ItemStore
}

type host struct {
	SelectionProvider
	ItemReader
	ItemWriter
	ChangeNotifier
}

// Combine assembles a Host from separate adapters, e.g. an HTTP client for
// reads and writes and a message feed for change notifications.
func Combine(sel SelectionProvider, r ItemReader, w ItemWriter, n ChangeNotifier) Host {
	return host{SelectionProvider: sel, ItemReader: r, ItemWriter: w, ChangeNotifier: n}
}

// Filter keeps the items whose ids are in ids, preserving item order.
func Filter(items []Item, ids []string) []Item {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]Item, 0, len(ids))
	for _, it := range items {
		if want[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// Clone deep-copies an item so a mutator can work on it without touching the
// original.
func Clone(it Item) Item {
	return Item{ID: it.ID, Metadata: cloneMap(it.Metadata)}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
