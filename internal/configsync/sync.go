// Package configsync writes weather config edits back to the host, one
// transaction per edit over every currently selected item.
package configsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-fx-panel/internal/domain"
	"github.com/couchcryptid/weather-fx-panel/internal/observability"
	"github.com/couchcryptid/weather-fx-panel/internal/scene"
)

// ErrEmptySelection is returned when there is nothing selected to write to.
var ErrEmptySelection = errors.New("no items selected")

// Writer applies edits to the selection.
type Writer interface {
	Apply(ctx context.Context, p Patch) error
	Remove(ctx context.Context) error
}

// Publisher receives a ConfigChange after every committed transaction.
type Publisher interface {
	Publish(ctx context.Context, change domain.ConfigChange) error
}

// Syncer implements Writer against the host scene service. The selection is
// re-read on every write, so items selected after the panel loaded still
// receive the edit.
type Syncer struct {
	selection scene.SelectionProvider
	store     scene.ItemWriter
	key       string
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Syncer. Pass a nil publisher to disable change events.
func New(selection scene.SelectionProvider, store scene.ItemWriter, key string, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Syncer {
	return &Syncer{
		selection: selection,
		store:     store,
		key:       key,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Apply runs p against the record of every selected item in one transaction.
func (s *Syncer) Apply(ctx context.Context, p Patch) error {
	start := time.Now()

	ids, err := s.liveSelection(ctx)
	if err != nil {
		s.observe(p.Field, err, start)
		return err
	}

	var patched, skipped int
	err = s.store.UpdateItems(ctx, ids, func(items []*scene.Item) {
		// Stores may replay the mutator on conflict; count the final run only.
		patched, skipped = 0, 0
		for _, it := range items {
			if PatchItem(it, s.key, p) {
				patched++
			} else {
				skipped++
			}
		}
	})
	if err != nil {
		s.observe(p.Field, err, start)
		return fmt.Errorf("update %s: %w", p.Field, err)
	}
	s.observe(p.Field, nil, start)
	s.metrics.ItemsPatched.Add(float64(patched))
	s.metrics.ItemsSkipped.Add(float64(skipped))

	if skipped > 0 {
		s.logger.Debug("items left untouched", "field", p.Field, "skipped", skipped)
	}

	change := domain.NewConfigChange(p.Op, s.key, p.Field, p.Value, ids)
	change.Patched, change.Skipped = patched, skipped
	s.publish(ctx, change)
	return nil
}

// Remove strips the weather record from every selected item, whatever the key holds.
func (s *Syncer) Remove(ctx context.Context) error {
	start := time.Now()
	const field = "record"

	ids, err := s.liveSelection(ctx)
	if err != nil {
		s.observe(field, err, start)
		return err
	}

	err = s.store.UpdateItems(ctx, ids, func(items []*scene.Item) {
		for _, it := range items {
			delete(it.Metadata, s.key)
		}
	})
	if err != nil {
		s.observe(field, err, start)
		return fmt.Errorf("remove weather: %w", err)
	}
	s.observe(field, nil, start)

	s.publish(ctx, domain.NewConfigChange(domain.OpRemove, s.key, "", nil, ids))
	return nil
}

func (s *Syncer) liveSelection(ctx context.Context) ([]string, error) {
	ids, err := s.selection.Selection(ctx)
	if err != nil {
		return nil, fmt.Errorf("get selection: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	return ids, nil
}

func (s *Syncer) observe(field string, err error, start time.Time) {
	outcome := "success"
	switch {
	case errors.Is(err, ErrEmptySelection):
		outcome = "empty"
	case err != nil:
		outcome = "error"
	}
	s.metrics.Writes.WithLabelValues(field, outcome).Inc()
	s.metrics.WriteDuration.WithLabelValues(field).Observe(time.Since(start).Seconds())
}

// publish is best-effort: the transaction already committed.
func (s *Syncer) publish(ctx context.Context, change domain.ConfigChange) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, change); err != nil {
		s.metrics.EventsPublished.WithLabelValues("error").Inc()
		s.logger.Warn("publish config change failed", "error", err, "op", change.Op, "field", change.Field)
		return
	}
	s.metrics.EventsPublished.WithLabelValues("success").Inc()
}
