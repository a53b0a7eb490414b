package configsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/weather-fx-panel/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ErrClosed is returned by a Coalescer after Close.
var ErrClosed = errors.New("coalescer closed")

const flushTimeout = 10 * time.Second

// Coalescer delays writes to the configured fields and keeps only the latest
// patch per field within the window. Other fields pass straight through.
// Fields are independent, so applying only the last patch per field leaves the
// same end state as applying every patch in order.
//
// Apply still waits for the write that carries its patch and returns that
// write's result, so every caller merged into one transaction sees its
// failure. Delayed writes and Remove are serialized: a write that has not
// reached the target when Remove starts is dropped, and one already running
// completes before the record is removed.
type Coalescer struct {
	target  Writer
	clock   clockwork.Clock
	window  time.Duration
	fields  map[string]bool
	logger  *slog.Logger
	metrics *observability.Metrics

	// writeMu orders delayed writes against Remove.
	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[string]*pendingWrite
	timers   map[string]clockwork.Timer
	removals uint64
	closed   bool
}

// pendingWrite is the latest patch for a field and everyone waiting on it.
type pendingWrite struct {
	patch Patch
	done  chan struct{}
	err   error
}

func (w *pendingWrite) finish(err error) {
	w.err = err
	close(w.done)
}

// NewCoalescer wraps target. A non-positive window disables coalescing.
func NewCoalescer(target Writer, clock clockwork.Clock, window time.Duration, logger *slog.Logger, metrics *observability.Metrics, fields ...string) *Coalescer {
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return &Coalescer{
		target:  target,
		clock:   clock,
		window:  window,
		fields:  set,
		logger:  logger,
		metrics: metrics,
		pending: make(map[string]*pendingWrite),
		timers:  make(map[string]clockwork.Timer),
	}
}

// Apply queues p when its field is coalesced and waits for the write that
// carries it. A patch replaced by a later one for the same field shares that
// later write's result. If ctx ends first, Apply returns ctx.Err() but the
// queued write still runs.
func (c *Coalescer) Apply(ctx context.Context, p Patch) error {
	if c.window <= 0 || !c.fields[p.Field] {
		return c.target.Apply(ctx, p)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	w, ok := c.pending[p.Field]
	if ok {
		c.metrics.WritesMerged.Inc()
		w.patch = p
	} else {
		w = &pendingWrite{patch: p, done: make(chan struct{})}
		c.pending[p.Field] = w
		field := p.Field
		c.timers[field] = c.clock.AfterFunc(c.window, func() { c.flushField(field) })
	}
	c.mu.Unlock()

	select {
	case <-w.done:
		return w.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Remove drops pending patches, which the removal would erase anyway, waits
// for a delayed write already in progress, and removes the record. Callers
// waiting on a dropped patch get nil.
func (c *Coalescer) Remove(ctx context.Context) error {
	c.mu.Lock()
	c.removals++
	dropped := c.takeAllLocked()
	c.mu.Unlock()
	for _, w := range dropped {
		w.finish(nil)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.target.Remove(ctx)
}

// Flush applies every pending patch now and returns the first error.
func (c *Coalescer) Flush(ctx context.Context) error {
	c.mu.Lock()
	batch := c.takeAllLocked()
	epoch := c.removals
	c.mu.Unlock()

	var first error
	for _, w := range batch {
		err := c.write(ctx, w.patch, epoch)
		w.finish(err)
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close flushes pending writes and rejects new ones.
func (c *Coalescer) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.Flush(ctx)
}

func (c *Coalescer) flushField(field string) {
	c.mu.Lock()
	w, ok := c.pending[field]
	delete(c.pending, field)
	delete(c.timers, field)
	epoch := c.removals
	c.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	w.finish(c.write(ctx, w.patch, epoch))
}

// write applies p unless a Remove started after p left the queue at epoch.
func (c *Coalescer) write(ctx context.Context, p Patch, epoch uint64) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	removed := c.removals != epoch
	c.mu.Unlock()
	if removed {
		c.logger.Debug("coalesced write dropped after removal", "field", p.Field)
		return nil
	}

	if err := c.target.Apply(ctx, p); err != nil {
		c.logger.Warn("coalesced write failed", "error", err, "field", p.Field)
		return err
	}
	return nil
}

// takeAllLocked empties the queue and stops its timers. Callers hold c.mu.
func (c *Coalescer) takeAllLocked() []*pendingWrite {
	batch := make([]*pendingWrite, 0, len(c.pending))
	for field, w := range c.pending {
		batch = append(batch, w)
		if t, ok := c.timers[field]; ok {
			t.Stop()
		}
		delete(c.timers, field)
		delete(c.pending, field)
	}
	return batch
}
