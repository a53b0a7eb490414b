// Package watch turns a stream of host item-list notifications into
// scene.ChangeNotifier callbacks.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-fx-panel/internal/observability"
	"github.com/couchcryptid/weather-fx-panel/internal/scene"
)

// Notification is one full item list read from a source. Commit, when set,
// acknowledges it after subscribers have seen it.
type Notification struct {
	Items  []scene.Item
	Commit func(ctx context.Context) error
}

// Source blocks until the next notification is available.
type Source interface {
	Next(ctx context.Context) (Notification, error)
}

// Feed pulls notifications from a Source and fans them out to subscribers.
// It implements scene.ChangeNotifier.
type Feed struct {
	source  Source
	logger  *slog.Logger
	metrics *observability.Metrics
	running atomic.Bool

	mu      sync.Mutex
	subs    map[int]func([]scene.Item)
	nextSub int
}

// New creates a Feed reading from source.
func New(source Source, logger *slog.Logger, metrics *observability.Metrics) *Feed {
	return &Feed{
		source:  source,
		logger:  logger,
		metrics: metrics,
		subs:    make(map[int]func([]scene.Item)),
	}
}

// OnChange registers fn for every notification. The returned function
// unsubscribes and is safe to call more than once.
func (f *Feed) OnChange(fn func([]scene.Item)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// CheckReadiness returns nil while the feed loop is running.
func (f *Feed) CheckReadiness(_ context.Context) error {
	if !f.running.Load() {
		return errors.New("change feed is not running")
	}
	return nil
}

// Run reads notifications until the context is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	f.logger.Info("change feed started")
	f.running.Store(true)
	f.metrics.FeedRunning.Set(1)
	defer func() {
		f.running.Store(false)
		f.metrics.FeedRunning.Set(0)
	}()

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("change feed stopping", "reason", ctx.Err())
			return nil
		default:
		}

		n, err := f.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			f.logger.Error("read change notification failed", "error", err)
			f.metrics.FeedErrors.Inc()
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond

		f.metrics.ChangeNotifications.Inc()
		f.dispatch(n.Items)
		f.commit(ctx, n)
	}
}

func (f *Feed) dispatch(items []scene.Item) {
	f.mu.Lock()
	fns := make([]func([]scene.Item), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		cp := make([]scene.Item, len(items))
		for i, it := range items {
			cp[i] = scene.Clone(it)
		}
		fn(cp)
	}
}

func (f *Feed) commit(ctx context.Context, n Notification) {
	if n.Commit == nil {
		return
	}
	if err := n.Commit(ctx); err != nil {
		f.logger.Warn("commit change notification failed", "error", err)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
