// Package panel is the weather config panel: it resolves the configuration of
// the current selection for display and turns UI events into config writes.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/weather-fx-panel/internal/configsync"
	"github.com/couchcryptid/weather-fx-panel/internal/domain"
	"github.com/couchcryptid/weather-fx-panel/internal/picker"
	"github.com/couchcryptid/weather-fx-panel/internal/scene"
)

// ErrNotMounted is returned by event handlers while the panel is not mounted.
var ErrNotMounted = errors.New("panel is not mounted")

// View is what the panel shows. While Loading, only the skeleton is drawn.
type View struct {
	Loading    bool               `json:"loading"`
	Error      string             `json:"error,omitempty"`
	Selection  []string           `json:"selection"`
	Values     *domain.Values     `json:"values,omitempty"`
	Conditions []domain.Condition `json:"conditions"`
	Directions []domain.Direction `json:"directions"`
	Picker     picker.State       `json:"picker"`
}

// Panel is safe for concurrent use.
type Panel struct {
	host   scene.Host
	writer configsync.Writer
	picker *picker.Picker
	key    string
	logger *slog.Logger

	mu          sync.Mutex
	mounted     bool
	generation  uint64
	cancel      context.CancelFunc
	unsubscribe func()
	selection   []string
	items       []scene.Item
	loaded      bool
	loadErr     error

	// pending holds the latest item list pushed while loading.
	pending    []scene.Item
	hasPending bool
}

// New creates an unmounted panel.
func New(host scene.Host, writer configsync.Writer, pk *picker.Picker, key string, logger *slog.Logger) *Panel {
	return &Panel{
		host:   host,
		writer: writer,
		picker: pk,
		key:    key,
		logger: logger,
	}
}

// Mount activates the panel for the current selection. Loading continues in
// the background after ctx is done; the returned channel is closed once the
// load has been applied or discarded. Mounting again replaces the previous
// mount.
func (p *Panel) Mount(ctx context.Context) <-chan struct{} {
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	p.mu.Lock()
	release := p.resetLocked()
	p.mounted = true
	p.generation++
	gen := p.generation
	p.cancel = cancel
	p.mu.Unlock()
	release()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		p.load(loadCtx, gen)
	}()
	return done
}

// Unmount tears the panel down. Outstanding loads are cancelled and their
// results discarded.
func (p *Panel) Unmount() {
	p.mu.Lock()
	release := p.resetLocked()
	p.mounted = false
	p.generation++
	p.mu.Unlock()
	release()
	p.picker.Close()
}

// View returns the current view.
func (p *Panel) View() (View, error) {
	p.mu.Lock()
	if !p.mounted {
		p.mu.Unlock()
		return View{}, ErrNotMounted
	}
	v := View{
		Loading:    !p.loaded,
		Selection:  append([]string(nil), p.selection...),
		Conditions: domain.PanelConditions(),
		Directions: domain.Directions(),
	}
	if p.loadErr != nil {
		v.Error = p.loadErr.Error()
	}
	if p.loaded {
		values := p.resolveLocked()
		v.Values = &values
	}
	p.mu.Unlock()

	v.Picker = p.picker.State()
	return v, nil
}

// CheckReadiness reports whether the host answers selection queries.
func (p *Panel) CheckReadiness(ctx context.Context) error {
	if _, err := p.host.Selection(ctx); err != nil {
		return fmt.Errorf("host not ready: %w", err)
	}
	return nil
}

// load fetches the selection and its items and subscribes to changes. Results
// are applied only if gen is still the current mount.
func (p *Panel) load(ctx context.Context, gen uint64) {
	selection, err := p.host.Selection(ctx)
	if err != nil {
		p.failLoad(gen, "get selection", err)
		return
	}

	unsubscribe := p.host.OnChange(func(all []scene.Item) {
		p.onChange(gen, all)
	})

	items, err := p.host.Items(ctx, selection)
	if err != nil {
		unsubscribe()
		p.failLoad(gen, "get items", err)
		return
	}

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		unsubscribe()
		p.logger.Debug("discarding stale load", "generation", gen)
		return
	}
	p.selection = selection
	p.unsubscribe = unsubscribe
	p.items = items
	if p.hasPending {
		// The latest push wins over the snapshot. A change the push missed
		// arrives as a later push.
		p.items = scene.Filter(p.pending, selection)
		p.pending, p.hasPending = nil, false
	}
	p.loaded = true
	tint := p.resolveLocked().Tint
	p.mu.Unlock()

	p.picker.SyncTint(tint)
	p.logger.Debug("panel loaded", "generation", gen, "selected", len(selection))
}

func (p *Panel) onChange(gen uint64, all []scene.Item) {
	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return
	}
	if !p.loaded {
		p.pending, p.hasPending = all, true
		p.mu.Unlock()
		return
	}
	p.items = scene.Filter(all, p.selection)
	tint := p.resolveLocked().Tint
	p.mu.Unlock()

	p.picker.SyncTint(tint)
}

// resolveLocked resolves the first item's record. Callers hold p.mu.
func (p *Panel) resolveLocked() domain.Values {
	if len(p.items) == 0 {
		return domain.WeatherConfig{}.Resolve()
	}
	cfg, _ := domain.Lookup(p.items[0].Metadata, p.key)
	return cfg.Resolve()
}

// resetLocked drops the current mount and returns a function that releases its
// subscription outside the lock.
func (p *Panel) resetLocked() func() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.selection = nil
	p.items = nil
	p.pending, p.hasPending = nil, false
	p.loaded = false
	p.loadErr = nil
	return func() {
		if unsubscribe != nil {
			unsubscribe()
		}
	}
}

// failLoad records a load error on the current mount; stale ones are dropped.
func (p *Panel) failLoad(gen uint64, op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		return
	}
	p.loadErr = fmt.Errorf("%s: %w", op, err)
	p.logger.Error("panel load failed", "op", op, "error", err)
}
