package configsync_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/weather-fx-panel/internal/configsync"
	"github.com/couchcryptid/weather-fx-panel/internal/domain"
	"github.com/couchcryptid/weather-fx-panel/internal/observability"
	"github.com/couchcryptid/weather-fx-panel/internal/scene"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const window = time.Second

type recordingWriter struct {
	mu      sync.Mutex
	applied []configsync.Patch
	removed int
	err     error
}

func (w *recordingWriter) Apply(_ context.Context, p configsync.Patch) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.applied = append(w.applied, p)
	return w.err
}

func (w *recordingWriter) Remove(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removed++
	return nil
}

func (w *recordingWriter) snapshot() []configsync.Patch {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]configsync.Patch(nil), w.applied...)
}

// gatedWriter holds writes to one field until released.
type gatedWriter struct {
	target  configsync.Writer
	field   string
	entered chan struct{}
	release chan struct{}

	mu      sync.Mutex
	applied []string
}

func newGatedWriter(target configsync.Writer, field string) *gatedWriter {
	return &gatedWriter{
		target:  target,
		field:   field,
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (w *gatedWriter) Apply(ctx context.Context, p configsync.Patch) error {
	if p.Field == w.field {
		w.entered <- struct{}{}
		<-w.release
	}
	w.mu.Lock()
	w.applied = append(w.applied, p.Field)
	w.mu.Unlock()
	return w.target.Apply(ctx, p)
}

func (w *gatedWriter) Remove(ctx context.Context) error {
	return w.target.Remove(ctx)
}

func (w *gatedWriter) fields() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.applied...)
}

func newCoalescer(w configsync.Writer, clock clockwork.Clock, window time.Duration, fields ...string) *configsync.Coalescer {
	if len(fields) == 0 {
		fields = []string{domain.FieldTint}
	}
	return configsync.NewCoalescer(w, clock, window, discardLogger(), observability.NewMetricsForTesting(), fields...)
}

// canceled returns a context that is already done, so Apply queues its patch
// and returns without waiting.
func canceled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func applyAsync(ctx context.Context, c *configsync.Coalescer, p configsync.Patch) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- c.Apply(ctx, p) }()
	return errCh
}

func receive(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
		return nil
	}
}

func TestCoalescer_KeepsLastPatchPerWindow(t *testing.T) {
	w := &recordingWriter{}
	clock := clockwork.NewFakeClock()
	c := newCoalescer(w, clock, window)

	for _, hex := range []string{"#111111", "#222222", "#333333"} {
		assert.ErrorIs(t, c.Apply(canceled(), configsync.SetTint(hex)), context.Canceled)
	}
	assert.Empty(t, w.snapshot(), "nothing written before the window elapses")

	clock.Advance(window)

	require.Eventually(t, func() bool { return len(w.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "#333333", w.snapshot()[0].Value)
}

func TestCoalescer_ApplyWaitsForWrite(t *testing.T) {
	w := &recordingWriter{}
	clock := clockwork.NewFakeClock()
	c := newCoalescer(w, clock, window)
	ctx := context.Background()

	errCh := applyAsync(ctx, c, configsync.SetTint("#123456"))
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	select {
	case <-errCh:
		t.Fatal("Apply returned before the write ran")
	default:
	}

	clock.Advance(window)
	require.NoError(t, receive(t, errCh))
	assert.Len(t, w.snapshot(), 1)
}

func TestCoalescer_DelayedFailureReachesCaller(t *testing.T) {
	errRejected := errors.New("rejected")
	w := &recordingWriter{err: errRejected}
	clock := clockwork.NewFakeClock()
	c := newCoalescer(w, clock, window)
	ctx := context.Background()

	errCh := applyAsync(ctx, c, configsync.SetTint("#123456"))
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(window)

	assert.ErrorIs(t, receive(t, errCh), errRejected)
}

func TestCoalescer_MergedCallersShareFailure(t *testing.T) {
	errRejected := errors.New("rejected")
	w := &recordingWriter{err: errRejected}
	clock := clockwork.NewFakeClock()
	c := newCoalescer(w, clock, window)
	ctx := context.Background()

	first := applyAsync(ctx, c, configsync.SetTint("#111111"))
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	// The queue entry exists, so this patch replaces the first one.
	assert.ErrorIs(t, c.Apply(canceled(), configsync.SetTint("#222222")), context.Canceled)

	clock.Advance(window)

	assert.ErrorIs(t, receive(t, first), errRejected)
	got := w.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "#222222", got[0].Value)
}

func TestCoalescer_OtherFieldsPassThrough(t *testing.T) {
	w := &recordingWriter{}
	c := newCoalescer(w, clockwork.NewFakeClock(), window)

	require.NoError(t, c.Apply(context.Background(), configsync.SetSpeed(4)))

	got := w.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, domain.FieldSpeed, got[0].Field)
}

func TestCoalescer_ZeroWindowPassesThrough(t *testing.T) {
	w := &recordingWriter{}
	c := newCoalescer(w, clockwork.NewFakeClock(), 0)

	require.NoError(t, c.Apply(context.Background(), configsync.SetTint("#123456")))
	require.NoError(t, c.Apply(context.Background(), configsync.SetTint("#654321")))

	assert.Len(t, w.snapshot(), 2)
}

func TestCoalescer_RemoveDropsPending(t *testing.T) {
	w := &recordingWriter{}
	clock := clockwork.NewFakeClock()
	c := newCoalescer(w, clock, window)
	ctx := context.Background()

	errCh := applyAsync(ctx, c, configsync.SetTint("#123456"))
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	require.NoError(t, c.Remove(ctx))
	assert.NoError(t, receive(t, errCh), "a dropped patch is not a failure")
	clock.Advance(2 * window)

	assert.Equal(t, 1, w.removed)
	assert.Never(t, func() bool { return len(w.snapshot()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestCoalescer_RemoveWaitsForRunningWrite(t *testing.T) {
	h := newFakeHost(scene.Item{ID: "a", Metadata: map[string]any{}})
	gw := newGatedWriter(newSyncer(h, nil), domain.FieldTint)
	clock := clockwork.NewFakeClock()
	c := newCoalescer(gw, clock, window)
	ctx := context.Background()

	applied := applyAsync(ctx, c, configsync.SetTint("#123456"))
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(window)
	select {
	case <-gw.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("flush never reached the writer")
	}

	removed := make(chan error, 1)
	go func() { removed <- c.Remove(ctx) }()
	select {
	case <-removed:
		t.Fatal("Remove finished while a write was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(gw.release)
	require.NoError(t, receive(t, applied))
	require.NoError(t, receive(t, removed))

	_, present := h.metadata("a")[key]
	assert.False(t, present, "the record stays removed")
}

func TestCoalescer_RemoveDropsWriteWaitingToRun(t *testing.T) {
	h := newFakeHost(scene.Item{ID: "a", Metadata: map[string]any{}})
	gw := newGatedWriter(newSyncer(h, nil), domain.FieldSpeed)
	clock := clockwork.NewFakeClock()
	c := newCoalescer(gw, clock, window, domain.FieldTint, domain.FieldSpeed)
	ctx := context.Background()

	// A speed write holds the writer while the tint write becomes due.
	speed := applyAsync(ctx, c, configsync.SetSpeed(2))
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(window)
	select {
	case <-gw.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("speed flush never reached the writer")
	}

	tint := applyAsync(ctx, c, configsync.SetTint("#123456"))
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(window)

	removed := make(chan error, 1)
	go func() { removed <- c.Remove(ctx) }()
	time.Sleep(20 * time.Millisecond)
	close(gw.release)

	require.NoError(t, receive(t, speed))
	require.NoError(t, receive(t, tint))
	require.NoError(t, receive(t, removed))

	assert.Equal(t, []string{domain.FieldSpeed}, gw.fields(), "tint never reaches the host")
	_, present := h.metadata("a")[key]
	assert.False(t, present)
}

func TestCoalescer_CloseFlushesAndRejects(t *testing.T) {
	w := &recordingWriter{}
	clock := clockwork.NewFakeClock()
	c := newCoalescer(w, clock, time.Minute)
	ctx := context.Background()

	errCh := applyAsync(ctx, c, configsync.SetTint("#abcdef"))
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	require.NoError(t, c.Close(ctx))
	require.NoError(t, receive(t, errCh))

	got := w.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "#abcdef", got[0].Value)
	assert.ErrorIs(t, c.Apply(ctx, configsync.SetTint("#000000")), configsync.ErrClosed)
}

func TestCoalescer_CloseReturnsFlushError(t *testing.T) {
	errRejected := errors.New("rejected")
	w := &recordingWriter{err: errRejected}
	c := newCoalescer(w, clockwork.NewFakeClock(), time.Minute)

	assert.ErrorIs(t, c.Apply(canceled(), configsync.SetTint("#abcdef")), context.Canceled)
	assert.ErrorIs(t, c.Close(context.Background()), errRejected)
}
