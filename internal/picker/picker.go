// Package picker implements the tint color picker: HSL state driven by pointer
// and keyboard events, committed to the selection through a configsync.Writer.
package picker

import (
	"context"
	"image"
	"math"
	"strings"
	"sync"

	"github.com/couchcryptid/weather-fx-panel/internal/configsync"
	"github.com/couchcryptid/weather-fx-panel/internal/domain"
	"github.com/couchcryptid/weather-fx-panel/internal/observability"
)

// Default field sizes in pixels.
const (
	FieldWidth  = 150
	FieldHeight = 100
	StripWidth  = 16
	StripHeight = 100
)

// Pointer is a position in client coordinates.
type Pointer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bounds is the on-screen rectangle of a field in the same coordinates as Pointer.
type Bounds struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// State is a snapshot of the picker.
type State struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Lightness  float64 `json:"lightness"`
	Hex        string  `json:"hex"`
	HexInput   string  `json:"hex_input"`
	Open       bool    `json:"open"`
}

type hsl struct {
	h, s, l float64
}

var neutral = hsl{h: 0, s: 0, l: 100}

// Picker is safe for concurrent use. Writes are awaited but never issued while
// holding the state lock, so change notifications raised by the write can call
// back into SyncTint.
//
// Every commit and every tint loaded from the host gets a sequence number. A
// failed write puts the picker back to the last confirmed state, the newest
// one the host is known to hold, but only if no later commit or load has
// replaced the state since; that later operation decides instead.
type Picker struct {
	writer  configsync.Writer
	metrics *observability.Metrics

	mu          sync.Mutex
	color       hsl
	hexInput    string
	open        bool
	lastWritten string
	written     bool

	seq          uint64
	confirmed    snapshot
	confirmedSeq uint64

	fieldW, fieldH int
	stripW, stripH int
	field          *image.RGBA
	fieldHue       float64
	strip          *image.RGBA
	fieldRepaints  int
	stripRepaints  int
}

// New creates a closed picker with default field sizes.
func New(writer configsync.Writer, metrics *observability.Metrics) *Picker {
	return NewWithSize(writer, metrics, FieldWidth, FieldHeight, StripWidth, StripHeight)
}

// NewWithSize creates a closed picker rendering fields of the given pixel sizes.
func NewWithSize(writer configsync.Writer, metrics *observability.Metrics, fieldW, fieldH, stripW, stripH int) *Picker {
	return &Picker{
		writer:    writer,
		metrics:   metrics,
		color:     neutral,
		confirmed: snapshot{color: neutral},
		fieldW:    fieldW,
		fieldH:    fieldH,
		stripW:    stripW,
		stripH:    stripH,
	}
}

// State returns a snapshot of the picker.
func (p *Picker) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		Hue:        p.color.h,
		Saturation: p.color.s,
		Lightness:  p.color.l,
		Hex:        domain.HSLToHex(p.color.h, p.color.s, p.color.l),
		HexInput:   p.hexInput,
		Open:       p.open,
	}
}

// Open shows the picker initialized from the effective tint.
func (p *Picker) Open(tint string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = true
	p.load(tint)
}

// Close hides the picker without touching its state.
func (p *Picker) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
}

// Toggle opens the picker from tint, or closes it. It reports the new open state.
func (p *Picker) Toggle(tint string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = !p.open
	if p.open {
		p.load(tint)
	}
	return p.open
}

// SyncTint follows a tint change made elsewhere while the picker is open. The
// echo of the picker's own last write is ignored so a drag does not snap to
// the rounded hex value.
func (p *Picker) SyncTint(tint string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return
	}
	if p.written && sameTint(tint, p.lastWritten) {
		return
	}
	p.load(tint)
}

// PickField sets saturation and lightness from a pointer on the field and
// writes the resulting tint. Hue is preserved.
func (p *Picker) PickField(ctx context.Context, pt Pointer, b Bounds) error {
	s := fraction(pt.X, b.Left, b.Width) * 100
	l := 100 - fraction(pt.Y, b.Top, b.Height)*100

	p.mu.Lock()
	next := hsl{h: p.color.h, s: s, l: l}
	p.mu.Unlock()
	hex := domain.HSLToHex(next.h, next.s, next.l)
	return p.commit(ctx, next, inputText(hex), hex)
}

// PickHue sets hue from a pointer on the hue strip and writes the resulting
// tint. Saturation and lightness are preserved.
func (p *Picker) PickHue(ctx context.Context, pt Pointer, b Bounds) error {
	h := math.Mod(fraction(pt.Y, b.Top, b.Height)*360, 360)

	p.mu.Lock()
	next := hsl{h: h, s: p.color.s, l: p.color.l}
	p.mu.Unlock()
	hex := domain.HSLToHex(next.h, next.s, next.l)
	return p.commit(ctx, next, inputText(hex), hex)
}

// TypeHex handles text typed into the hex input. Text that is not a partial
// hex color is ignored. A complete color is written as typed.
func (p *Picker) TypeHex(ctx context.Context, text string) error {
	value := strings.ToUpper(text)
	if !domain.PartialHex(value) {
		return nil
	}

	if !domain.ValidHex(value) {
		p.mu.Lock()
		p.hexInput = value
		p.mu.Unlock()
		return nil
	}
	h, s, l := domain.HexToHSL(value)
	return p.commit(ctx, hsl{h: h, s: s, l: l}, value, value)
}

// Clear removes the tint from the selection, then resets and closes the picker.
func (p *Picker) Clear(ctx context.Context) error {
	p.mu.Lock()
	p.markWritten("")
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	if err := p.writer.Apply(ctx, configsync.UnsetTint()); err != nil {
		p.settle(seq, snapshot{}, err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.color = neutral
	p.hexInput = ""
	p.open = false
	p.confirmLocked()
	return nil
}

// Field returns the saturation/lightness field for the current hue and the
// hue it was painted for. It is repainted only when hue has changed. The
// returned image must not be modified.
func (p *Picker) Field() (*image.RGBA, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.field == nil || p.fieldHue != p.color.h {
		p.field = RenderField(p.color.h, p.fieldW, p.fieldH)
		p.fieldHue = p.color.h
		p.fieldRepaints++
		p.metrics.FieldRepaints.WithLabelValues("saturation_lightness").Inc()
	}
	return p.field, p.fieldHue
}

// HueStrip returns the hue strip. It is painted once. The returned image must
// not be modified.
func (p *Picker) HueStrip() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.strip == nil {
		p.strip = RenderHueStrip(p.stripW, p.stripH)
		p.stripRepaints++
		p.metrics.FieldRepaints.WithLabelValues("hue").Inc()
	}
	return p.strip
}

// Repaints reports how often each field has been painted.
func (p *Picker) Repaints() (field, strip int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fieldRepaints, p.stripRepaints
}

type snapshot struct {
	color       hsl
	hexInput    string
	lastWritten string
	written     bool
}

func (p *Picker) snapshot() snapshot {
	return snapshot{color: p.color, hexInput: p.hexInput, lastWritten: p.lastWritten, written: p.written}
}

func (p *Picker) restoreLocked(s snapshot) {
	p.color = s.color
	p.hexInput = s.hexInput
	p.lastWritten = s.lastWritten
	p.written = s.written
}

// confirmLocked records the current state as held by the host. Callers hold p.mu.
func (p *Picker) confirmLocked() {
	p.seq++
	p.confirmed = p.snapshot()
	p.confirmedSeq = p.seq
}

// settle records the outcome of the write started as commit seq, which moved
// the picker to committed.
func (p *Picker) settle(seq uint64, committed snapshot, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		if seq == p.seq {
			p.restoreLocked(p.confirmed)
		}
		return
	}
	if seq > p.confirmedSeq {
		p.confirmed = committed
		p.confirmedSeq = seq
	}
}

func (p *Picker) markWritten(tint string) {
	p.lastWritten = tint
	p.written = true
}

// commit moves to next, shows input in the hex field and writes hex.
func (p *Picker) commit(ctx context.Context, next hsl, input, hex string) error {
	p.mu.Lock()
	p.color = next
	p.hexInput = input
	p.markWritten(hex)
	p.seq++
	seq := p.seq
	committed := p.snapshot()
	p.mu.Unlock()

	err := p.writer.Apply(ctx, configsync.SetTint(hex))
	p.settle(seq, committed, err)
	return err
}

// load decodes tint into the picker state. Callers hold p.mu.
func (p *Picker) load(tint string) {
	if domain.IsNoTint(tint) || !domain.ValidHex(tint) {
		p.color = neutral
		p.hexInput = ""
	} else {
		h, s, l := domain.HexToHSL(tint)
		p.color = hsl{h: h, s: s, l: l}
		p.hexInput = inputText(tint)
	}
	p.confirmLocked()
}

func inputText(tint string) string {
	if domain.IsNoTint(tint) {
		return ""
	}
	return strings.ToUpper(tint)
}

func sameTint(a, b string) bool {
	if domain.IsNoTint(a) || domain.IsNoTint(b) {
		return domain.IsNoTint(a) && domain.IsNoTint(b)
	}
	return strings.EqualFold(a, b)
}

// fraction maps pos to its clamped relative position in [start, start+size].
func fraction(pos, start, size float64) float64 {
	if size <= 0 || math.IsNaN(pos) {
		return 0
	}
	f := (pos - start) / size
	return math.Max(0, math.Min(1, f))
}
