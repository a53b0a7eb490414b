package panel

import (
	"context"
	"fmt"

	"github.com/couchcryptid/weather-fx-panel/internal/configsync"
	"github.com/couchcryptid/weather-fx-panel/internal/domain"
	"github.com/couchcryptid/weather-fx-panel/internal/picker"
)

// SetCondition writes the weather type to the selection.
func (p *Panel) SetCondition(ctx context.Context, value string) error {
	c, err := domain.ParseCondition(value)
	if err != nil {
		return err
	}
	return p.apply(ctx, configsync.SetCondition(c))
}

// SetDirection writes the drift vector for a compass direction name.
func (p *Panel) SetDirection(ctx context.Context, value string) error {
	d, err := domain.ParseDirection(value)
	if err != nil {
		return err
	}
	return p.apply(ctx, configsync.SetDirection(d))
}

// SetWind writes the wind speed level.
func (p *Panel) SetWind(ctx context.Context, level int) error {
	if !domain.ValidLevel(level) {
		return fmt.Errorf("wind %d: %w", level, domain.ErrInvalidLevel)
	}
	return p.apply(ctx, configsync.SetSpeed(level))
}

// SetCover writes the density level.
func (p *Panel) SetCover(ctx context.Context, level int) error {
	if !domain.ValidLevel(level) {
		return fmt.Errorf("cover %d: %w", level, domain.ErrInvalidLevel)
	}
	return p.apply(ctx, configsync.SetDensity(level))
}

// RemoveWeather strips the weather record from every selected item.
func (p *Panel) RemoveWeather(ctx context.Context) error {
	if err := p.requireMounted(); err != nil {
		return err
	}
	return p.writer.Remove(ctx)
}

// TogglePicker opens the color picker on the displayed tint, or closes it.
func (p *Panel) TogglePicker() (bool, error) {
	p.mu.Lock()
	if !p.mounted {
		p.mu.Unlock()
		return false, ErrNotMounted
	}
	tint := p.resolveLocked().Tint
	p.mu.Unlock()
	return p.picker.Toggle(tint), nil
}

// PickField handles a click on the saturation/lightness field.
func (p *Panel) PickField(ctx context.Context, pt picker.Pointer, b picker.Bounds) error {
	if err := p.requireMounted(); err != nil {
		return err
	}
	return p.picker.PickField(ctx, pt, b)
}

// PickHue handles a click on the hue strip.
func (p *Panel) PickHue(ctx context.Context, pt picker.Pointer, b picker.Bounds) error {
	if err := p.requireMounted(); err != nil {
		return err
	}
	return p.picker.PickHue(ctx, pt, b)
}

// TypeHex handles input in the hex text field.
func (p *Panel) TypeHex(ctx context.Context, text string) error {
	if err := p.requireMounted(); err != nil {
		return err
	}
	return p.picker.TypeHex(ctx, text)
}

// ClearTint removes the tint from the selection and closes the picker.
func (p *Panel) ClearTint(ctx context.Context) error {
	if err := p.requireMounted(); err != nil {
		return err
	}
	return p.picker.Clear(ctx)
}

// Picker exposes the color picker for rendering.
func (p *Panel) Picker() *picker.Picker {
	return p.picker
}

func (p *Panel) apply(ctx context.Context, patch configsync.Patch) error {
	if err := p.requireMounted(); err != nil {
		return err
	}
	return p.writer.Apply(ctx, patch)
}

func (p *Panel) requireMounted() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted {
		return ErrNotMounted
	}
	return nil
}
