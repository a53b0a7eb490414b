package domain

import (
	"errors"
	"fmt"
)

// Condition is the kind of weather effect rendered on an item.
type Condition string

const (
	Snow        Condition = "SNOW"
	Rain        Condition = "RAIN"
	Sand        Condition = "SAND"
	Fire        Condition = "FIRE"
	Cloud       Condition = "CLOUD"
	Bloom       Condition = "BLOOM"
	EnergyStorm Condition = "ENERGYSTORM"
	Water       Condition = "WATER"
	Current     Condition = "CURRENT"
)

// DefaultCondition is written when an edit creates a new record.
const DefaultCondition = Snow

// Level bounds shared by wind speed and cover density.
const (
	MinLevel       = 1
	MaxLevel       = 4
	DefaultSpeed   = 1
	DefaultDensity = 3
)

// DefaultDirection is the drift vector used when none is stored.
var DefaultDirection = Vector{X: -1, Y: -1}

var (
	ErrUnknownCondition = errors.New("unknown weather condition")
	ErrInvalidLevel     = errors.New("level must be between 1 and 4")
)

var knownConditions = map[Condition]bool{
	Snow: true, Rain: true, Sand: true, Fire: true, Cloud: true, Bloom: true,
	EnergyStorm: true, Water: true, Current: true,
}

// PanelConditions lists the conditions offered for selection. ENERGYSTORM,
// WATER and CURRENT are accepted in stored records but not offered yet.
func PanelConditions() []Condition {
	return []Condition{Snow, Rain, Sand, Fire, Cloud, Bloom}
}

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	return knownConditions[c]
}

// ParseCondition validates a condition symbol.
func ParseCondition(s string) (Condition, error) {
	c := Condition(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCondition, s)
	}
	return c, nil
}

// ValidLevel reports whether n is a wind speed or density level.
func ValidLevel(n int) bool {
	return n >= MinLevel && n <= MaxLevel
}

// Vector is a 2-D drift vector. Stored components are in {-1, 0, 1}.
type Vector struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// WeatherConfig is the record stored on an item. Nil pointers and an empty Tint
// mean the field is absent.
type WeatherConfig struct {
	Type      Condition `json:"type"`
	Speed     *int      `json:"speed,omitempty"`
	Density   *int      `json:"density,omitempty"`
	Direction *Vector   `json:"direction,omitempty"`
	Tint      string    `json:"tint,omitempty"`
}

// Values is a WeatherConfig with defaults applied, as the panel displays it.
type Values struct {
	Type      Condition `json:"type"`
	Speed     int       `json:"speed"`
	Density   int       `json:"density"`
	Vector    Vector    `json:"vector"`
	Direction Direction `json:"direction"`
	Tint      string    `json:"tint"`
	HasTint   bool      `json:"has_tint"`
}

// Resolve fills absent fields with their defaults.
func (c WeatherConfig) Resolve() Values {
	v := Values{
		Type:    c.Type,
		Speed:   DefaultSpeed,
		Density: DefaultDensity,
		Vector:  DefaultDirection,
		Tint:    NoTint,
	}
	if v.Type == "" {
		v.Type = DefaultCondition
	}
	if c.Speed != nil {
		v.Speed = *c.Speed
	}
	if c.Density != nil {
		v.Density = *c.Density
	}
	if c.Direction != nil {
		v.Vector = *c.Direction
	}
	if !IsNoTint(c.Tint) {
		v.Tint = c.Tint
		v.HasTint = true
	}
	v.Direction = VectorToDirection(v.Vector)
	return v
}
