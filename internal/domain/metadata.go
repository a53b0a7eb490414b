package domain

import (
	"encoding/json"
	"math"
)

// Field names inside a stored record.
const (
	FieldType      = "type"
	FieldSpeed     = "speed"
	FieldDensity   = "density"
	FieldDirection = "direction"
	FieldTint      = "tint"
)

// MetadataKey returns the item metadata key owned by the plugin.
func MetadataKey(pluginID string) string {
	return pluginID + "/weather"
}

// Record is a mutable view over a well-formed record in item metadata. It
// shares storage with the metadata map it was taken from.
type Record map[string]any

// AsRecord returns v as a Record when it is a plain string-keyed map. Any other
// value is foreign data and must be left alone.
func AsRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case map[string]any:
		return Record(m), m != nil
	case Record:
		return m, m != nil
	}
	return nil, false
}

// NewRecord returns a record holding only the default condition.
func NewRecord() Record {
	return Record{FieldType: string(DefaultCondition)}
}

// Lookup decodes the record stored under key. Missing or malformed values
// report false.
func Lookup(metadata map[string]any, key string) (WeatherConfig, bool) {
	rec, ok := AsRecord(metadata[key])
	if !ok {
		return WeatherConfig{}, false
	}
	return rec.Config(), true
}

func (r Record) SetType(c Condition) {
	r[FieldType] = string(c)
}

func (r Record) SetSpeed(n int) {
	r[FieldSpeed] = n
}

func (r Record) SetDensity(n int) {
	r[FieldDensity] = n
}

func (r Record) SetDirection(v Vector) {
	r[FieldDirection] = map[string]any{"x": v.X, "y": v.Y}
}

// SetTint stores tint, or removes the field for the sentinel.
func (r Record) SetTint(tint string) {
	if IsNoTint(tint) {
		delete(r, FieldTint)
		return
	}
	r[FieldTint] = tint
}

func (r Record) DeleteTint() {
	delete(r, FieldTint)
}

// Config decodes the record leniently: fields with unexpected shapes read as absent.
func (r Record) Config() WeatherConfig {
	var c WeatherConfig
	if t, ok := r[FieldType].(string); ok {
		c.Type = Condition(t)
	}
	if n, ok := asInt(r[FieldSpeed]); ok {
		c.Speed = &n
	}
	if n, ok := asInt(r[FieldDensity]); ok {
		c.Density = &n
	}
	if m, ok := r[FieldDirection].(map[string]any); ok {
		x, okX := asFloat(m["x"])
		y, okY := asFloat(m["y"])
		if okX && okY {
			c.Direction = &Vector{X: x, Y: y}
		}
	}
	if t, ok := r[FieldTint].(string); ok {
		c.Tint = t
	}
	return c
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
