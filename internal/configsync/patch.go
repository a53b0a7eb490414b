package configsync

import (
	"github.com/couchcryptid/weather-fx-panel/internal/domain"
	"github.com/couchcryptid/weather-fx-panel/internal/scene"
)

// Patch is a single field-level edit applied uniformly to every selected item.
type Patch struct {
	Field string
	Op    domain.ChangeOp
	Value any
	apply func(domain.Record)
}

// SetCondition sets the weather type.
func SetCondition(c domain.Condition) Patch {
	return Patch{Field: domain.FieldType, Op: domain.OpSet, Value: string(c), apply: func(r domain.Record) {
		r.SetType(c)
	}}
}

// SetSpeed sets the wind level.
func SetSpeed(n int) Patch {
	return Patch{Field: domain.FieldSpeed, Op: domain.OpSet, Value: n, apply: func(r domain.Record) {
		r.SetSpeed(n)
	}}
}

// SetDensity sets the cover level.
func SetDensity(n int) Patch {
	return Patch{Field: domain.FieldDensity, Op: domain.OpSet, Value: n, apply: func(r domain.Record) {
		r.SetDensity(n)
	}}
}

// SetDirection stores the vector for a compass direction.
func SetDirection(d domain.Direction) Patch {
	v := domain.DirectionToVector(d)
	return Patch{Field: domain.FieldDirection, Op: domain.OpSet, Value: v, apply: func(r domain.Record) {
		r.SetDirection(v)
	}}
}

// SetTint stores a tint. The sentinel "#ffffff" becomes an UnsetTint so the
// literal is never stored.
func SetTint(hex string) Patch {
	if domain.IsNoTint(hex) {
		return UnsetTint()
	}
	return Patch{Field: domain.FieldTint, Op: domain.OpSet, Value: hex, apply: func(r domain.Record) {
		r.SetTint(hex)
	}}
}

// UnsetTint removes the tint field.
func UnsetTint() Patch {
	return Patch{Field: domain.FieldTint, Op: domain.OpUnset, apply: func(r domain.Record) {
		r.DeleteTint()
	}}
}

// PatchItem applies p to the record stored under key on one item. Items
// without a record get a new one, except for unset patches. Foreign values
// under the key are left untouched and reported as not patched.
func PatchItem(it *scene.Item, key string, p Patch) bool {
	raw, present := it.Metadata[key]
	if !present {
		if p.Op == domain.OpUnset {
			return false
		}
		rec := domain.NewRecord()
		p.apply(rec)
		if it.Metadata == nil {
			it.Metadata = make(map[string]any)
		}
		it.Metadata[key] = map[string]any(rec)
		return true
	}

	rec, ok := domain.AsRecord(raw)
	if !ok {
		return false
	}
	p.apply(rec)
	return true
}
