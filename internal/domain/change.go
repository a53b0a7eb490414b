package domain

import "time"

// ChangeOp identifies what a transaction did to a field.
type ChangeOp string

const (
	OpSet    ChangeOp = "set"
	OpUnset  ChangeOp = "unset"
	OpRemove ChangeOp = "remove"
)

// ConfigChange describes one committed transaction, for downstream consumers
// such as the effect renderer.
type ConfigChange struct {
	Op        ChangeOp  `json:"op"`
	Key       string    `json:"key"`
	Field     string    `json:"field,omitempty"`
	Value     any       `json:"value,omitempty"`
	ItemIDs   []string  `json:"item_ids"`
	Patched   int       `json:"patched"`
	Skipped   int       `json:"skipped"`
	ChangedAt time.Time `json:"changed_at"`
}

// NewConfigChange stamps a change with the package clock.
func NewConfigChange(op ChangeOp, key, field string, value any, ids []string) ConfigChange {
	return ConfigChange{
		Op:        op,
		Key:       key,
		Field:     field,
		Value:     value,
		ItemIDs:   ids,
		ChangedAt: clock.Now().UTC(),
	}
}
