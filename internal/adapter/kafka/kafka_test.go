package kafka

import (
	"testing"
	"time"

	"github.com/couchcryptid/weather-fx-panel/internal/domain"
	"github.com/google/go-cmp/cmp"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNotification(t *testing.T) {
	msg := kafkago.Message{
		Topic: "scene-item-changes",
		Value: []byte(`[
			{"id":"a","metadata":{"rodeo.owlbear.weather/weather":{"type":"RAIN","speed":2,"direction":{"x":-1,"y":1}}}},
			{"id":"b","metadata":{"rodeo.owlbear.weather/weather":"SNOW"}},
			{"id":"c"}
		]`),
	}

	items, err := decodeNotification(msg)
	require.NoError(t, err)
	require.Len(t, items, 3)

	cfg, ok := domain.Lookup(items[0].Metadata, "rodeo.owlbear.weather/weather")
	require.True(t, ok)
	assert.Equal(t, domain.Rain, cfg.Type)
	assert.Equal(t, 2, *cfg.Speed)
	assert.Equal(t, domain.NorthWest, domain.VectorToDirection(*cfg.Direction))

	_, ok = domain.Lookup(items[1].Metadata, "rodeo.owlbear.weather/weather")
	assert.False(t, ok)
	assert.Nil(t, items[2].Metadata)
}

func TestDecodeNotification_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"not json", `{`, "decode item list"},
		{"object instead of list", `{"id":"a"}`, "decode item list"},
		{"missing id", `[{"metadata":{}}]`, "missing id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeNotification(kafkago.Message{Value: []byte(tt.value)})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSerializeChange(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)
	change := domain.ConfigChange{
		Op:        domain.OpSet,
		Key:       "rodeo.owlbear.weather/weather",
		Field:     domain.FieldTint,
		Value:     "#1a2b3c",
		ItemIDs:   []string{"a", "b"},
		Patched:   2,
		ChangedAt: now,
	}

	msg, err := serializeChange(change)
	require.NoError(t, err)

	assert.Equal(t, []byte("rodeo.owlbear.weather/weather"), msg.Key)
	assert.JSONEq(t, `{
		"op":"set",
		"key":"rodeo.owlbear.weather/weather",
		"field":"tint",
		"value":"#1a2b3c",
		"item_ids":["a","b"],
		"patched":2,
		"skipped":0,
		"changed_at":"2026-03-14T09:26:00Z"
	}`, string(msg.Value))

	want := []kafkago.Header{
		{Key: "op", Value: []byte("set")},
		{Key: "field", Value: []byte("tint")},
		{Key: "items", Value: []byte("2")},
		{Key: "changed_at", Value: []byte(now.Format(time.RFC3339))},
	}
	if diff := cmp.Diff(want, msg.Headers); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeChange_Remove(t *testing.T) {
	msg, err := serializeChange(domain.ConfigChange{Op: domain.OpRemove, Key: "k", ItemIDs: []string{"a"}})
	require.NoError(t, err)
	assert.NotContains(t, string(msg.Value), `"field"`)
	assert.NotContains(t, string(msg.Value), `"value"`)
	assert.Equal(t, "remove", string(msg.Headers[0].Value))

	keys := make([]string, 0, len(msg.Headers))
	for _, h := range msg.Headers {
		keys = append(keys, h.Key)
	}
	assert.Equal(t, []string{"op", "items", "changed_at"}, keys)
}

func TestChangeSubject(t *testing.T) {
	assert.Equal(t, "record", changeSubject(domain.ConfigChange{Op: domain.OpRemove}))
	assert.Equal(t, "speed", changeSubject(domain.ConfigChange{Op: domain.OpSet, Field: domain.FieldSpeed}))
}

func TestSerializeChange_UnencodableValue(t *testing.T) {
	_, err := serializeChange(domain.ConfigChange{Op: domain.OpSet, Value: make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serialize config change")
}
