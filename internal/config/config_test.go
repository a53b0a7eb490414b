package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker = "localhost:9092"
	testHostURL   = "http://scene.local:9000"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, 50, cfg.LogFileMaxSizeMB)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "rodeo.owlbear.weather", cfg.PluginID)
	assert.Empty(t, cfg.HostURL)
	assert.Equal(t, 5*time.Second, cfg.HostTimeout)
	assert.Empty(t, cfg.SceneFixture)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "scene-item-changes", cfg.KafkaChangesTopic)
	assert.Equal(t, "weather-config-changes", cfg.KafkaEventsTopic)
	assert.Equal(t, "weather-fx-panel", cfg.KafkaGroupID)
	assert.Zero(t, cfg.CoalesceWindow)
	assert.Equal(t, 64, cfg.FieldCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_FILE", "/var/log/panel.log")
	t.Setenv("LOG_FILE_MAX_SIZE_MB", "10")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("PLUGIN_ID", "com.example.fx")
	t.Setenv("HOST_URL", testHostURL)
	t.Setenv("HOST_TIMEOUT", "2s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_CHANGES_TOPIC", "custom-changes")
	t.Setenv("KAFKA_EVENTS_TOPIC", "custom-events")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("COALESCE_WINDOW", "40ms")
	t.Setenv("FIELD_CACHE_SIZE", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "/var/log/panel.log", cfg.LogFile)
	assert.Equal(t, 10, cfg.LogFileMaxSizeMB)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "com.example.fx", cfg.PluginID)
	assert.Equal(t, testHostURL, cfg.HostURL)
	assert.Equal(t, 2*time.Second, cfg.HostTimeout)
	assert.True(t, cfg.KafkaEnabled, "remote host implies the change feed")
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-changes", cfg.KafkaChangesTopic)
	assert.Equal(t, "custom-events", cfg.KafkaEventsTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, 40*time.Millisecond, cfg.CoalesceWindow)
	assert.Equal(t, 8, cfg.FieldCacheSize)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidHostTimeout(t *testing.T) {
	t.Setenv("HOST_TIMEOUT", "0s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOST_TIMEOUT")
}

func TestLoad_NegativeCoalesceWindow(t *testing.T) {
	t.Setenv("COALESCE_WINDOW", "-5ms")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COALESCE_WINDOW")
}

func TestLoad_InvalidFieldCacheSize(t *testing.T) {
	t.Setenv("FIELD_CACHE_SIZE", "zero")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIELD_CACHE_SIZE")
}

func TestLoad_RemoteHostWithoutKafka(t *testing.T) {
	t.Setenv("HOST_URL", testHostURL)
	t.Setenv("KAFKA_ENABLED", "false")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_ENABLED")
}

func TestLoad_KafkaExplicitlyEnabledForMemoryHost(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.HostURL)
}
