package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	LogFile          string
	LogFileMaxSizeMB int
	ShutdownTimeout  time.Duration

	// PluginID namespaces the metadata key the panel owns.
	PluginID string

	// Host scene service. An empty HostURL runs the in-memory host, optionally
	// seeded from SceneFixture.
	HostURL      string
	HostTimeout  time.Duration
	SceneFixture string

	// Kafka change feed and downstream config change events.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaChangesTopic string
	KafkaEventsTopic  string
	KafkaGroupID      string

	// CoalesceWindow merges rapid picker writes to the same field. Zero disables it.
	CoalesceWindow time.Duration
	FieldCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	hostTimeout, err := parsePositiveDuration("HOST_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	coalesceWindow, err := time.ParseDuration(sharedcfg.EnvOrDefault("COALESCE_WINDOW", "0s"))
	if err != nil || coalesceWindow < 0 {
		return nil, errors.New("invalid COALESCE_WINDOW")
	}

	cacheSize, err := parsePositiveInt("FIELD_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}
	logFileSize, err := parsePositiveInt("LOG_FILE_MAX_SIZE_MB", 50)
	if err != nil {
		return nil, err
	}

	hostURL := os.Getenv("HOST_URL")
	kafkaEnabled := hostURL != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		LogFile:          os.Getenv("LOG_FILE"),
		LogFileMaxSizeMB: logFileSize,
		ShutdownTimeout:  shutdownTimeout,

		PluginID: sharedcfg.EnvOrDefault("PLUGIN_ID", "rodeo.owlbear.weather"),

		HostURL:      hostURL,
		HostTimeout:  hostTimeout,
		SceneFixture: os.Getenv("SCENE_FIXTURE"),

		KafkaEnabled:      kafkaEnabled,
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaChangesTopic: sharedcfg.EnvOrDefault("KAFKA_CHANGES_TOPIC", "scene-item-changes"),
		KafkaEventsTopic:  sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", "weather-config-changes"),
		KafkaGroupID:      sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "weather-fx-panel"),

		CoalesceWindow: coalesceWindow,
		FieldCacheSize: cacheSize,
	}

	if cfg.PluginID == "" {
		return nil, errors.New("PLUGIN_ID is required")
	}
	if cfg.HostURL != "" && !cfg.KafkaEnabled {
		return nil, errors.New("HOST_URL requires the Kafka change feed (KAFKA_ENABLED)")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaChangesTopic == "" {
			return nil, errors.New("KAFKA_CHANGES_TOPIC is required")
		}
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
