package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
)

// envPrefix is the prefix for all environment variable overrides.
const envPrefix = "LINEWRITER_"

// Config is the root configuration structure for the line writer.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	TSDB     TSDBConfig     `yaml:"tsdb"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Spool    SpoolConfig    `yaml:"spool"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SiteConfig identifies the installation. The site ID is attached to every
// sampled point as the "site" tag.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// PipelineConfig controls how points are batched before delivery.
type PipelineConfig struct {
	// BatchSize is the number of points that triggers an immediate flush.
	BatchSize int `yaml:"batch_size"`

	// FlushInterval is the maximum time (seconds) a point waits before delivery.
	FlushInterval int `yaml:"flush_interval"`

	// Precision is the unit sampled points are timestamped in: s, ms, us, ns.
	Precision string `yaml:"precision"`

	// SampleInterval is how often (seconds) runtime metrics are sampled.
	// 0 disables the sampler.
	SampleInterval int `yaml:"sample_interval"`
}

// TSDBConfig contains settings for the HTTP /write sink (VictoriaMetrics or
// any InfluxDB v1 compatible endpoint).
type TSDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Timeout int    `yaml:"timeout"`

	// Gzip compresses request bodies (Content-Encoding: gzip).
	Gzip bool `yaml:"gzip"`

	// ExtraLabels are sent as extra_label query parameters, which
	// VictoriaMetrics adds to every ingested series.
	ExtraLabels map[string]string `yaml:"extra_labels"`
}

// InfluxDBConfig contains InfluxDB v2 connection settings.
type InfluxDBConfig struct {
	Enabled   bool   `yaml:"enabled"`
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	Org       string `yaml:"org"`
	Bucket    string `yaml:"bucket"`
	Precision string `yaml:"precision"`

	// Timeout is the HTTP request timeout in seconds.
	Timeout int  `yaml:"timeout"`
	Gzip    bool `yaml:"gzip"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// SpoolConfig contains settings for the SQLite store-and-forward spool.
type SpoolConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// ReplayInterval is how often (seconds) spooled batches are retried.
	ReplayInterval int `yaml:"replay_interval"`

	// MaxAttempts drops a spooled batch after this many failed replays.
	// 0 means retry forever.
	MaxAttempts int `yaml:"max_attempts"`
}

// APIConfig contains settings for the HTTP write gateway.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	Stream   StreamConfig     `yaml:"stream"`
}

// StreamConfig controls the WebSocket tail of delivered batches at
// /api/v1/stream.
type StreamConfig struct {
	Enabled bool `yaml:"enabled"`

	// PingInterval is how often (seconds) idle clients are pinged.
	PingInterval int `yaml:"ping_interval"`

	// PongTimeout is how long (seconds) a client has to answer a ping.
	PongTimeout int `yaml:"pong_timeout"`

	// BufferSize is the number of batches queued per client before
	// further batches are dropped for that client.
	BufferSize int `yaml:"buffer_size"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LINEWRITER_SECTION_KEY
// For example: LINEWRITER_TSDB_URL, LINEWRITER_INFLUXDB_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults. Every sink is disabled.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Gray Logic",
		},
		Pipeline: PipelineConfig{
			BatchSize:      1000,
			FlushInterval:  1,
			Precision:      "ms",
			SampleInterval: 10,
		},
		TSDB: TSDBConfig{
			URL:     "http://localhost:8428",
			Timeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			URL:       "http://localhost:8086",
			Precision: "ns",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "linewriter",
			},
			QoS:         1,
			TopicPrefix: "graylogic/telemetry",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Spool: SpoolConfig{
			Path:           "./data/spool.db",
			WALMode:        true,
			BusyTimeout:    5,
			ReplayInterval: 30,
			MaxAttempts:    0,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			Stream: StreamConfig{
				PingInterval: 30,
				PongTimeout:  10,
				BufferSize:   64,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LINEWRITER_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Site.ID, "SITE_ID")

	setString(&cfg.Pipeline.Precision, "PIPELINE_PRECISION")
	setInt(&cfg.Pipeline.BatchSize, "PIPELINE_BATCH_SIZE")

	setBool(&cfg.TSDB.Enabled, "TSDB_ENABLED")
	setString(&cfg.TSDB.URL, "TSDB_URL")
	setBool(&cfg.TSDB.Gzip, "TSDB_GZIP")

	setBool(&cfg.InfluxDB.Enabled, "INFLUXDB_ENABLED")
	setString(&cfg.InfluxDB.URL, "INFLUXDB_URL")
	setString(&cfg.InfluxDB.Token, "INFLUXDB_TOKEN")

	setBool(&cfg.MQTT.Enabled, "MQTT_ENABLED")
	setString(&cfg.MQTT.Broker.Host, "MQTT_HOST")
	setString(&cfg.MQTT.Auth.Username, "MQTT_USERNAME")
	setString(&cfg.MQTT.Auth.Password, "MQTT_PASSWORD")

	setBool(&cfg.Spool.Enabled, "SPOOL_ENABLED")
	setString(&cfg.Spool.Path, "SPOOL_PATH")

	setBool(&cfg.API.Enabled, "API_ENABLED")
	setBool(&cfg.API.Stream.Enabled, "API_STREAM_ENABLED")
	setString(&cfg.API.Host, "API_HOST")
	setInt(&cfg.API.Port, "API_PORT")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

// setInt ignores values that do not parse, leaving the file value in place.
func setInt(dst *int, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// setBool accepts anything strconv.ParseBool does ("1", "true", "FALSE").
func setBool(dst *bool, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Validate checks the configuration for errors.
//
// All problems are collected and reported together so an operator can fix
// a config file in one pass.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	} else if _, err := lineprotocol.NewTagValue(c.Site.ID); err != nil {
		errs = append(errs, "site.id must be a valid tag value")
	}

	if c.Pipeline.BatchSize < 1 {
		errs = append(errs, "pipeline.batch_size must be at least 1")
	}
	if c.Pipeline.FlushInterval < 1 {
		errs = append(errs, "pipeline.flush_interval must be at least 1")
	}
	if c.Pipeline.SampleInterval < 0 {
		errs = append(errs, "pipeline.sample_interval must not be negative")
	}
	if _, err := lineprotocol.ParsePrecision(c.Pipeline.Precision); err != nil {
		errs = append(errs, "pipeline.precision must be one of s, ms, us, ns")
	}

	if c.TSDB.Enabled && c.TSDB.URL == "" {
		errs = append(errs, "tsdb.url is required when tsdb is enabled")
	}
	for _, k := range slices.Sorted(maps.Keys(c.TSDB.ExtraLabels)) {
		v := c.TSDB.ExtraLabels[k]
		if _, err := lineprotocol.NewTagKey(k); err != nil {
			errs = append(errs, fmt.Sprintf("tsdb.extra_labels key %q is not a valid tag key", k))
		} else if _, err := lineprotocol.NewTagValue(v); err != nil {
			errs = append(errs, fmt.Sprintf("tsdb.extra_labels value for %q is not a valid tag value", k))
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
		if _, err := lineprotocol.ParsePrecision(c.InfluxDB.Precision); err != nil {
			errs = append(errs, "influxdb.precision must be one of s, ms, us, ns")
		}
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
		}
	}

	if c.Spool.Enabled && c.Spool.Path == "" {
		errs = append(errs, "spool.path is required when the spool is enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.Stream.Enabled {
		if !c.API.Enabled {
			errs = append(errs, "api.stream requires api.enabled")
		}
		if c.API.Stream.PingInterval < 1 || c.API.Stream.PongTimeout < 1 || c.API.Stream.BufferSize < 1 {
			errs = append(errs, "api.stream ping_interval, pong_timeout and buffer_size must be at least 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// FlushInterval returns the pipeline flush interval as a Duration.
func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Pipeline.FlushInterval) * time.Second
}

// SampleInterval returns the sampler interval as a Duration (0 when disabled).
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.Pipeline.SampleInterval) * time.Second
}

// ReplayInterval returns the spool replay interval as a Duration.
func (c *Config) ReplayInterval() time.Duration {
	return time.Duration(c.Spool.ReplayInterval) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
