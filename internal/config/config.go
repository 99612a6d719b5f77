// Package config loads the endpoint's YAML configuration.
//
// Loading runs in four steps: built-in defaults, the YAML file, MASH_*
// environment overrides, then Validate. The app block is normalized while
// decoding so that the rest of the program only sees concrete values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envPrefix is the prefix for environment variable overrides.
const envPrefix = "MASH_"

// Default values.
const (
	DefaultDeviceName       = "MASH Endpoint"
	DefaultFlashSize        = "4MB"
	DefaultStackLockTimeout = 2 * time.Second
	DefaultFlushInterval    = 5 * time.Second
	DefaultTopicPrefix      = "mash"
	DefaultDiscoveryPort    = 5540
)

// Config is the complete endpoint configuration.
type Config struct {
	App         AppConfig         `yaml:"app"`
	Node        NodeConfig        `yaml:"node"`
	Logging     LoggingConfig     `yaml:"logging"`
	ProtocolLog ProtocolLogConfig `yaml:"protocol_log"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Runtime     RuntimeConfig     `yaml:"runtime"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// NodeConfig identifies the node.
type NodeConfig struct {
	// NodeID zero means derive from MAC, or random when MAC is empty.
	NodeID    uint64 `yaml:"node_id"`
	VendorID  uint16 `yaml:"vendor_id"`
	ProductID uint16 `yaml:"product_id"`

	// MAC seeds the commissioning credentials.
	MAC string `yaml:"mac"`

	// Interface restricts mDNS to one network interface.
	Interface string `yaml:"interface"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	Output string `yaml:"output"` // stdout, stderr
}

// ProtocolLogConfig configures the CBOR protocol event log.
type ProtocolLogConfig struct {
	// Path empty disables the file log.
	Path string `yaml:"path"`
}

// PersistenceConfig configures node state storage.
type PersistenceConfig struct {
	Path          string        `yaml:"path"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// RuntimeConfig holds protocol stack settings.
type RuntimeConfig struct {
	// StackLockTimeout bounds how long local and remote actions wait for
	// the stack lock.
	StackLockTimeout time.Duration `yaml:"stack_lock_timeout"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	KeepAlive   int              `yaml:"keep_alive"` // seconds
	TopicPrefix string           `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains broker connection settings.
type MQTTBrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`

	// ClientID empty means a generated one.
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains broker credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DiscoveryConfig configures mDNS advertisement.
type DiscoveryConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Port       int           `yaml:"port"`
	TTL        time.Duration `yaml:"ttl"`
	Interfaces []string      `yaml:"interfaces"`

	// CommissioningWindow is how long the commissionable service stays up.
	CommissioningWindow time.Duration `yaml:"commissioning_window"`
}

// TelemetryConfig configures optional event export.
type TelemetryConfig struct {
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// Load reads configuration from path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
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

// Parse decodes configuration from YAML bytes without reading the
// environment. Used by tests and mash-configgen.
func Parse(data []byte) (*Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			DeviceName:   DefaultDeviceName,
			DeviceType:   DeviceTypeLight,
			Connectivity: ConnectivityWiFi,
			FlashSize:    DefaultFlashSize,
		},
		Node: NodeConfig{
			VendorID:  0xFFF1,
			ProductID: 0x8000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Persistence: PersistenceConfig{
			Path:          "./data/mash-endpoint-state.json",
			FlushInterval: DefaultFlushInterval,
		},
		Runtime: RuntimeConfig{
			StackLockTimeout: DefaultStackLockTimeout,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS:         1,
			KeepAlive:   60,
			TopicPrefix: DefaultTopicPrefix,
		},
		Discovery: DiscoveryConfig{
			Enabled:             true,
			Port:                DefaultDiscoveryPort,
			TTL:                 120 * time.Second,
			CommissioningWindow: 15 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			InfluxDB: InfluxDBConfig{
				Enabled:       false,
				URL:           "http://localhost:8086",
				Org:           "mash",
				Bucket:        "endpoint",
				BatchSize:     100,
				FlushInterval: 10,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides.
// Environment variables take precedence over file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envPrefix + "DEVICE_NAME"); v != "" {
		cfg.App.DeviceName = v
	}
	if v := os.Getenv(envPrefix + "NODE_ID"); v != "" {
		if id, err := strconv.ParseUint(v, 0, 64); err == nil {
			cfg.Node.NodeID = id
		}
	}
	if v := os.Getenv(envPrefix + "NODE_MAC"); v != "" {
		cfg.Node.MAC = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(envPrefix + "PROTOCOL_LOG"); v != "" {
		cfg.ProtocolLog.Path = v
	}
	if v := os.Getenv(envPrefix + "STATE_PATH"); v != "" {
		cfg.Persistence.Path = v
	}

	if v := os.Getenv(envPrefix + "MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv(envPrefix + "MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv(envPrefix + "MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv(envPrefix + "MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv(envPrefix + "INFLUXDB_URL"); v != "" {
		cfg.Telemetry.InfluxDB.URL = v
	}
	if v := os.Getenv(envPrefix + "INFLUXDB_TOKEN"); v != "" {
		cfg.Telemetry.InfluxDB.Token = v
	}
}

var supportedFlashSizes = map[string]bool{"4MB": true, "8MB": true, "16MB": true}

var supportedLEDTypes = map[string]bool{
	"ws2812": true, "sk6812": true, "sk6812w": true, "sk6812_rgbw": true, "rgbw": true,
}

// Validate checks the configuration for errors. Every problem found is
// reported, not just the first.
func (c *Config) Validate() error {
	var errs []string

	switch c.App.DeviceType {
	case DeviceTypeLight, DeviceTypeSwitch:
	default:
		errs = append(errs, fmt.Sprintf("app.device_type %q must be light or switch", c.App.DeviceType))
	}
	switch c.App.Connectivity {
	case ConnectivityWiFi, ConnectivityThread, ConnectivityWiFiThread:
	default:
		errs = append(errs, fmt.Sprintf("app.network.connectivity %q must be wifi, thread or wifi_thread", c.App.Connectivity))
	}
	if !supportedFlashSizes[c.App.FlashSize] {
		errs = append(errs, fmt.Sprintf("app.flash_size %q must be one of 4MB, 8MB, 16MB", c.App.FlashSize))
	}
	if c.App.LEDStrip != nil && !supportedLEDTypes[c.App.LEDStrip.Type] {
		errs = append(errs, fmt.Sprintf("app.led_strip.type %q is not supported", c.App.LEDStrip.Type))
	}

	seen := make(map[uint16]bool)
	for i, ep := range c.App.Endpoints {
		if seen[ep.ID] {
			errs = append(errs, fmt.Sprintf("app.endpoints[%d]: duplicate id %d", i, ep.ID))
		}
		seen[ep.ID] = true
		if ep.ID == 0 {
			errs = append(errs, fmt.Sprintf("app.endpoints[%d]: id 0 is the root endpoint", i))
		}
	}

	ids := make(map[string]bool)
	for i, b := range c.App.Buttons {
		if b.ID != "" && ids[b.ID] {
			errs = append(errs, fmt.Sprintf("app.buttons[%d]: duplicate id %q", i, b.ID))
		}
		ids[b.ID] = true
		if b.GPIO < 0 {
			errs = append(errs, fmt.Sprintf("app.buttons[%d]: gpio must not be negative", i))
		}
	}

	if c.Runtime.StackLockTimeout <= 0 {
		errs = append(errs, "runtime.stack_lock_timeout must be positive")
	}
	if c.Persistence.Path == "" {
		errs = append(errs, "persistence.path is required")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix is required")
		}
	}

	if c.Discovery.Enabled && (c.Discovery.Port < 1 || c.Discovery.Port > 65535) {
		errs = append(errs, "discovery.port must be between 1 and 65535")
	}

	if c.Telemetry.InfluxDB.Enabled {
		if c.Telemetry.InfluxDB.URL == "" {
			errs = append(errs, "telemetry.influxdb.url is required")
		}
		if c.Telemetry.InfluxDB.Bucket == "" {
			errs = append(errs, "telemetry.influxdb.bucket is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
