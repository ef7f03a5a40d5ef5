package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for an iotdemo node or collector.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Node       NodeConfig       `yaml:"node"`
	Network    NetworkConfig    `yaml:"network"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Inference  InferenceConfig  `yaml:"inference"`
	NTP        NTPConfig        `yaml:"ntp"`
	Collector  CollectorConfig  `yaml:"collector"`
	Database   DatabaseConfig   `yaml:"database"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// NodeConfig identifies the board this process stands in for.
type NodeConfig struct {
	// Board is reported in every published result (e.g. "esp32dev").
	Board string `yaml:"board"`

	// UseMQTT gates the whole connectivity stack. When false the node
	// runs inference locally and never touches the network.
	UseMQTT bool `yaml:"use_mqtt"`
}

// NetworkConfig contains the network link identity and reachability probe.
type NetworkConfig struct {
	// Identity is the network interface to watch (empty = any interface).
	Identity string `yaml:"identity"`

	// Secret is passed to the link on every connect; never logged.
	Secret string `yaml:"secret"`

	// ProbeTarget is an optional host:port dialled to confirm reachability.
	ProbeTarget string `yaml:"probe_target"`

	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	// Protocol selects the client implementation: "3.1.1" or "5".
	Protocol  string              `yaml:"protocol"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Retain    bool                `yaml:"retain"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains the library-driven reconnection settings used
// by the collector. Nodes reconnect through the supervisor instead.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// SupervisorConfig contains the reconnect timer delays.
type SupervisorConfig struct {
	LinkReconnectDelay   time.Duration `yaml:"link_reconnect_delay"`
	BrokerReconnectDelay time.Duration `yaml:"broker_reconnect_delay"`
}

// InferenceConfig contains inference loop settings.
type InferenceConfig struct {
	// Model selects the predictor: "sine" or "nearest".
	Model string `yaml:"model"`

	// Dataset is a YAML file of samples. Empty uses the built-in sine sweep.
	Dataset string `yaml:"dataset"`

	Iterations  int           `yaml:"iterations"`
	Interval    time.Duration `yaml:"interval"`
	SampleDelay time.Duration `yaml:"sample_delay"`
}

// NTPConfig contains time synchronisation settings.
type NTPConfig struct {
	// Server is the NTP host. Empty disables time stamping.
	Server  string        `yaml:"server"`
	Timeout time.Duration `yaml:"timeout"`
}

// CollectorConfig contains result collector settings.
type CollectorConfig struct {
	// ExportDir is where per-board CSV snapshots are written.
	ExportDir string `yaml:"export_dir"`

	// ExportEvery triggers a CSV export when iteration % ExportEvery == 0.
	ExportEvery int `yaml:"export_every"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the status HTTP server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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
// Environment variables follow the pattern: IOTDEMO_SECTION_KEY
// For example: IOTDEMO_MQTT_HOST, IOTDEMO_NETWORK_SECRET
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

// Default returns a Config with the defaults observed on the boards:
// 2 s reconnect timers, 10 iterations every 5 s, QoS 1 retained results.
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			Board:   "esp32dev",
			UseMQTT: true,
		},
		Network: NetworkConfig{
			ProbeTimeout: 3 * time.Second,
			PollInterval: 5 * time.Second,
		},
		MQTT: MQTTConfig{
			Protocol: "3.1.1",
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS:    1,
			Retain: true,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Supervisor: SupervisorConfig{
			LinkReconnectDelay:   2 * time.Second,
			BrokerReconnectDelay: 2 * time.Second,
		},
		Inference: InferenceConfig{
			Model:       "sine",
			Iterations:  10,
			Interval:    5 * time.Second,
			SampleDelay: 100 * time.Millisecond,
		},
		NTP: NTPConfig{
			Timeout: 5 * time.Second,
		},
		Collector: CollectorConfig{
			ExportDir:   "./data/export",
			ExportEvery: 50,
		},
		Database: DatabaseConfig{
			Path:        "./data/iotdemo.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Secrets should always come from here rather than the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IOTDEMO_NODE_BOARD"); v != "" {
		cfg.Node.Board = v
	}

	if v := os.Getenv("IOTDEMO_NETWORK_SECRET"); v != "" {
		cfg.Network.Secret = v
	}

	if v := os.Getenv("IOTDEMO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("IOTDEMO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("IOTDEMO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("IOTDEMO_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("IOTDEMO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Node.Board == "" {
		errs = append(errs, "node.board is required")
	}

	switch c.MQTT.Protocol {
	case "3.1.1", "5":
	default:
		errs = append(errs, `mqtt.protocol must be "3.1.1" or "5"`)
	}
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Supervisor.LinkReconnectDelay <= 0 {
		errs = append(errs, "supervisor.link_reconnect_delay must be positive")
	}
	if c.Supervisor.BrokerReconnectDelay <= 0 {
		errs = append(errs, "supervisor.broker_reconnect_delay must be positive")
	}

	switch c.Inference.Model {
	case "sine":
	case "nearest":
		if c.Inference.Dataset == "" {
			errs = append(errs, "inference.dataset is required for the nearest model")
		}
	default:
		errs = append(errs, `inference.model must be "sine" or "nearest"`)
	}
	if c.Inference.Iterations < 1 {
		errs = append(errs, "inference.iterations must be at least 1")
	}
	if c.Inference.Interval <= 0 {
		errs = append(errs, "inference.interval must be positive")
	}

	if c.Collector.ExportEvery < 1 {
		errs = append(errs, "collector.export_every must be at least 1")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// BrokerAddress returns host:port for log lines and status output.
func (c MQTTConfig) BrokerAddress() string {
	return fmt.Sprintf("%s:%d", c.Broker.Host, c.Broker.Port)
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
