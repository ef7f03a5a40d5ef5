package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
node:
  board: "esp8266"
  use_mqtt: true
network:
  identity: "wlan0"
  probe_target: "172.20.10.5:1883"
  poll_interval: 10s
mqtt:
  protocol: "5"
  broker:
    host: "172.20.10.5"
    port: 1883
    client_id: "esp8266-wine"
  qos: 1
supervisor:
  link_reconnect_delay: 2000ms
  broker_reconnect_delay: 2s
inference:
  model: "sine"
  iterations: 10
  interval: 5s
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Node.Board != "esp8266" {
		t.Errorf("Node.Board = %q, want %q", cfg.Node.Board, "esp8266")
	}
	if cfg.Network.Identity != "wlan0" {
		t.Errorf("Network.Identity = %q, want %q", cfg.Network.Identity, "wlan0")
	}
	if cfg.Network.PollInterval != 10*time.Second {
		t.Errorf("Network.PollInterval = %v, want 10s", cfg.Network.PollInterval)
	}
	if cfg.MQTT.Protocol != "5" {
		t.Errorf("MQTT.Protocol = %q, want %q", cfg.MQTT.Protocol, "5")
	}
	if cfg.Supervisor.LinkReconnectDelay != 2*time.Second {
		t.Errorf("Supervisor.LinkReconnectDelay = %v, want 2s", cfg.Supervisor.LinkReconnectDelay)
	}
	// Untouched sections keep their defaults.
	if cfg.Collector.ExportEvery != 50 {
		t.Errorf("Collector.ExportEvery = %d, want 50", cfg.Collector.ExportEvery)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
node:
  board: ""
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error for empty node.board, got nil")
	}
	if !strings.Contains(err.Error(), "node.board") {
		t.Errorf("Load() error = %v, want mention of node.board", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(_ *Config) {},
		},
		{
			name:    "unknown protocol",
			mutate:  func(c *Config) { c.MQTT.Protocol = "3.1" },
			wantErr: "mqtt.protocol",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "broker port out of range",
			mutate:  func(c *Config) { c.MQTT.Broker.Port = 70000 },
			wantErr: "mqtt.broker.port",
		},
		{
			name:    "zero link delay",
			mutate:  func(c *Config) { c.Supervisor.LinkReconnectDelay = 0 },
			wantErr: "link_reconnect_delay",
		},
		{
			name:    "zero broker delay",
			mutate:  func(c *Config) { c.Supervisor.BrokerReconnectDelay = 0 },
			wantErr: "broker_reconnect_delay",
		},
		{
			name:    "nearest model without dataset",
			mutate:  func(c *Config) { c.Inference.Model = "nearest" },
			wantErr: "inference.dataset",
		},
		{
			name:    "unknown model",
			mutate:  func(c *Config) { c.Inference.Model = "person" },
			wantErr: "inference.model",
		},
		{
			name:    "influx enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name: "api port checked only when enabled",
			mutate: func(c *Config) {
				c.API.Enabled = false
				c.API.Port = 0
			},
		},
		{
			name:    "export every zero",
			mutate:  func(c *Config) { c.Collector.ExportEvery = 0 },
			wantErr: "collector.export_every",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateAccumulatesErrors(t *testing.T) {
	cfg := Default()
	cfg.Node.Board = ""
	cfg.MQTT.QoS = 5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"node.board", "mqtt.qos"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %v, missing %q", err, want)
		}
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv("IOTDEMO_NODE_BOARD", "esp32wemos")
	t.Setenv("IOTDEMO_NETWORK_SECRET", "fogfogfog")
	t.Setenv("IOTDEMO_MQTT_HOST", "mqtt.example.com")
	t.Setenv("IOTDEMO_MQTT_USERNAME", "testuser")
	t.Setenv("IOTDEMO_MQTT_PASSWORD", "testpass")
	t.Setenv("IOTDEMO_DATABASE_PATH", "/custom/path.db")
	t.Setenv("IOTDEMO_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	checks := []struct {
		field string
		got   string
		want  string
	}{
		{"Node.Board", cfg.Node.Board, "esp32wemos"},
		{"Network.Secret", cfg.Network.Secret, "fogfogfog"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Supervisor.LinkReconnectDelay != 2*time.Second {
		t.Errorf("LinkReconnectDelay = %v, want 2s", cfg.Supervisor.LinkReconnectDelay)
	}
	if cfg.Supervisor.BrokerReconnectDelay != 2*time.Second {
		t.Errorf("BrokerReconnectDelay = %v, want 2s", cfg.Supervisor.BrokerReconnectDelay)
	}
	if cfg.Inference.Iterations != 10 {
		t.Errorf("Inference.Iterations = %d, want 10", cfg.Inference.Iterations)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if got := cfg.MQTT.BrokerAddress(); got != "localhost:1883" {
		t.Errorf("BrokerAddress() = %q, want %q", got, "localhost:1883")
	}
}
