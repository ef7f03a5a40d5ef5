package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/iotdemo-core/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout bounds a single CONNECT handshake inside paho.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// endpoint is the broker address and credentials applied on the next connect.
type endpoint struct {
	host     string
	port     int
	tls      bool
	username string
	password string
}

func endpointFromConfig(cfg config.MQTTConfig) endpoint {
	return endpoint{
		host:     cfg.Broker.Host,
		port:     cfg.Broker.Port,
		tls:      cfg.Broker.TLS,
		username: cfg.Auth.Username,
		password: cfg.Auth.Password,
	}
}

// brokerURL returns tcp:// or ssl:// depending on the TLS setting.
func (e endpoint) brokerURL() string {
	scheme := "tcp"
	if e.tls {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, e.host, e.port)
}

// ResolveClientID returns the configured client ID or generates one per board.
func ResolveClientID(cfg config.MQTTConfig, board string) string {
	if cfg.Broker.ClientID != "" {
		return cfg.Broker.ClientID
	}
	if board == "" {
		board = "node"
	}
	return fmt.Sprintf("iotdemo-%s-%s", board, uuid.NewString()[:8])
}

// buildClientOptions creates the paho options shared by both client modes.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - TLS configuration (if enabled)
//   - Clean session mode
func buildClientOptions(ep endpoint, id string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(ep.brokerURL())
	opts.SetClientID(id)

	if ep.username != "" {
		opts.SetUsername(ep.username)
		opts.SetPassword(ep.password)
	}

	opts.SetCleanSession(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if ep.tls {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	configureLWT(opts, id)
	return opts
}

// supervisedOptions disables every library-driven retry. A lost or refused
// session is reported once and recovery is left to the caller.
func supervisedOptions(ep endpoint, id string) *pahomqtt.ClientOptions {
	opts := buildClientOptions(ep, id)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	return opts
}

// autoReconnectOptions enables paho's exponential backoff between
// cfg.Reconnect.InitialDelay and cfg.Reconnect.MaxDelay seconds.
func autoReconnectOptions(cfg config.MQTTConfig, id string) *pahomqtt.ClientOptions {
	opts := buildClientOptions(endpointFromConfig(cfg), id)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	return opts
}

// configureLWT sets up Last Will and Testament for offline detection.
//
// Topic: iotdemo/status/<client id>
// QoS: 1
// Retained: true (new subscribers see last status)
func configureLWT(opts *pahomqtt.ClientOptions, id string) {
	opts.SetWill(Topics{}.NodeStatus(id), StatusPayload(id, "offline", "unexpected_disconnect"), 1, true)
}

// StatusPayload returns the JSON payload published to NodeStatus. An empty
// reason is omitted.
func StatusPayload(id, status, reason string) string {
	if reason == "" {
		return fmt.Sprintf(
			`{"status":"%s","client_id":"%s","timestamp":"%s"}`,
			status, id, time.Now().UTC().Format(time.RFC3339),
		)
	}
	return fmt.Sprintf(
		`{"status":"%s","client_id":"%s","reason":"%s","timestamp":"%s"}`,
		status, id, reason, time.Now().UTC().Format(time.RFC3339),
	)
}
