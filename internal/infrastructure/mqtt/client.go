package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/iotdemo-core/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang for iotdemo nodes and the collector.
//
// A Client runs in one of two modes:
//   - Supervised (New): Connect is non-blocking and never retries. The outcome
//     of each attempt is reported through the OnConnect/OnDisconnect callbacks
//     so an external supervisor can decide when to try again.
//   - Auto-reconnect (Connect): paho reconnects with exponential backoff and
//     subscriptions are restored on every reconnect.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	cfg      config.MQTTConfig
	clientID string

	// supervised disables library reconnection and rebuilds the paho
	// client on every Connect so new credentials take effect.
	supervised bool
	newClient  func(*pahomqtt.ClientOptions) pahomqtt.Client

	client   pahomqtt.Client
	endpoint endpoint
	clientMu sync.RWMutex

	// subscriptions tracks active subscriptions for re-subscription on reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	connected  bool
	connecting bool
	// gen identifies the current supervised attempt; callbacks from
	// replaced paho clients are dropped.
	gen    uint64
	connMu sync.RWMutex

	onConnect    func(sessionPresent bool)
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subscription holds subscription details for re-subscription on reconnect.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// Message is a received MQTT message.
type Message struct {
	// Topic the message was received on, wildcards expanded.
	Topic string

	// Payload is the raw message body, typically JSON.
	Payload []byte

	// Retained is set when the broker replayed a stored message on
	// subscribe rather than forwarding a live publish.
	Retained bool
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked in separate goroutines by the paho library.
// They should not block for extended periods. A returned error is logged
// but does not affect message acknowledgment.
type MessageHandler func(msg Message) error

// New creates a supervised client. Nothing is dialled until Connect.
//
// Parameters:
//   - cfg: MQTT configuration; broker and auth are the initial endpoint
//   - board: Used to generate a client ID when cfg.Broker.ClientID is empty
func New(cfg config.MQTTConfig, board string) *Client {
	return &Client{
		cfg:           cfg,
		clientID:      ResolveClientID(cfg, board),
		supervised:    true,
		newClient:     pahomqtt.NewClient,
		endpoint:      endpointFromConfig(cfg),
		subscriptions: make(map[string]subscription),
	}
}

// Connect establishes an auto-reconnecting connection to the MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Configures Last Will and Testament (LWT) for offline detection
//  3. Sets up auto-reconnect with exponential backoff
//  4. Attempts initial connection with timeout
//  5. Publishes online status to iotdemo/status/<client id>
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If initial connection fails within timeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	return connectWith(cfg, pahomqtt.NewClient)
}

func connectWith(cfg config.MQTTConfig, factory func(*pahomqtt.ClientOptions) pahomqtt.Client) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		clientID:      ResolveClientID(cfg, "collector"),
		newClient:     factory,
		endpoint:      endpointFromConfig(cfg),
		subscriptions: make(map[string]subscription),
	}

	opts := autoReconnectOptions(cfg, c.clientID)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect(false)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	c.client = c.newClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnectHandler runs asynchronously and may not have executed
	// yet, so mark the client connected here.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	return c, nil
}

// SetCredentials sets the username and password used by the next Connect.
func (c *Client) SetCredentials(username, password string) {
	c.clientMu.Lock()
	c.endpoint.username = username
	c.endpoint.password = password
	c.clientMu.Unlock()
}

// SetServer sets the broker host and port used by the next Connect.
func (c *Client) SetServer(host string, port int) {
	c.clientMu.Lock()
	c.endpoint.host = host
	c.endpoint.port = port
	c.clientMu.Unlock()
}

// Connect starts one connection attempt and returns immediately.
//
// The result is delivered asynchronously: OnConnect with the broker's
// session-present flag, or OnDisconnect with the failure. A call made while
// an attempt is still in flight is ignored. Has no effect on auto-reconnect
// clients, which manage their own connection.
func (c *Client) Connect() {
	if !c.supervised {
		return
	}

	c.connMu.Lock()
	if c.connecting {
		c.connMu.Unlock()
		return
	}
	c.connecting = true
	c.gen++
	gen := c.gen
	c.connMu.Unlock()

	c.clientMu.Lock()
	opts := supervisedOptions(c.endpoint, c.clientID)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.sessionLost(gen, err)
	})
	previous := c.client
	client := c.newClient(opts)
	c.client = client
	c.clientMu.Unlock()

	if previous != nil && previous.IsConnectionOpen() {
		previous.Disconnect(0)
	}

	token := client.Connect()
	go c.awaitConnect(gen, token)
}

// awaitConnect waits for the CONNACK of a supervised attempt. paho applies
// its own connect timeout, so the wait always ends.
func (c *Client) awaitConnect(gen uint64, token pahomqtt.Token) {
	token.Wait()

	c.connMu.Lock()
	if gen != c.gen {
		// Disconnect was called while the handshake was in flight.
		c.connMu.Unlock()
		return
	}
	c.connecting = false
	c.connMu.Unlock()

	if err := token.Error(); err != nil {
		c.handleDisconnect(fmt.Errorf("%w: %w", ErrConnectionFailed, err))
		return
	}

	sessionPresent := false
	if ct, ok := token.(*pahomqtt.ConnectToken); ok {
		sessionPresent = ct.SessionPresent()
	}
	c.handleConnect(sessionPresent)
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect(sessionPresent bool) {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.restoreSubscriptions()
	c.publishStatus("online", "")

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(sessionPresent)
	}
}

// sessionLost reports the end of a supervised session once, unless the
// session belongs to a paho client that has since been replaced.
func (c *Client) sessionLost(gen uint64, err error) {
	c.connMu.Lock()
	if gen != c.gen || !c.connected {
		c.connMu.Unlock()
		if logger := c.getLogger(); logger != nil {
			logger.Warn("ignoring stale MQTT connection lost", "error", err)
		}
		return
	}
	c.connected = false
	c.connMu.Unlock()

	c.notifyDisconnect(err)
}

// handleDisconnect is called when the connection is lost or an attempt fails.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.notifyDisconnect(err)
}

func (c *Client) notifyDisconnect(err error) {
	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// publishStatus publishes the retained node status without waiting.
func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	payload := StatusPayload(c.clientID, status, reason)
	return c.pahoClient().Publish(Topics{}.NodeStatus(c.clientID), byte(c.cfg.QoS), true, payload)
}

// Disconnect publishes a graceful offline status and closes the session.
// The disconnect callback is not invoked.
func (c *Client) Disconnect() {
	client := c.pahoClient()
	if client == nil {
		return
	}

	c.connMu.Lock()
	c.gen++
	c.connecting = false
	wasConnected := c.connected
	c.connMu.Unlock()

	if wasConnected {
		c.publishStatus("offline", "graceful_shutdown").WaitTimeout(defaultPublishTimeout)
	}

	client.Disconnect(defaultDisconnectQuiesce)

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()
}

// Close gracefully disconnects from the MQTT broker.
//
// Returns:
//   - error: Always nil; a connection that is already closed is not an error
func (c *Client) Close() error {
	c.Disconnect()
	return nil
}

// HealthCheck verifies the MQTT connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	client := c.pahoClient()
	if client == nil {
		return false
	}

	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && client.IsConnected()
}

// ClientID returns the MQTT client identifier in use.
func (c *Client) ClientID() string {
	return c.clientID
}

// SetOnConnect sets a callback invoked when a session is established.
// The argument is the broker's session-present flag; it is always false
// for auto-reconnect clients.
func (c *Client) SetOnConnect(callback func(sessionPresent bool)) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback invoked when the connection is lost or,
// for supervised clients, when a connect attempt fails.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
// If not set, errors in handlers are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

func (c *Client) pahoClient() pahomqtt.Client {
	c.clientMu.RLock()
	defer c.clientMu.RUnlock()
	return c.client
}
