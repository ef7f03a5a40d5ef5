package mqtt5

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/paho"

	"github.com/nerrad567/iotdemo-core/internal/infrastructure/config"
	"github.com/nerrad567/iotdemo-core/internal/infrastructure/mqtt"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second

	// defaultKeepAlive is in seconds, as carried by CONNECT.
	defaultKeepAlive = 60

	maxQoS         = 2
	maxPayloadSize = 1 << 20
)

// session is the part of *paho.Client used here.
type session interface {
	Connect(ctx context.Context, cp *paho.Connect) (*paho.Connack, error)
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
	Disconnect(d *paho.Disconnect) error
}

// Logger interface for optional logging support.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type endpoint struct {
	host     string
	port     int
	tls      bool
	username string
	password string
}

func (e endpoint) address() string {
	return net.JoinHostPort(e.host, strconv.Itoa(e.port))
}

// Client is a supervised MQTT 5 client.
type Client struct {
	cfg      config.MQTTConfig
	clientID string

	dial       func(ctx context.Context, addr string, useTLS bool) (net.Conn, error)
	newSession func(cfg paho.ClientConfig) session

	mu       sync.Mutex
	endpoint endpoint
	sess     session
	// gen identifies the current attempt; callbacks from older sessions
	// are dropped.
	gen        uint64
	connected  bool
	connecting bool
	nextID     uint16

	onConnect    func(sessionPresent bool)
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a client. Nothing is dialled until Connect.
func New(cfg config.MQTTConfig, board string) *Client {
	return &Client{
		cfg:      cfg,
		clientID: mqtt.ResolveClientID(cfg, board),
		dial:     dialBroker,
		newSession: func(pc paho.ClientConfig) session {
			return paho.NewClient(pc)
		},
		endpoint: endpoint{
			host:     cfg.Broker.Host,
			port:     cfg.Broker.Port,
			tls:      cfg.Broker.TLS,
			username: cfg.Auth.Username,
			password: cfg.Auth.Password,
		},
	}
}

func dialBroker(ctx context.Context, addr string, useTLS bool) (net.Conn, error) {
	d := &net.Dialer{}
	if useTLS {
		td := &tls.Dialer{
			NetDialer: d,
			Config:    &tls.Config{MinVersion: tls.VersionTLS12},
		}
		return td.DialContext(ctx, "tcp", addr)
	}
	return d.DialContext(ctx, "tcp", addr)
}

// SetCredentials sets the username and password used by the next Connect.
func (c *Client) SetCredentials(username, password string) {
	c.mu.Lock()
	c.endpoint.username = username
	c.endpoint.password = password
	c.mu.Unlock()
}

// SetServer sets the broker host and port used by the next Connect.
func (c *Client) SetServer(host string, port int) {
	c.mu.Lock()
	c.endpoint.host = host
	c.endpoint.port = port
	c.mu.Unlock()
}

// SetOnConnect sets the callback receiving the CONNACK session-present flag.
func (c *Client) SetOnConnect(callback func(sessionPresent bool)) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets the callback for lost sessions and failed attempts.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for session errors.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// ClientID returns the MQTT client identifier in use.
func (c *Client) ClientID() string {
	return c.clientID
}

// IsConnected reports whether a session is established.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connect starts one connection attempt and returns immediately.
// A call made while an attempt is in flight is ignored.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.connecting {
		c.mu.Unlock()
		return
	}
	c.connecting = true
	c.gen++
	gen := c.gen
	previous := c.sess
	c.sess = nil
	c.connected = false
	ep := c.endpoint
	c.mu.Unlock()

	if previous != nil {
		_ = previous.Disconnect(&paho.Disconnect{ReasonCode: 0})
	}

	go c.connect(gen, ep)
}

func (c *Client) connect(gen uint64, ep endpoint) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	conn, err := c.dial(ctx, ep.address(), ep.tls)
	if err != nil {
		c.attemptFailed(gen, fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, ep.address(), err))
		return
	}

	sess := c.newSession(paho.ClientConfig{
		ClientID: c.clientID,
		Conn:     conn,
		OnServerDisconnect: func(d *paho.Disconnect) {
			c.sessionLost(gen, fmt.Errorf("%w: reason code %d", ErrServerDisconnect, d.ReasonCode))
		},
		OnClientError: func(err error) {
			c.sessionLost(gen, err)
		},
	})

	ack, err := sess.Connect(ctx, c.connectPacket(ep))
	if err != nil {
		_ = conn.Close()
		if ack != nil {
			err = fmt.Errorf("%w (reason code %d)", err, ack.ReasonCode)
		}
		c.attemptFailed(gen, fmt.Errorf("%w: %w", ErrConnectionFailed, err))
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		// Disconnect was called while the handshake was in flight.
		c.mu.Unlock()
		_ = sess.Disconnect(&paho.Disconnect{ReasonCode: 0})
		return
	}
	c.sess = sess
	c.connected = true
	c.connecting = false
	c.mu.Unlock()

	c.publishStatus(sess, "online", "")

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(ack.SessionPresent)
	}
}

func (c *Client) connectPacket(ep endpoint) *paho.Connect {
	cp := &paho.Connect{
		ClientID:   c.clientID,
		KeepAlive:  defaultKeepAlive,
		CleanStart: true,
		WillMessage: &paho.WillMessage{
			Topic:   mqtt.Topics{}.NodeStatus(c.clientID),
			Payload: []byte(mqtt.StatusPayload(c.clientID, "offline", "unexpected_disconnect")),
			QoS:     1,
			Retain:  true,
		},
	}
	if ep.username != "" {
		cp.Username = ep.username
		cp.UsernameFlag = true
		cp.Password = []byte(ep.password)
		cp.PasswordFlag = true
	}
	return cp
}

// attemptFailed reports a failed handshake unless the attempt was superseded.
func (c *Client) attemptFailed(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.connecting = false
	c.mu.Unlock()

	c.notifyDisconnect(err)
}

// sessionLost reports the end of an established session once.
func (c *Client) sessionLost(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen || !c.connected {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.sess = nil
	c.connected = false
	c.mu.Unlock()

	if logger := c.getLogger(); logger != nil {
		logger.Warn("MQTT5 session lost", "error", err)
	}
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

// Disconnect publishes a graceful offline status and closes the session.
// The disconnect callback is not invoked.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.gen++
	sess := c.sess
	c.sess = nil
	c.connected = false
	c.connecting = false
	c.mu.Unlock()

	if sess == nil {
		return
	}
	c.publishStatus(sess, "offline", "graceful_shutdown")
	if err := sess.Disconnect(&paho.Disconnect{ReasonCode: 0}); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT5 disconnect failed", "error", err)
		}
	}
}

// Close disconnects and always returns nil.
func (c *Client) Close() error {
	c.Disconnect()
	return nil
}

// Publish sends a message and returns a locally assigned delivery id.
// The id is 0 for QoS 0 and cycles through 1..65535 otherwise.
func (c *Client) Publish(topic string, qos byte, retain bool, payload []byte) (uint16, error) {
	if topic == "" {
		return 0, ErrInvalidTopic
	}
	if qos > maxQoS {
		return 0, ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return 0, fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	c.mu.Lock()
	sess := c.sess
	if !c.connected || sess == nil {
		c.mu.Unlock()
		return 0, ErrNotConnected
	}
	var id uint16
	if qos > 0 {
		c.nextID++
		if c.nextID == 0 {
			c.nextID = 1
		}
		id = c.nextID
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()

	if _, err := sess.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     qos,
		Retain:  retain,
		Payload: payload,
	}); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return id, nil
}

func (c *Client) publishStatus(sess session, status, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()

	_, err := sess.Publish(ctx, &paho.Publish{
		Topic:   mqtt.Topics{}.NodeStatus(c.clientID),
		QoS:     1,
		Retain:  true,
		Payload: []byte(mqtt.StatusPayload(c.clientID, status, reason)),
	})
	if err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT5 status publish failed", "status", status, "error", err)
		}
	}
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}
