package supervisor

import (
	"fmt"
	"time"
)

// LinkEvent is a network link transition reported by the Link adapter.
type LinkEvent int

const (
	LinkConnected LinkEvent = iota + 1
	LinkDisconnected
)

// String returns the event name for log lines.
func (e LinkEvent) String() string {
	switch e {
	case LinkConnected:
		return "connected"
	case LinkDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("link_event(%d)", int(e))
	}
}

// BrokerEventKind is the kind of a broker session transition.
type BrokerEventKind int

const (
	BrokerConnected BrokerEventKind = iota + 1
	BrokerDisconnected
)

// String returns the event kind name for log lines.
func (k BrokerEventKind) String() string {
	switch k {
	case BrokerConnected:
		return "connected"
	case BrokerDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("broker_event(%d)", int(k))
	}
}

// BrokerEvent is a broker session transition reported by the Broker adapter.
type BrokerEvent struct {
	Kind BrokerEventKind

	// SessionPresent is set by the broker on Connected.
	SessionPresent bool

	// Reason is the disconnect cause, if known.
	Reason error
}

// State is a snapshot of the connection state.
type State struct {
	LinkConnected          bool      `json:"link_connected"`
	BrokerConnected        bool      `json:"broker_connected"`
	LinkReconnectPending   bool      `json:"link_reconnect_pending"`
	BrokerReconnectPending bool      `json:"broker_reconnect_pending"`
	LinkAttempts           int       `json:"link_attempts"`
	BrokerAttempts         int       `json:"broker_attempts"`
	ChangedAt              time.Time `json:"changed_at"`
}

// Ready reports whether both layers are up.
func (s State) Ready() bool {
	return s.LinkConnected && s.BrokerConnected
}

// Link is the network link collaborator.
//
// Connect and Disconnect must not block; the outcome is reported
// asynchronously through the adapter's event callbacks.
type Link interface {
	Connect(identity, secret string)
	Disconnect()
	IsConnected() bool
}

// Broker is the message broker collaborator.
//
// Connect must not block; the outcome is reported asynchronously through
// the adapter's event callbacks.
type Broker interface {
	SetCredentials(user, secret string)
	Connect()
	Disconnect()
	IsConnected() bool
}

// Logger defines the logging interface for the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
