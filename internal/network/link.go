package network

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	defaultProbeTimeout = 3 * time.Second
	defaultPollInterval = 5 * time.Second
)

// Config controls how the link is probed.
type Config struct {
	// ProbeTarget is an optional host:port that must accept a TCP connection.
	ProbeTarget string

	// ProbeTimeout bounds one probe (default: 3s).
	ProbeTimeout time.Duration

	// PollInterval is the re-probe period while connected (default: 5s).
	PollInterval time.Duration
}

// ProbeStatus is the outcome of the most recent probe, suitable for JSON
// serialization in status endpoints.
type ProbeStatus struct {
	Target    string    `json:"target"`
	OK        bool      `json:"ok"`
	LatencyMs int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Logger defines the logging interface for the link.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Link monitors host connectivity on behalf of the supervisor.
type Link struct {
	cfg    Config
	logger Logger

	checkInterface func(name string) error
	dial           func(ctx context.Context, network, addr string) (net.Conn, error)

	mu         sync.Mutex
	connected  bool
	connecting bool
	// gen is bumped whenever the live monitor is replaced or stopped.
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	status ProbeStatus

	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex
}

// New creates a link. Zero durations in cfg are replaced with defaults.
func New(cfg Config, logger Logger) *Link {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = noopLogger{}
	}
	d := &net.Dialer{}
	return &Link{
		cfg:            cfg,
		logger:         logger,
		checkInterface: hostInterface,
		dial:           d.DialContext,
	}
}

// SetOnConnect sets a callback invoked when the link comes up.
func (l *Link) SetOnConnect(callback func()) {
	l.callbackMu.Lock()
	l.onConnect = callback
	l.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback invoked when the link goes down or a
// connect attempt fails.
func (l *Link) SetOnDisconnect(callback func(err error)) {
	l.callbackMu.Lock()
	l.onDisconnect = callback
	l.callbackMu.Unlock()
}

// Connect starts one attempt to bring the link up on the named interface
// (empty means any interface). The secret is accepted for parity with a
// station join and is not used by the host link.
//
// Connect returns immediately. Calls while an attempt is in flight or while
// the link is already up are ignored.
func (l *Link) Connect(identity, _ string) {
	l.mu.Lock()
	if l.connecting || l.connected {
		connecting, connected := l.connecting, l.connected
		l.mu.Unlock()
		l.logger.Debug("link connect ignored", "connecting", connecting, "connected", connected)
		return
	}
	l.connecting = true
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	go l.attempt(gen, identity)
}

func (l *Link) attempt(gen uint64, identity string) {
	err := l.probe(context.Background(), identity)

	l.mu.Lock()
	if gen != l.gen {
		// Disconnect was called while probing.
		l.mu.Unlock()
		return
	}
	l.connecting = false
	if err != nil {
		l.mu.Unlock()
		l.logger.Warn("link connect failed", "interface", displayName(identity), "error", err)
		l.emitDisconnect(err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.connected = true
	l.cancel = cancel
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	l.logger.Info("link up", "interface", displayName(identity), "probe_target", l.cfg.ProbeTarget)
	go l.monitor(ctx, gen, identity, done)
	l.emitConnect()
}

// monitor re-probes until the first failure or until cancelled.
func (l *Link) monitor(ctx context.Context, gen uint64, identity string, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := l.probe(ctx, identity)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}

			l.mu.Lock()
			if gen != l.gen {
				l.mu.Unlock()
				return
			}
			l.gen++
			l.connected = false
			l.cancel = nil
			l.mu.Unlock()

			l.logger.Warn("link lost", "interface", displayName(identity), "error", err)
			l.emitDisconnect(err)
			return
		}
	}
}

// Disconnect stops monitoring. Disconnected is reported if the link was up.
func (l *Link) Disconnect() {
	l.mu.Lock()
	wasConnected := l.connected
	l.gen++
	l.connected = false
	l.connecting = false
	cancel := l.cancel
	done := l.done
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if wasConnected {
		l.logger.Info("link down by request")
		l.emitDisconnect(ErrDisconnected)
	}
}

// IsConnected reports whether the link is up.
func (l *Link) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// Status returns the most recent probe outcome.
func (l *Link) Status() ProbeStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// probe checks the interface and then the probe target, recording the result.
func (l *Link) probe(ctx context.Context, identity string) error {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.ProbeTimeout)
	defer cancel()

	target := l.cfg.ProbeTarget
	if target == "" {
		target = "interface:" + displayName(identity)
	}

	start := time.Now()
	err := l.check(ctx, identity)
	latency := time.Since(start)

	st := ProbeStatus{
		Target:    target,
		OK:        err == nil,
		LatencyMs: latency.Milliseconds(),
		CheckedAt: time.Now(),
	}
	if err != nil {
		st.Error = err.Error()
	}

	l.mu.Lock()
	l.status = st
	l.mu.Unlock()

	return err
}

func (l *Link) check(ctx context.Context, identity string) error {
	if err := l.checkInterface(identity); err != nil {
		return fmt.Errorf("%w: %w", ErrInterfaceDown, err)
	}
	if l.cfg.ProbeTarget == "" {
		return nil
	}

	conn, err := l.dial(ctx, "tcp", l.cfg.ProbeTarget)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	_ = conn.Close()
	return nil
}

func (l *Link) emitConnect() {
	l.callbackMu.RLock()
	callback := l.onConnect
	l.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

func (l *Link) emitDisconnect(err error) {
	l.callbackMu.RLock()
	callback := l.onDisconnect
	l.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

func displayName(identity string) string {
	if identity == "" {
		return "any"
	}
	return identity
}
