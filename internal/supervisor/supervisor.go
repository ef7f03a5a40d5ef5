package supervisor

import (
	"sync"
	"time"
)

// DefaultReconnectDelay is the one-shot delay used for both reconnect timers.
const DefaultReconnectDelay = 2 * time.Second

// Options configures a Supervisor.
type Options struct {
	// Link and Broker are required.
	Link   Link
	Broker Broker

	// Scheduler arms the reconnect timers. Defaults to SystemScheduler.
	Scheduler Scheduler

	// Logger receives the status lines. Defaults to a no-op logger.
	Logger Logger

	// LinkIdentity and LinkSecret are passed to every Link.Connect.
	LinkIdentity string
	LinkSecret   string

	// BrokerUser and BrokerSecret are applied before every Broker.Connect.
	BrokerUser   string
	BrokerSecret string

	// Reconnect delays. Zero means DefaultReconnectDelay.
	LinkReconnectDelay   time.Duration
	BrokerReconnectDelay time.Duration
}

// Supervisor owns the connection state of one node.
type Supervisor struct {
	link   Link
	broker Broker
	sched  Scheduler
	logger Logger
	now    func() time.Time

	linkIdentity string
	linkSecret   string
	brokerUser   string
	brokerSecret string
	linkDelay    time.Duration
	brokerDelay  time.Duration

	mu          sync.Mutex
	state       State
	linkTimer   Timer
	brokerTimer Timer
	// linkGen and brokerGen invalidate callbacks of timers that were
	// disarmed or replaced after their goroutine had already started.
	linkGen   uint64
	brokerGen uint64
	stopped   bool
	// seq numbers committed transitions so observers never see them out of order.
	seq uint64

	onChange   func(State)
	onChangeMu sync.RWMutex
	notifyMu   sync.Mutex
	notified   uint64
}

// New creates a Supervisor in the (link=down, broker=down) state.
// Nothing is connected until Start is called.
func New(opts Options) (*Supervisor, error) {
	if opts.Link == nil {
		return nil, ErrMissingLink
	}
	if opts.Broker == nil {
		return nil, ErrMissingBroker
	}
	if opts.Scheduler == nil {
		opts.Scheduler = SystemScheduler{}
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.LinkReconnectDelay <= 0 {
		opts.LinkReconnectDelay = DefaultReconnectDelay
	}
	if opts.BrokerReconnectDelay <= 0 {
		opts.BrokerReconnectDelay = DefaultReconnectDelay
	}

	return &Supervisor{
		link:         opts.Link,
		broker:       opts.Broker,
		sched:        opts.Scheduler,
		logger:       opts.Logger,
		now:          time.Now,
		linkIdentity: opts.LinkIdentity,
		linkSecret:   opts.LinkSecret,
		brokerUser:   opts.BrokerUser,
		brokerSecret: opts.BrokerSecret,
		linkDelay:    opts.LinkReconnectDelay,
		brokerDelay:  opts.BrokerReconnectDelay,
	}, nil
}

// SetOnChange sets a callback invoked with a snapshot after every state
// transition. It runs on the goroutine that delivered the event, must not
// block and must not call back into the Supervisor. A snapshot older than
// one already delivered is dropped.
func (s *Supervisor) SetOnChange(callback func(State)) {
	s.onChangeMu.Lock()
	s.onChange = callback
	s.onChangeMu.Unlock()
}

// Start issues the first link connect attempt.
func (s *Supervisor) Start() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.state.LinkAttempts++
	snap, seq := s.commitLocked(prev)
	s.mu.Unlock()

	s.notify(snap, seq)
	s.logger.Info("connecting to network link", "identity", s.linkIdentity)
	s.link.Connect(s.linkIdentity, s.linkSecret)
}

// Stop disarms both reconnect timers. Events are still tracked afterwards
// but no further connect attempt is issued.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	prev := s.state
	s.stopped = true
	s.disarmLinkLocked()
	s.disarmBrokerLocked()
	snap, seq := s.commitLocked(prev)
	s.mu.Unlock()

	s.notify(snap, seq)
}

// OnLinkEvent handles a network link transition.
func (s *Supervisor) OnLinkEvent(ev LinkEvent) {
	switch ev {
	case LinkConnected:
		s.handleLinkConnected()
	case LinkDisconnected:
		s.handleLinkDisconnected()
	default:
		s.logger.Warn("ignoring unknown link event", "event", ev.String())
	}
}

func (s *Supervisor) handleLinkConnected() {
	s.mu.Lock()
	if s.state.LinkConnected {
		s.mu.Unlock()
		s.logger.Debug("duplicate link connected event ignored")
		return
	}
	prev := s.state
	s.state.LinkConnected = true
	s.disarmLinkLocked()
	connect := !s.stopped
	if connect {
		s.state.BrokerAttempts++
	}
	snap, seq := s.commitLocked(prev)
	s.mu.Unlock()

	s.logger.Info("network link connected")
	s.notify(snap, seq)
	if connect {
		s.connectBroker()
	}
}

func (s *Supervisor) handleLinkDisconnected() {
	s.mu.Lock()
	prev := s.state
	s.state.LinkConnected = false
	s.state.BrokerConnected = false
	s.disarmBrokerLocked()
	armed := false
	if !s.stopped {
		s.armLinkLocked()
		armed = true
	}
	snap, seq := s.commitLocked(prev)
	s.mu.Unlock()

	if armed {
		s.logger.Warn("network link lost",
			"broker_was_connected", prev.BrokerConnected,
			"retry_in", s.linkDelay.String(),
		)
	} else {
		s.logger.Warn("network link lost", "broker_was_connected", prev.BrokerConnected)
	}
	s.notify(snap, seq)
}

// OnBrokerEvent handles a broker session transition.
func (s *Supervisor) OnBrokerEvent(ev BrokerEvent) {
	switch ev.Kind {
	case BrokerConnected:
		s.handleBrokerConnected(ev.SessionPresent)
	case BrokerDisconnected:
		s.handleBrokerDisconnected(ev.Reason)
	default:
		s.logger.Warn("ignoring unknown broker event", "event", ev.Kind.String())
	}
}

func (s *Supervisor) handleBrokerConnected(sessionPresent bool) {
	s.mu.Lock()
	if !s.state.LinkConnected {
		s.mu.Unlock()
		s.logger.Error("broker reported connected while network link is down, refusing transition",
			"session_present", sessionPresent,
		)
		return
	}
	prev := s.state
	s.state.BrokerConnected = true
	s.disarmBrokerLocked()
	snap, seq := s.commitLocked(prev)
	s.mu.Unlock()

	s.logger.Info("broker connected", "session_present", sessionPresent)
	s.notify(snap, seq)
}

func (s *Supervisor) handleBrokerDisconnected(reason error) {
	s.mu.Lock()
	prev := s.state
	s.state.BrokerConnected = false
	armed := false
	if s.state.LinkConnected && !s.stopped {
		s.armBrokerLocked()
		armed = true
	}
	snap, seq := s.commitLocked(prev)
	s.mu.Unlock()

	if armed {
		s.logger.Warn("broker disconnected", "error", reason, "retry_in", s.brokerDelay.String())
	} else {
		s.logger.Warn("broker disconnected, waiting for network link", "error", reason)
	}
	s.notify(snap, seq)
}

// State returns a snapshot of the connection state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsLinkConnected reports the last known link state.
func (s *Supervisor) IsLinkConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LinkConnected
}

// IsBrokerConnected reports the last known broker state.
func (s *Supervisor) IsBrokerConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.BrokerConnected
}

// Ready reports whether both the link and the broker are up.
func (s *Supervisor) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Ready()
}

// armLinkLocked arms the link reconnect timer, replacing any pending one.
func (s *Supervisor) armLinkLocked() {
	if s.linkTimer != nil {
		s.linkTimer.Stop()
	}
	s.linkGen++
	gen := s.linkGen
	s.state.LinkReconnectPending = true
	s.linkTimer = s.sched.AfterFunc(s.linkDelay, func() { s.linkTimerFired(gen) })
}

func (s *Supervisor) disarmLinkLocked() {
	if s.linkTimer != nil {
		s.linkTimer.Stop()
		s.linkTimer = nil
	}
	s.linkGen++
	s.state.LinkReconnectPending = false
}

// armBrokerLocked arms the broker reconnect timer, replacing any pending one.
func (s *Supervisor) armBrokerLocked() {
	if s.brokerTimer != nil {
		s.brokerTimer.Stop()
	}
	s.brokerGen++
	gen := s.brokerGen
	s.state.BrokerReconnectPending = true
	s.brokerTimer = s.sched.AfterFunc(s.brokerDelay, func() { s.brokerTimerFired(gen) })
}

func (s *Supervisor) disarmBrokerLocked() {
	if s.brokerTimer != nil {
		s.brokerTimer.Stop()
		s.brokerTimer = nil
	}
	s.brokerGen++
	s.state.BrokerReconnectPending = false
}

func (s *Supervisor) linkTimerFired(gen uint64) {
	s.mu.Lock()
	if gen != s.linkGen || s.stopped {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.linkTimer = nil
	s.state.LinkReconnectPending = false
	s.state.LinkAttempts++
	attempt := s.state.LinkAttempts
	snap, seq := s.commitLocked(prev)
	s.mu.Unlock()

	s.notify(snap, seq)
	s.logger.Info("reconnecting network link", "identity", s.linkIdentity, "attempt", attempt)
	s.link.Connect(s.linkIdentity, s.linkSecret)
}

func (s *Supervisor) brokerTimerFired(gen uint64) {
	s.mu.Lock()
	if gen != s.brokerGen || s.stopped {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.brokerTimer = nil
	s.state.BrokerReconnectPending = false
	s.state.BrokerAttempts++
	snap, seq := s.commitLocked(prev)
	s.mu.Unlock()

	s.notify(snap, seq)
	s.connectBroker()
}

func (s *Supervisor) connectBroker() {
	s.logger.Info("connecting to broker", "user", s.brokerUser)
	s.broker.SetCredentials(s.brokerUser, s.brokerSecret)
	s.broker.Connect()
}

// commitLocked stamps the state if it differs from prev and returns the
// snapshot with its sequence number. The sequence is 0 when nothing changed.
func (s *Supervisor) commitLocked(prev State) (State, uint64) {
	cur := s.state
	cur.ChangedAt = prev.ChangedAt
	if cur == prev {
		return s.state, 0
	}
	s.state.ChangedAt = s.now()
	s.seq++
	return s.state, s.seq
}

func (s *Supervisor) notify(snap State, seq uint64) {
	if seq == 0 {
		return
	}
	s.onChangeMu.RLock()
	callback := s.onChange
	s.onChangeMu.RUnlock()
	if callback == nil {
		return
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if seq <= s.notified {
		return
	}
	s.notified = seq
	callback(snap)
}
