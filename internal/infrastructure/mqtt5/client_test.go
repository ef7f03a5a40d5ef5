package mqtt5

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/paho"

	"github.com/nerrad567/iotdemo-core/internal/infrastructure/config"
)

type fakeSession struct {
	mu          sync.Mutex
	cfg         paho.ClientConfig
	connack     *paho.Connack
	connectErr  error
	connect     *paho.Connect
	published   []*paho.Publish
	publishErr  error
	disconnects int
}

func (s *fakeSession) Connect(_ context.Context, cp *paho.Connect) (*paho.Connack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connect = cp
	if s.connack == nil {
		s.connack = &paho.Connack{}
	}
	return s.connack, s.connectErr
}

func (s *fakeSession) Publish(_ context.Context, p *paho.Publish) (*paho.PublishResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, p)
	return &paho.PublishResponse{}, s.publishErr
}

func (s *fakeSession) Disconnect(*paho.Disconnect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
	return nil
}

type harness struct {
	client   *Client
	mu       sync.Mutex
	sessions []*fakeSession
	next     func() *fakeSession
	dialErr  error
	dialled  []string
	outcomes chan outcome
}

type outcome struct {
	connected      bool
	sessionPresent bool
	err            error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.MQTTConfig{
		Protocol: "5",
		Broker:   config.MQTTBrokerConfig{Host: "127.0.0.1", Port: 1883, ClientID: "iotdemo-test5"},
		QoS:      1,
	}
	h := &harness{client: New(cfg, "esp32dev"), outcomes: make(chan outcome, 8)}

	h.client.dial = func(_ context.Context, addr string, _ bool) (net.Conn, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.dialled = append(h.dialled, addr)
		if h.dialErr != nil {
			return nil, h.dialErr
		}
		a, b := net.Pipe()
		t.Cleanup(func() { a.Close(); b.Close() })
		return a, nil
	}
	h.client.newSession = func(pc paho.ClientConfig) session {
		h.mu.Lock()
		defer h.mu.Unlock()
		s := &fakeSession{}
		if h.next != nil {
			s = h.next()
		}
		s.cfg = pc
		h.sessions = append(h.sessions, s)
		return s
	}
	h.client.SetOnConnect(func(sp bool) { h.outcomes <- outcome{connected: true, sessionPresent: sp} })
	h.client.SetOnDisconnect(func(err error) { h.outcomes <- outcome{err: err} })
	return h
}

func (h *harness) wait(t *testing.T) outcome {
	t.Helper()
	select {
	case o := <-h.outcomes:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome reported")
		return outcome{}
	}
}

func (h *harness) lastSession() *fakeSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[len(h.sessions)-1]
}

func TestConnect_Success(t *testing.T) {
	h := newHarness(t)
	h.next = func() *fakeSession {
		return &fakeSession{connack: &paho.Connack{SessionPresent: true}}
	}

	h.client.SetServer("broker.local", 1884)
	h.client.SetCredentials("node", "secret")
	h.client.Connect()

	o := h.wait(t)
	if !o.connected || !o.sessionPresent {
		t.Fatalf("outcome = %+v, want connected with session present", o)
	}
	if !h.client.IsConnected() {
		t.Error("IsConnected() = false")
	}
	if h.dialled[0] != "broker.local:1884" {
		t.Errorf("dialled %q", h.dialled[0])
	}

	s := h.lastSession()
	cp := s.connect
	if cp.Username != "node" || !cp.UsernameFlag || string(cp.Password) != "secret" || !cp.PasswordFlag {
		t.Errorf("credentials = %q/%q flags %v/%v", cp.Username, cp.Password, cp.UsernameFlag, cp.PasswordFlag)
	}
	if !cp.CleanStart || cp.ClientID != "iotdemo-test5" {
		t.Errorf("connect packet = %+v", cp)
	}
	if cp.WillMessage == nil || cp.WillMessage.Topic != "iotdemo/status/iotdemo-test5" || !cp.WillMessage.Retain {
		t.Errorf("will = %+v", cp.WillMessage)
	}
	if len(s.published) != 1 || s.published[0].Topic != "iotdemo/status/iotdemo-test5" {
		t.Errorf("published = %v, want online status", s.published)
	}
}

func TestConnect_Anonymous(t *testing.T) {
	h := newHarness(t)
	h.client.Connect()
	h.wait(t)

	cp := h.lastSession().connect
	if cp.UsernameFlag || cp.PasswordFlag {
		t.Error("anonymous connect sets credential flags")
	}
}

func TestConnect_DialFailure(t *testing.T) {
	h := newHarness(t)
	h.dialErr = errors.New("connection refused")

	h.client.Connect()

	o := h.wait(t)
	if o.connected || !errors.Is(o.err, ErrConnectionFailed) {
		t.Errorf("outcome = %+v, want ErrConnectionFailed", o)
	}
	if h.client.IsConnected() {
		t.Error("IsConnected() = true")
	}

	// A failed attempt must not block the next one.
	h.dialErr = nil
	h.client.Connect()
	if o := h.wait(t); !o.connected {
		t.Errorf("retry outcome = %+v", o)
	}
}

func TestConnect_Refused(t *testing.T) {
	h := newHarness(t)
	h.next = func() *fakeSession {
		return &fakeSession{
			connack:    &paho.Connack{ReasonCode: 0x87},
			connectErr: errors.New("not authorized"),
		}
	}

	h.client.Connect()

	o := h.wait(t)
	if !errors.Is(o.err, ErrConnectionFailed) {
		t.Errorf("outcome = %+v, want ErrConnectionFailed", o)
	}
}

func TestSessionLost(t *testing.T) {
	tests := []struct {
		name    string
		trigger func(s *fakeSession)
		wantErr error
	}{
		{
			name: "server disconnect",
			trigger: func(s *fakeSession) {
				s.cfg.OnServerDisconnect(&paho.Disconnect{ReasonCode: 0x8B})
			},
			wantErr: ErrServerDisconnect,
		},
		{
			name: "client error",
			trigger: func(s *fakeSession) {
				s.cfg.OnClientError(net.ErrClosed)
			},
			wantErr: net.ErrClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.client.Connect()
			h.wait(t)

			s := h.lastSession()
			tt.trigger(s)
			o := h.wait(t)
			if !errors.Is(o.err, tt.wantErr) {
				t.Errorf("outcome = %+v, want %v", o, tt.wantErr)
			}
			if h.client.IsConnected() {
				t.Error("IsConnected() = true after session loss")
			}

			// A second error for the same session is not reported again.
			s.cfg.OnClientError(errors.New("late"))
			select {
			case o := <-h.outcomes:
				t.Errorf("duplicate outcome %+v", o)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestDisconnect(t *testing.T) {
	h := newHarness(t)
	h.client.Connect()
	h.wait(t)
	s := h.lastSession()

	if err := h.client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if s.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", s.disconnects)
	}
	last := s.published[len(s.published)-1]
	if !last.Retain || last.Topic != "iotdemo/status/iotdemo-test5" {
		t.Errorf("last publish = %+v, want retained offline status", last)
	}

	s.cfg.OnClientError(errors.New("closed"))
	select {
	case o := <-h.outcomes:
		t.Errorf("callback after graceful disconnect: %+v", o)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublish(t *testing.T) {
	h := newHarness(t)

	if _, err := h.client.Publish("iotdemo/esp32dev", 1, true, []byte("{}")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() before connect error = %v, want ErrNotConnected", err)
	}

	h.client.Connect()
	h.wait(t)

	tests := []struct {
		name    string
		topic   string
		qos     byte
		payload []byte
		wantID  uint16
		wantErr error
	}{
		{"empty topic", "", 1, nil, 0, ErrInvalidTopic},
		{"qos 3", "iotdemo/a", 3, nil, 0, ErrInvalidQoS},
		{"too large", "iotdemo/a", 1, make([]byte, maxPayloadSize+1), 0, ErrPublishFailed},
		{"qos 0", "iotdemo/a", 0, []byte("{}"), 0, nil},
		{"first qos 1", "iotdemo/a", 1, []byte("{}"), 1, nil},
		{"second qos 1", "iotdemo/a", 1, []byte("{}"), 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := h.client.Publish(tt.topic, tt.qos, true, tt.payload)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Publish() error = %v, want %v", err, tt.wantErr)
			}
			if id != tt.wantID {
				t.Errorf("Publish() id = %d, want %d", id, tt.wantID)
			}
		})
	}
}

func TestPublish_IDWraps(t *testing.T) {
	h := newHarness(t)
	h.client.Connect()
	h.wait(t)

	h.client.mu.Lock()
	h.client.nextID = 65535
	h.client.mu.Unlock()

	id, err := h.client.Publish("iotdemo/a", 1, false, []byte("{}"))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if id != 1 {
		t.Errorf("id after wrap = %d, want 1", id)
	}
}

func TestPublish_SessionError(t *testing.T) {
	h := newHarness(t)
	h.next = func() *fakeSession { return &fakeSession{publishErr: errors.New("quota exceeded")} }
	h.client.Connect()
	h.wait(t)

	if _, err := h.client.Publish("iotdemo/a", 1, false, []byte("{}")); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}
