package network

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

type events struct {
	up   chan struct{}
	down chan error
}

func newTestLink(t *testing.T, cfg Config, ifaceErr *atomic.Pointer[error]) (*Link, events) {
	t.Helper()
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Millisecond
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 200 * time.Millisecond
	}
	l := New(cfg, nil)
	l.checkInterface = func(string) error {
		if p := ifaceErr.Load(); p != nil {
			return *p
		}
		return nil
	}

	ev := events{up: make(chan struct{}, 4), down: make(chan error, 4)}
	l.SetOnConnect(func() { ev.up <- struct{}{} })
	l.SetOnDisconnect(func(err error) { ev.down <- err })
	t.Cleanup(l.Disconnect)
	return l, ev
}

func waitUp(t *testing.T, ev events) {
	t.Helper()
	select {
	case <-ev.up:
	case err := <-ev.down:
		t.Fatalf("link reported down: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("link never came up")
	}
}

func waitDown(t *testing.T, ev events) error {
	t.Helper()
	select {
	case err := <-ev.down:
		return err
	case <-ev.up:
		t.Fatal("link reported up")
	case <-time.After(2 * time.Second):
		t.Fatal("link never went down")
	}
	return nil
}

func TestNew_Defaults(t *testing.T) {
	l := New(Config{}, nil)
	if l.cfg.ProbeTimeout != defaultProbeTimeout {
		t.Errorf("ProbeTimeout = %v, want %v", l.cfg.ProbeTimeout, defaultProbeTimeout)
	}
	if l.cfg.PollInterval != defaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", l.cfg.PollInterval, defaultPollInterval)
	}
	if l.IsConnected() {
		t.Error("IsConnected() = true before Connect")
	}
}

func TestConnect_InterfaceOnly(t *testing.T) {
	var ifaceErr atomic.Pointer[error]
	l, ev := newTestLink(t, Config{}, &ifaceErr)

	l.Connect("wlan0", "secret")
	waitUp(t, ev)

	if !l.IsConnected() {
		t.Error("IsConnected() = false after Connected event")
	}
	st := l.Status()
	if !st.OK || st.Target != "interface:wlan0" || st.CheckedAt.IsZero() {
		t.Errorf("Status() = %+v", st)
	}
}

func TestConnect_ProbeTarget(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	var ifaceErr atomic.Pointer[error]
	l, ev := newTestLink(t, Config{ProbeTarget: ln.Addr().String()}, &ifaceErr)

	l.Connect("", "")
	waitUp(t, ev)

	if st := l.Status(); st.Target != ln.Addr().String() || !st.OK {
		t.Errorf("Status() = %+v", st)
	}
}

func TestConnect_FailureReportsDisconnect(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		iface   error
		wantErr error
	}{
		{
			name:    "interface down",
			iface:   errors.New("no carrier"),
			wantErr: ErrInterfaceDown,
		},
		{
			name:    "probe unreachable",
			cfg:     Config{ProbeTarget: "127.0.0.1:1"},
			wantErr: ErrProbeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ifaceErr atomic.Pointer[error]
			if tt.iface != nil {
				ifaceErr.Store(&tt.iface)
			}
			l, ev := newTestLink(t, tt.cfg, &ifaceErr)

			l.Connect("wlan0", "")
			err := waitDown(t, ev)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if l.IsConnected() {
				t.Error("IsConnected() = true after failed attempt")
			}
			if st := l.Status(); st.OK || st.Error == "" {
				t.Errorf("Status() = %+v, want failure recorded", st)
			}
		})
	}
}

func TestMonitor_ReportsLoss(t *testing.T) {
	var ifaceErr atomic.Pointer[error]
	l, ev := newTestLink(t, Config{}, &ifaceErr)

	l.Connect("wlan0", "")
	waitUp(t, ev)

	lost := errors.New("carrier lost")
	ifaceErr.Store(&lost)

	err := waitDown(t, ev)
	if !errors.Is(err, ErrInterfaceDown) {
		t.Errorf("error = %v, want ErrInterfaceDown", err)
	}
	if l.IsConnected() {
		t.Error("IsConnected() = true after loss")
	}

	// The link stays down until the next Connect.
	ifaceErr.Store(nil)
	select {
	case <-ev.up:
		t.Fatal("link recovered without Connect")
	case <-time.After(30 * time.Millisecond):
	}

	l.Connect("wlan0", "")
	waitUp(t, ev)
}

func TestConnect_IgnoredWhileUp(t *testing.T) {
	var ifaceErr atomic.Pointer[error]
	l, ev := newTestLink(t, Config{PollInterval: time.Hour}, &ifaceErr)

	l.Connect("wlan0", "")
	waitUp(t, ev)
	l.Connect("wlan0", "")

	select {
	case <-ev.up:
		t.Error("second Connect produced another Connected event")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestDisconnect(t *testing.T) {
	var ifaceErr atomic.Pointer[error]
	l, ev := newTestLink(t, Config{PollInterval: time.Hour}, &ifaceErr)

	// Disconnect on a link that never came up reports nothing.
	l.Disconnect()
	select {
	case err := <-ev.down:
		t.Fatalf("unexpected disconnect: %v", err)
	default:
	}

	l.Connect("wlan0", "")
	waitUp(t, ev)

	l.Disconnect()
	if err := waitDown(t, ev); !errors.Is(err, ErrDisconnected) {
		t.Errorf("error = %v, want ErrDisconnected", err)
	}
	if l.IsConnected() {
		t.Error("IsConnected() = true after Disconnect")
	}
}

func TestDisconnect_DuringAttempt(t *testing.T) {
	var ifaceErr atomic.Pointer[error]
	l, ev := newTestLink(t, Config{}, &ifaceErr)

	release := make(chan struct{})
	l.checkInterface = func(string) error {
		<-release
		return nil
	}

	l.Connect("wlan0", "")
	l.Disconnect()
	close(release)

	select {
	case <-ev.up:
		t.Error("attempt cancelled by Disconnect still reported Connected")
	case err := <-ev.down:
		t.Errorf("unexpected disconnect: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHostInterface_Unknown(t *testing.T) {
	if err := hostInterface("iotdemo-does-not-exist0"); err == nil {
		t.Error("hostInterface() = nil for a missing interface")
	}
}

func TestRoutable(t *testing.T) {
	tests := []struct {
		addr net.Addr
		want bool
	}{
		{&net.IPNet{IP: net.ParseIP("192.168.1.20")}, true},
		{&net.IPNet{IP: net.ParseIP("2001:db8::1")}, true},
		{&net.IPNet{IP: net.ParseIP("127.0.0.1")}, false},
		{&net.IPNet{IP: net.ParseIP("fe80::1")}, false},
		{&net.IPAddr{IP: net.ParseIP("0.0.0.0")}, false},
		{&net.TCPAddr{IP: net.ParseIP("10.0.0.1")}, false},
	}
	for _, tt := range tests {
		if got := routable(tt.addr); got != tt.want {
			t.Errorf("routable(%v) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestProbe_RespectsContext(t *testing.T) {
	var ifaceErr atomic.Pointer[error]
	l, _ := newTestLink(t, Config{ProbeTarget: "192.0.2.1:9"}, &ifaceErr)
	l.dial = func(ctx context.Context, _, _ string) (net.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	start := time.Now()
	err := l.probe(context.Background(), "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("probe() error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("probe ignored ProbeTimeout")
	}
}
