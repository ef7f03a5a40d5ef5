package timesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beevik/ntp"
)

func validResponse(offset time.Duration) *ntp.Response {
	now := time.Now()
	return &ntp.Response{
		Time:          now,
		ReferenceTime: now,
		ClockOffset:   offset,
		RTT:           10 * time.Millisecond,
		Stratum:       2,
		Leap:          ntp.LeapNoWarning,
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestClock_Unsynced(t *testing.T) {
	c := New("pool.ntp.org", 0, nil)
	if c.timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", c.timeout, defaultTimeout)
	}
	if c.Synced() {
		t.Error("Synced() = true before Sync")
	}
	if got := c.EpochMillis(); got != 0 {
		t.Errorf("EpochMillis() = %d, want 0 when unsynced", got)
	}
}

func TestClock_Disabled(t *testing.T) {
	c := New("", time.Second, nil)
	if c.Enabled() {
		t.Error("Enabled() = true without a server")
	}
	if err := c.Sync(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("Sync() error = %v, want ErrDisabled", err)
	}
	// Must not start anything.
	c.SyncInBackground(context.Background())
}

func TestClock_Sync(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New("time.example", time.Second, nil)
	c.now = fixedNow(base)

	var gotHost string
	var gotTimeout time.Duration
	c.query = func(host string, opts ntp.QueryOptions) (*ntp.Response, error) {
		gotHost = host
		gotTimeout = opts.Timeout
		return validResponse(1500 * time.Millisecond), nil
	}

	if err := c.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if gotHost != "time.example" || gotTimeout != time.Second {
		t.Errorf("query(%q, %v)", gotHost, gotTimeout)
	}
	if !c.Synced() {
		t.Error("Synced() = false after Sync")
	}
	if c.Offset() != 1500*time.Millisecond {
		t.Errorf("Offset() = %v", c.Offset())
	}
	if want := base.Add(1500 * time.Millisecond); !c.Now().Equal(want) {
		t.Errorf("Now() = %v, want %v", c.Now(), want)
	}
	if want := base.Add(1500 * time.Millisecond).UnixMilli(); c.EpochMillis() != want {
		t.Errorf("EpochMillis() = %d, want %d", c.EpochMillis(), want)
	}
}

func TestClock_SyncFailures(t *testing.T) {
	tests := []struct {
		name  string
		query queryFunc
	}{
		{
			name: "query error",
			query: func(string, ntp.QueryOptions) (*ntp.Response, error) {
				return nil, errors.New("i/o timeout")
			},
		},
		{
			name: "kiss of death",
			query: func(string, ntp.QueryOptions) (*ntp.Response, error) {
				r := validResponse(time.Second)
				r.Stratum = 0
				return r, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("time.example", time.Second, nil)
			c.query = tt.query

			if err := c.Sync(context.Background()); err == nil {
				t.Fatal("Sync() error = nil")
			}
			if c.Synced() {
				t.Error("failed Sync marked the clock synced")
			}
			if c.EpochMillis() != 0 {
				t.Error("EpochMillis() != 0 after failed Sync")
			}
		})
	}
}

func TestClock_FailureKeepsOffset(t *testing.T) {
	c := New("time.example", time.Second, nil)
	c.query = func(string, ntp.QueryOptions) (*ntp.Response, error) {
		return validResponse(-2 * time.Second), nil
	}
	if err := c.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	c.query = func(string, ntp.QueryOptions) (*ntp.Response, error) {
		return nil, errors.New("unreachable")
	}
	if err := c.Sync(context.Background()); err == nil {
		t.Fatal("second Sync() error = nil")
	}

	if c.Offset() != -2*time.Second || !c.Synced() {
		t.Errorf("offset = %v synced = %v after failed resync", c.Offset(), c.Synced())
	}
}

func TestClock_SyncCancelled(t *testing.T) {
	c := New("time.example", time.Second, nil)
	called := false
	c.query = func(string, ntp.QueryOptions) (*ntp.Response, error) {
		called = true
		return validResponse(0), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Sync(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Sync() error = %v, want context.Canceled", err)
	}
	if called {
		t.Error("query ran with a cancelled context")
	}
}

func TestClock_DeadlineShortensTimeout(t *testing.T) {
	c := New("time.example", time.Minute, nil)
	var got time.Duration
	c.query = func(_ string, opts ntp.QueryOptions) (*ntp.Response, error) {
		got = opts.Timeout
		return validResponse(0), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Sync(ctx); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if got <= 0 || got > 2*time.Second {
		t.Errorf("query timeout = %v, want <= 2s", got)
	}
}

func TestClock_SyncInBackground(t *testing.T) {
	c := New("time.example", time.Second, nil)
	done := make(chan struct{})
	c.query = func(string, ntp.QueryOptions) (*ntp.Response, error) {
		defer close(done)
		return validResponse(0), nil
	}

	c.SyncInBackground(context.Background())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("background sync did not run")
	}
	deadline := time.Now().Add(time.Second)
	for !c.Synced() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !c.Synced() {
		t.Error("Synced() = false after background sync")
	}
}
