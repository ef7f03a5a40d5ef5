package timesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
)

const defaultTimeout = 5 * time.Second

// ErrDisabled is returned by Sync when no server is configured.
var ErrDisabled = errors.New("timesync: no NTP server configured")

// Logger defines the logging interface for the clock.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// queryFunc matches ntp.QueryWithOptions.
type queryFunc func(host string, opts ntp.QueryOptions) (*ntp.Response, error)

// Clock is safe for concurrent use.
type Clock struct {
	server  string
	timeout time.Duration
	logger  Logger
	query   queryFunc
	now     func() time.Time

	mu       sync.RWMutex
	offset   time.Duration
	synced   bool
	syncedAt time.Time
}

// New creates a clock for server. An empty server disables syncing.
func New(server string, timeout time.Duration, logger Logger) *Clock {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Clock{
		server:  server,
		timeout: timeout,
		logger:  logger,
		query:   ntp.QueryWithOptions,
		now:     time.Now,
	}
}

// Enabled reports whether a server is configured.
func (c *Clock) Enabled() bool {
	return c.server != ""
}

// Sync queries the server once and stores the clock offset.
// A failed query keeps the previous offset.
func (c *Clock) Sync(ctx context.Context) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ntp sync: %w", err)
	}

	resp, err := c.query(c.server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return fmt.Errorf("ntp query %s: %w", c.server, err)
	}
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("ntp response from %s: %w", c.server, err)
	}

	c.mu.Lock()
	c.offset = resp.ClockOffset
	c.synced = true
	c.syncedAt = c.now()
	c.mu.Unlock()

	c.logger.Info("clock synchronised",
		"server", c.server,
		"offset", resp.ClockOffset.String(),
		"rtt", resp.RTT.String(),
		"stratum", resp.Stratum,
	)
	return nil
}

// SyncInBackground runs Sync without blocking the caller and logs failures.
func (c *Clock) SyncInBackground(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	go func() {
		if err := c.Sync(ctx); err != nil {
			c.logger.Warn("clock sync failed", "error", err)
		}
	}()
}

// Synced reports whether at least one Sync succeeded.
func (c *Clock) Synced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced
}

// Offset returns the last measured offset of the local clock.
func (c *Clock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Now returns the local time corrected by the last measured offset.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now().Add(c.offset)
}

// EpochMillis returns corrected Unix milliseconds, or 0 when unsynced.
func (c *Clock) EpochMillis() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.synced {
		return 0
	}
	return c.now().Add(c.offset).UnixMilli()
}
