package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/iotdemo-core/internal/inference"
	"github.com/nerrad567/iotdemo-core/internal/infrastructure/mqtt"
)

// Subscriber is the part of the MQTT client the collector needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Metrics receives results for time-series storage. Optional.
type Metrics interface {
	WriteResult(board, model string, result float64, iteration int, microseconds int64, at time.Time)
	WriteNodeStatus(clientID string, online bool, at time.Time)
}

// Logger defines the logging interface for the collector.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Collector.
type Options struct {
	Store    *Store
	Metrics  Metrics
	Exporter *Exporter
	Logger   Logger
}

// Collector handles result and status messages.
type Collector struct {
	store    *Store
	metrics  Metrics
	exporter *Exporter
	logger   Logger
	now      func() time.Time
}

// New creates a collector. Metrics and Exporter are optional.
func New(opts Options) (*Collector, error) {
	if opts.Store == nil {
		return nil, ErrMissingStore
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Collector{
		store:    opts.Store,
		metrics:  opts.Metrics,
		exporter: opts.Exporter,
		logger:   opts.Logger,
		now:      time.Now,
	}, nil
}

// Subscribe registers the collector's handlers for every board's results
// and every node's status.
func (c *Collector) Subscribe(ctx context.Context, sub Subscriber) error {
	topics := mqtt.Topics{}
	if err := sub.Subscribe(topics.AllResults(), 1, func(msg mqtt.Message) error {
		// Every (re)subscribe replays each board's last retained result,
		// which was stored when it was first published.
		if msg.Retained {
			c.logger.Debug("skipping retained result", "topic", msg.Topic)
			return nil
		}
		return c.HandleResult(ctx, msg.Topic, msg.Payload)
	}); err != nil {
		return fmt.Errorf("subscribing to results: %w", err)
	}
	// Retained status is the node's current announcement and is always applied.
	if err := sub.Subscribe(topics.AllNodeStatus(), 1, func(msg mqtt.Message) error {
		return c.HandleStatus(ctx, msg.Topic, msg.Payload)
	}); err != nil {
		return fmt.Errorf("subscribing to node status: %w", err)
	}
	c.logger.Info("collector subscribed", "results", topics.AllResults(), "status", topics.AllNodeStatus())
	return nil
}

// HandleResult stores one published result. Malformed payloads are
// logged and returned as ErrMalformedResult.
func (c *Collector) HandleResult(ctx context.Context, topic string, payload []byte) error {
	r, err := inference.ParseResult(payload)
	if err == nil && (r.Board == "" || r.Model == "") {
		err = fmt.Errorf("board and model are required")
	}
	if err != nil {
		c.logger.Warn("dropping malformed result", "topic", topic, "error", err)
		return fmt.Errorf("%w: %w", ErrMalformedResult, err)
	}

	if boardFromTopic(topic) != r.Board {
		c.logger.Warn("result board does not match topic", "topic", topic, "board", r.Board)
	}

	now := c.now()
	if err := c.store.SaveResult(ctx, r, now); err != nil {
		c.logger.Error("storing result failed", "board", r.Board, "iteration", r.Iteration, "error", err)
		return err
	}

	if c.metrics != nil {
		at := now
		if r.Timestamp > 0 {
			at = time.UnixMilli(r.Timestamp)
		}
		c.metrics.WriteResult(r.Board, r.Model, r.Result, r.Iteration, r.Microseconds, at)
	}

	if c.exporter != nil {
		path, err := c.exporter.Add(r)
		if err != nil {
			c.logger.Error("exporting results failed", "board", r.Board, "error", err)
			return err
		}
		if path != "" {
			c.logger.Info("stored export", "file", path, "board", r.Board, "iteration", r.Iteration)
		}
	}
	return nil
}

// statusMessage is the payload of mqtt.StatusPayload.
type statusMessage struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
	Reason   string `json:"reason"`
}

// HandleStatus records a node's online/offline announcement.
func (c *Collector) HandleStatus(ctx context.Context, topic string, payload []byte) error {
	var msg statusMessage
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Status == "" {
		if err == nil {
			err = fmt.Errorf("status is required")
		}
		c.logger.Warn("dropping malformed node status", "topic", topic, "error", err)
		return fmt.Errorf("%w: %w", ErrMalformedStatus, err)
	}
	if msg.ClientID == "" {
		msg.ClientID = topic[strings.LastIndex(topic, "/")+1:]
	}

	st := NodeStatus{ClientID: msg.ClientID, Status: msg.Status, Reason: msg.Reason, UpdatedAt: c.now()}
	if err := c.store.SaveNodeStatus(ctx, st); err != nil {
		c.logger.Error("storing node status failed", "client_id", st.ClientID, "error", err)
		return err
	}
	if c.metrics != nil {
		c.metrics.WriteNodeStatus(st.ClientID, st.Status == "online", st.UpdatedAt)
	}
	c.logger.Info("node status", "client_id", st.ClientID, "status", st.Status, "reason", st.Reason)
	return nil
}

// Summaries returns per board and model aggregates of everything stored.
func (c *Collector) Summaries(ctx context.Context) ([]Summary, error) {
	return c.store.Summaries(ctx)
}

func boardFromTopic(topic string) string {
	return strings.TrimPrefix(topic, mqtt.TopicPrefix+"/")
}
