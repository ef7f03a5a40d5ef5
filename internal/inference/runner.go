package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/iotdemo-core/internal/infrastructure/mqtt"
)

// Runner defaults match the boards' loop.
const (
	DefaultIterations  = 10
	DefaultInterval    = 5 * time.Second
	DefaultSampleDelay = 100 * time.Millisecond
)

// Publisher sends a result payload. Satisfied by both broker clients.
type Publisher interface {
	Publish(topic string, qos byte, retain bool, payload []byte) (uint16, error)
}

// Gate reports whether publishing is currently possible.
type Gate interface {
	Ready() bool
}

// Clock supplies result timestamps. EpochMillis returns 0 when unknown.
type Clock interface {
	EpochMillis() int64
}

// Logger defines the logging interface for the runner.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Board     string
	Predictor Predictor
	Dataset   *Dataset

	// Publisher is optional. Without one the runner evaluates locally and
	// ignores the gate.
	Publisher Publisher

	// Gate is consulted before every batch when publishing. Nil means
	// always ready.
	Gate Gate

	// Clock stamps results. Nil leaves Timestamp empty.
	Clock Clock

	Logger Logger

	Iterations  int
	Interval    time.Duration
	SampleDelay time.Duration
	QoS         byte
	Retain      bool
}

// Runner evaluates batches of samples on a fixed interval.
type Runner struct {
	opts  RunnerOptions
	topic string
	sleep func(ctx context.Context, d time.Duration) bool

	mu sync.Mutex
	// iteration counts evaluated samples across batches.
	iteration int
}

// NewRunner creates a runner. Zero iterations and durations take the
// defaults; a nil dataset becomes the sine sweep.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Predictor == nil {
		return nil, ErrMissingPredictor
	}
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultIterations
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.SampleDelay < 0 {
		opts.SampleDelay = 0
	}
	if opts.Dataset == nil {
		opts.Dataset = SineDataset(opts.Iterations)
	}
	if len(opts.Dataset.Samples) == 0 {
		return nil, ErrEmptyDataset
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("inference: invalid qos %d", opts.QoS)
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	return &Runner{
		opts:  opts,
		topic: mqtt.Topics{}.BoardResults(opts.Board),
		sleep: sleepCtx,
	}, nil
}

// Topic returns the topic results are published to.
func (r *Runner) Topic() string {
	return r.topic
}

// Iteration returns the number of samples evaluated so far.
func (r *Runner) Iteration() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.iteration
}

// Run evaluates one batch immediately and then one per interval until ctx
// is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.opts.Logger.Info("inference runner started",
		"board", r.opts.Board,
		"model", r.opts.Predictor.Name(),
		"samples", len(r.opts.Dataset.Samples),
		"publishing", r.opts.Publisher != nil,
	)
	for {
		r.RunOnce(ctx)
		if !r.sleep(ctx, r.opts.Interval) {
			r.opts.Logger.Info("inference runner stopped", "iterations", r.Iteration())
			return nil
		}
	}
}

// RunOnce evaluates one batch if the gate allows it and reports how many
// samples were evaluated.
func (r *Runner) RunOnce(ctx context.Context) int {
	if r.opts.Publisher != nil && r.opts.Gate != nil && !r.opts.Gate.Ready() {
		r.opts.Logger.Info("network or broker not connected, waiting before running evaluation")
		return 0
	}

	n := 0
	for i := range r.opts.Iterations {
		if ctx.Err() != nil {
			break
		}
		r.evaluate()
		n++
		if i < r.opts.Iterations-1 && !r.sleep(ctx, r.opts.SampleDelay) {
			break
		}
	}
	return n
}

func (r *Runner) evaluate() {
	r.mu.Lock()
	sample := r.opts.Dataset.Samples[r.iteration%len(r.opts.Dataset.Samples)]
	r.iteration++
	iteration := r.iteration
	r.mu.Unlock()

	start := time.Now()
	predicted, err := r.opts.Predictor.Predict(sample.Input)
	elapsed := time.Since(start).Microseconds()
	if err != nil {
		r.opts.Logger.Warn("prediction failed", "iteration", iteration, "error", err)
		return
	}

	r.opts.Logger.Debug("prediction",
		"iteration", iteration,
		"expected", sample.Expected,
		"predicted", predicted,
		"microseconds", elapsed,
	)

	if r.opts.Publisher == nil {
		return
	}

	res := Result{
		Board:        r.opts.Board,
		Model:        r.opts.Predictor.Name(),
		Result:       predicted,
		Iteration:    iteration,
		Microseconds: elapsed,
	}
	if r.opts.Clock != nil {
		res.Timestamp = r.opts.Clock.EpochMillis()
	}

	payload, err := res.Marshal()
	if err != nil {
		r.opts.Logger.Warn("encoding result failed", "iteration", iteration, "error", err)
		return
	}

	id, err := r.opts.Publisher.Publish(r.topic, r.opts.QoS, r.opts.Retain, payload)
	if err != nil {
		r.opts.Logger.Warn("publishing result failed", "topic", r.topic, "iteration", iteration, "error", err)
		return
	}
	r.opts.Logger.Debug("result published", "topic", r.topic, "packet_id", id)
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
