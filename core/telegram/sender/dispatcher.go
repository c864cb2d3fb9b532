// Package sender runs fire-and-forget Telegram calls on a small worker pool.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the job could not be queued without blocking.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the dispatcher. Zero values pick the defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on one job, retries included.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes loading-animation frames and other calls whose result
// the conversation does not wait for. Replies that change what the user sees
// next are sent synchronously by the transport.
type Dispatcher struct {
	opts   Options
	policy netutil.Policy
	jobs   chan job

	mu     sync.RWMutex // guards closed against Enqueue racing Close
	closed bool
	once   sync.Once
	wg     sync.WaitGroup
	failed atomic.Uint64
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts:   opts,
		policy: netutil.Policy{Attempts: opts.MaxRetries + 1, Backoff: opts.RetryBackoff},
		jobs:   make(chan job, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.process(j)
			}
		}()
	}
	return d
}

// Enqueue schedules run. It never blocks; run must be safe to repeat.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of jobs waiting for a worker.
func (d *Dispatcher) Pending() int { return len(d.jobs) }

// ErrorCount returns the number of jobs that finally failed.
func (d *Dispatcher) ErrorCount() uint64 { return d.failed.Load() }

// Close stops intake and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) process(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attrs := jobAttrs(j)
	n, err := d.policy.Do(ctx, j.run, func(attempt int, delay time.Duration) {
		logger.Debug(j.ctx, logger.CompSender, "send.retry.backoff",
			append(attrs, slog.Int("attempt", attempt), slog.Duration("backoff", delay))...)
	})
	attrs = append(attrs,
		slog.Int("attempts", n),
		slog.Duration("elapsed", logger.RoundMS(time.Since(start))),
	)
	if err != nil {
		d.failed.Add(1)
		logger.Error(j.ctx, logger.CompSender, "send.fail", append(attrs,
			slog.String("err", netutil.Redact(err)),
			slog.String("err_code", netutil.Classify(err)),
		)...)
		return
	}
	if n > 1 {
		logger.Info(j.ctx, logger.CompSender, "send.retry.success", attrs...)
		return
	}
	logger.Debug(j.ctx, logger.CompSender, "send.success", attrs...)
}

// jobAttrs names the call; request identifiers come from the context.
func jobAttrs(j job) []slog.Attr {
	attrs := make([]slog.Attr, 0, 6)
	attrs = append(attrs, slog.String("op", j.action))
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}
