// Package notifier delivers funnel messages to Telegram asynchronously.
package notifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("notifier: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("notifier: queue full")
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize int
	Workers   int
	// MaxDuration bounds the time spent on a single job, retries included.
	MaxDuration time.Duration
}

type job struct {
	ctx    context.Context
	chatID int64
	action string
	run    func(ctx context.Context) error
}

// Dispatcher executes outbound calls on a fixed set of workers. Jobs for
// the same chat always land on the same worker, so they run in FIFO order.
type Dispatcher struct {
	opts   Options
	shards []chan job
	log    *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	pending atomic.Int64
	errs    atomic.Uint64
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(opts Options, log *slog.Logger) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	perShard := opts.QueueSize / opts.Workers
	if perShard < 1 {
		perShard = 1
	}

	d := &Dispatcher{
		opts:   opts,
		shards: make([]chan job, opts.Workers),
		log:    log.With(slog.String("component", "notifier")),
	}

	d.wg.Add(opts.Workers)
	for i := range d.shards {
		d.shards[i] = make(chan job, perShard)
		go d.worker(d.shards[i])
	}

	return d
}

// Enqueue schedules run for asynchronous execution. It never blocks.
func (d *Dispatcher) Enqueue(ctx context.Context, chatID int64, action string, run func(ctx context.Context) error) error {
	if run == nil {
		return errors.New("notifier: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrQueueClosed
	}

	j := job{
		ctx:    context.WithoutCancel(ctx),
		chatID: chatID,
		action: action,
		run:    run,
	}

	d.pending.Add(1)
	select {
	case d.shardFor(chatID) <- j:
		return nil
	default:
		d.pending.Add(-1)
		return ErrQueueFull
	}
}

// Pending returns the number of accepted jobs not yet finished.
func (d *Dispatcher) Pending() int64 {
	return d.pending.Load()
}

// ErrorCount returns the number of failed jobs.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Closed reports whether Close was called.
func (d *Dispatcher) Closed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// Close stops accepting jobs and waits until queued jobs are processed or ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, shard := range d.shards {
			close(shard)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) shardFor(chatID int64) chan job {
	idx := chatID % int64(len(d.shards))
	if idx < 0 {
		idx = -idx
	}
	return d.shards[idx]
}

func (d *Dispatcher) worker(jobs <-chan job) {
	defer d.wg.Done()
	for j := range jobs {
		d.handleJob(j)
		d.pending.Add(-1)
	}
}

func (d *Dispatcher) handleJob(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	err := j.run(ctx)
	elapsed := time.Since(start)

	if err != nil {
		d.errs.Add(1)
		d.log.Error("send failed",
			slog.String("action", j.action),
			slog.Int64("chat_id", j.chatID),
			slog.Duration("elapsed", elapsed),
			slog.String("error", sanitizeErrorMessage(err)),
		)
		return
	}

	d.log.Debug("send succeeded",
		slog.String("action", j.action),
		slog.Int64("chat_id", j.chatID),
		slog.Duration("elapsed", elapsed),
	)
}
