package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultAsyncCapacity is the queue depth used when AsyncOptions.Capacity is 0.
const DefaultAsyncCapacity = 64

// AsyncOptions configures an Async sink.
type AsyncOptions struct {
	// Name labels logs and metrics.
	Name string
	// Capacity is the number of frames buffered before the oldest is dropped.
	Capacity int
	// Paired must be set when the sink is registered with control frames, so
	// a control frame and its payload are queued and dropped together.
	Paired bool

	Logger        *slog.Logger
	MeterProvider metric.MeterProvider
}

// AsyncStats reports Async activity.
type AsyncStats struct {
	Written uint64
	Dropped uint64
	Queued  int
}

// Async forwards writes to another writer on its own goroutine. When the
// inner writer falls behind, the oldest queued frame is dropped so the
// acquisition loop never waits. The first inner write error is returned from
// every later Write and from Close.
type Async struct {
	inner io.Writer
	opts  AsyncOptions
	log   *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   [][][]byte
	pending []byte
	closed  bool
	err     error
	done    chan struct{}

	written atomic.Uint64
	dropped atomic.Uint64

	drops metric.Int64Counter
	attrs metric.MeasurementOption
}

// NewAsync starts the forwarding goroutine. Close must be called to stop it.
func NewAsync(inner io.Writer, opts AsyncOptions) (*Async, error) {
	if inner == nil {
		return nil, fmt.Errorf("sink: async needs an inner writer")
	}
	if opts.Capacity < 0 {
		return nil, fmt.Errorf("sink: negative async capacity %d", opts.Capacity)
	}
	if opts.Capacity == 0 {
		opts.Capacity = DefaultAsyncCapacity
	}
	if opts.Name == "" {
		opts.Name = "async"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = otel.GetMeterProvider()
	}

	drops, err := opts.MeterProvider.Meter("github.com/e7canasta/orion-thermal-capture/sink").
		Int64Counter("sink.async.drops", metric.WithDescription("Frames dropped by an async sink"))
	if err != nil {
		return nil, fmt.Errorf("sink: drops counter: %w", err)
	}

	a := &Async{
		inner: inner,
		opts:  opts,
		log:   opts.Logger.With("sink", opts.Name),
		done:  make(chan struct{}),
		drops: drops,
		attrs: metric.WithAttributes(attribute.String("sink", opts.Name)),
	}
	a.cond = sync.NewCond(&a.mu)

	go a.run()
	return a, nil
}

// Write implements io.Writer. It never blocks on the inner writer.
func (a *Async) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.err != nil {
		return 0, a.err
	}
	if a.closed {
		return 0, io.ErrClosedPipe
	}

	if a.opts.Paired && a.pending == nil {
		a.pending = p
		return len(p), nil
	}
	item := [][]byte{p}
	if a.opts.Paired {
		item = [][]byte{a.pending, p}
		a.pending = nil
	}

	if len(a.queue) >= a.opts.Capacity {
		a.queue[0] = nil
		a.queue = a.queue[1:]
		a.dropped.Add(1)
		a.drops.Add(context.Background(), 1, a.attrs)
		a.log.Debug("sink: dropping oldest frame, queue full", "capacity", a.opts.Capacity)
	}
	a.queue = append(a.queue, item)
	a.cond.Signal()
	return len(p), nil
}

func (a *Async) run() {
	defer close(a.done)

	for {
		a.mu.Lock()
		for len(a.queue) == 0 && !a.closed {
			a.cond.Wait()
		}
		if len(a.queue) == 0 {
			a.mu.Unlock()
			return
		}
		item := a.queue[0]
		a.queue[0] = nil
		a.queue = a.queue[1:]
		a.mu.Unlock()

		for _, b := range item {
			if _, err := a.inner.Write(b); err != nil {
				a.log.Error("sink: async write failed", "error", err)
				a.mu.Lock()
				a.err = fmt.Errorf("sink %s: %w", a.opts.Name, err)
				a.queue = nil
				a.mu.Unlock()
				return
			}
		}
		a.written.Add(1)
	}
}

// Stats returns current counters.
func (a *Async) Stats() AsyncStats {
	a.mu.Lock()
	queued := len(a.queue)
	a.mu.Unlock()

	return AsyncStats{
		Written: a.written.Load(),
		Dropped: a.dropped.Load(),
		Queued:  queued,
	}
}

// Close flushes queued frames to the inner writer and stops the goroutine.
// It does not close the inner writer.
func (a *Async) Close() error {
	a.mu.Lock()
	a.closed = true
	a.cond.Broadcast()
	a.mu.Unlock()

	<-a.done

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}
