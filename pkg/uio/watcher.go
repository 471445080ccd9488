package uio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/panjf2000/ants/v2"

	"github.com/srediag/plugin-mmio/internal/logger"
)

var (
	// ErrWatcherStarted is returned by Start on a running watcher.
	ErrWatcherStarted = errors.New("irq watcher already started")
	// ErrWatcherStopped is returned once the watcher has been stopped.
	ErrWatcherStopped = errors.New("irq watcher stopped")
	// ErrIRQTimeout is returned by Next when no event arrived in time.
	ErrIRQTimeout = errors.New("timed out waiting for irq")
)

// IRQSource is implemented by Device.
type IRQSource interface {
	IRQOn() error
	WaitIRQ(timeout time.Duration) (uint32, bool, error)
}

// IRQEvent is one delivered interrupt.
type IRQEvent struct {
	// Count is the driver's running interrupt count.
	Count uint32
	Time  time.Time
}

// IRQWatcher re-arms and waits for interrupts in the background. Events are
// queued for Next and fanned out to subscribed handlers on a worker pool.
type IRQWatcher struct {
	src      IRQSource
	events   *queue.Queue
	pool     *ants.Pool
	backlog  int64
	interval time.Duration
	log      *logger.Logger

	mu       sync.RWMutex
	handlers []func(IRQEvent)
	cancel   context.CancelFunc
	done     chan struct{}
	stopped  bool
	err      error
}

// NewIRQWatcher creates a stopped watcher for src.
func NewIRQWatcher(src IRQSource, cfg *Config) (*IRQWatcher, error) {
	if err := VerifyConfig(cfg); err != nil {
		return nil, err
	}
	pool, err := ants.NewPool(cfg.IRQWorkers)
	if err != nil {
		return nil, err
	}
	return &IRQWatcher{
		src:      src,
		events:   queue.New(cfg.IRQQueueHint),
		pool:     pool,
		backlog:  cfg.IRQQueueHint,
		interval: cfg.IRQPollInterval,
		log:      logger.New("irq", cfg.LogOutput),
	}, nil
}

// Subscribe registers h to be called for every event. Handlers run
// concurrently on the watcher's pool.
func (w *IRQWatcher) Subscribe(h func(IRQEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Start launches the wait loop. It runs until ctx is done or Stop is called.
func (w *IRQWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrWatcherStopped
	}
	if w.done != nil {
		return ErrWatcherStarted
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx, w.done)
	return nil
}

// loop closes the event queue on exit so that Next does not outlive it.
func (w *IRQWatcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer w.events.Dispose()
	for ctx.Err() == nil {
		if err := w.src.IRQOn(); err != nil {
			w.fail(fmt.Errorf("irq on: %w", err))
			return
		}
		count, ok, err := w.src.WaitIRQ(w.interval)
		if err != nil {
			w.fail(fmt.Errorf("wait irq: %w", err))
			return
		}
		if !ok {
			continue
		}
		w.deliver(IRQEvent{Count: count, Time: time.Now()})
	}
}

func (w *IRQWatcher) fail(err error) {
	w.log.Errorf("%v", err)
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
}

// Err returns the source error that ended the wait loop, if any.
func (w *IRQWatcher) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.err
}

func (w *IRQWatcher) deliver(ev IRQEvent) {
	for w.events.Len() >= w.backlog {
		if _, err := w.events.Poll(1, time.Millisecond); err != nil {
			break
		}
		w.log.Warnf("irq backlog full, dropped oldest event")
	}
	if err := w.events.Put(ev); err != nil {
		return
	}

	w.mu.RLock()
	handlers := w.handlers
	w.mu.RUnlock()
	for _, h := range handlers {
		h := h
		if err := w.pool.Submit(func() { h(ev) }); err != nil {
			w.log.Warnf("irq handler submit: %v", err)
		}
	}
}

// Next returns the oldest undelivered event, waiting up to timeout. A zero
// timeout waits until an event arrives or the wait loop ends. Once the loop
// has ended Next returns ErrWatcherStopped, wrapping the source error when
// one ended it.
func (w *IRQWatcher) Next(timeout time.Duration) (IRQEvent, error) {
	items, err := w.events.Poll(1, timeout)
	switch {
	case errors.Is(err, queue.ErrTimeout):
		return IRQEvent{}, ErrIRQTimeout
	case errors.Is(err, queue.ErrDisposed):
		if srcErr := w.Err(); srcErr != nil {
			return IRQEvent{}, fmt.Errorf("%w: %w", ErrWatcherStopped, srcErr)
		}
		return IRQEvent{}, ErrWatcherStopped
	case err != nil:
		return IRQEvent{}, err
	}
	return items[0].(IRQEvent), nil
}

// Stop ends the wait loop, waits for it to return and releases the pool.
// Pending events are discarded.
func (w *IRQWatcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	w.events.Dispose()
	w.pool.Release()
}
