package analytics

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

// Sink receives events from the dispatcher goroutine.
type Sink interface {
	Name() string
	Write(ctx context.Context, e Event) error
}

// DropObserver is told whenever an event is discarded.
type DropObserver interface {
	ObserveDropped()
}

// Dispatcher buffers events and fans them out to sinks on a single
// goroutine. Record never blocks: a full buffer drops the event.
type Dispatcher struct {
	events  chan Event
	sinks   []Sink
	logger  *logging.Logger
	drops   DropObserver
	dropped atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

// NewDispatcher creates a dispatcher with the given buffer size.
func NewDispatcher(buffer int, logger *logging.Logger, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		events: make(chan Event, buffer),
		sinks:  sinks,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// WithDropObserver sets the overflow observer and returns d.
func (d *Dispatcher) WithDropObserver(o DropObserver) *Dispatcher {
	d.drops = o
	return d
}

// Record enqueues e or drops it.
func (d *Dispatcher) Record(e Event) {
	select {
	case <-d.done:
		d.drop(e)
		return
	default:
	}
	select {
	case d.events <- e:
	default:
		d.drop(e)
	}
}

func (d *Dispatcher) drop(e Event) {
	d.dropped.Add(1)
	if d.drops != nil {
		d.drops.ObserveDropped()
	}
	d.logger.Debug("analytics: event dropped", "kind", e.Kind, "session_id", e.SessionID)
}

// Dropped returns how many events were discarded.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run delivers events until ctx is cancelled, then drains what is already
// buffered. Sink errors are logged and never retried.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.closeOnce.Do(func() { close(d.done) })
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case e := <-d.events:
			d.deliver(ctx, e)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case e := <-d.events:
			d.deliver(context.Background(), e)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e Event) {
	for _, s := range d.sinks {
		if err := s.Write(ctx, e); err != nil {
			d.logger.Warn("analytics: sink write failed", "sink", s.Name(), "kind", e.Kind, "error", err)
		}
	}
}
