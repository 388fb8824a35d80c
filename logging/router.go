package logging

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Sink receives events from the router on a dedicated worker goroutine.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// NamedSink pairs a sink with its registry name.
type NamedSink struct {
	Name string
	Sink Sink
}

// Router fans room events out to named sinks without ever blocking the
// simulation that produced them. An event is finished on the publishing
// goroutine (severity filter, timestamp, ambient fields) and handed to a
// bounded queue; each sink drains a private backlog on its own worker so one
// wedged sink never stalls the others or the rooms.
type Router struct {
	clock    Clock
	minSev   Severity
	ambient  map[string]any
	warnGap  time.Duration
	fallback *log.Logger

	queue   chan Event
	quit    chan struct{}
	closed  atomic.Bool
	workers []*sinkWorker
	wg      sync.WaitGroup

	accepted atomic.Uint64
	dropped  atomic.Uint64
	warnAt   atomic.Int64
}

// RouterStats reports router throughput since construction.
type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
	// SinkDrops counts events refused by a single sink's backlog, keyed by
	// sink name. Nil when every sink kept up.
	SinkDrops map[string]uint64
}

// NewRouter constructs a running router over the provided sinks. Nil sinks
// are skipped.
func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 512
	}
	warnGap := cfg.DropWarnInterval
	if warnGap <= 0 {
		warnGap = 5 * time.Second
	}
	r := &Router{
		clock:    clock,
		minSev:   cfg.MinimumSeverity,
		ambient:  cfg.CloneFields(),
		warnGap:  warnGap,
		fallback: log.New(os.Stderr, "[events] ", log.LstdFlags),
		queue:    make(chan Event, buffer),
		quit:     make(chan struct{}),
	}
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		r.workers = append(r.workers, &sinkWorker{
			name:     named.Name,
			sink:     named.Sink,
			backlog:  make(chan Event, sinkBacklog(buffer)),
			fallback: r.fallback,
		})
	}

	r.wg.Add(1)
	go r.dispatch()
	for _, w := range r.workers {
		r.wg.Add(1)
		go func(w *sinkWorker) {
			defer r.wg.Done()
			w.drain()
		}(w)
	}
	return r, nil
}

func sinkBacklog(buffer int) int {
	switch {
	case buffer < 32:
		return 32
	case buffer > 1024:
		return 1024
	}
	return buffer
}

// Publish satisfies Publisher. It never blocks: when the queue is saturated
// the event is dropped, counted, and reported to the fallback logger at most
// once per warn interval.
func (r *Router) Publish(_ context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	if event.Severity < r.minSev {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if len(r.ambient) > 0 {
		event = cloneEvent(event)
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(r.ambient))
		}
		for k, v := range r.ambient {
			if _, set := event.Extra[k]; !set {
				event.Extra[k] = v
			}
		}
	}
	select {
	case r.queue <- event:
		r.accepted.Add(1)
	default:
		r.dropped.Add(1)
		r.warnDrop(event)
	}
}

func (r *Router) warnDrop(event Event) {
	now := time.Now().UnixNano()
	last := r.warnAt.Load()
	if last != 0 && now-last < r.warnGap.Nanoseconds() {
		return
	}
	if r.warnAt.CompareAndSwap(last, now) {
		r.fallback.Printf("event queue full, dropping type=%s room=%s", event.Type, event.Room)
	}
}

// dispatch is the single consumer of the queue. On shutdown it flushes what
// is already queued before releasing the sink backlogs.
func (r *Router) dispatch() {
	defer func() {
		for _, w := range r.workers {
			close(w.backlog)
		}
		r.wg.Done()
	}()
	for {
		select {
		case <-r.quit:
			for {
				select {
				case event := <-r.queue:
					r.fanOut(event)
				default:
					return
				}
			}
		case event := <-r.queue:
			r.fanOut(event)
		}
	}
}

func (r *Router) fanOut(event Event) {
	for _, w := range r.workers {
		w.offer(event)
	}
}

// Close stops accepting events, flushes the queue and every sink backlog, and
// closes the sinks. Calling Close again is a no-op.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.quit)
	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, w := range r.workers {
		if err := w.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats returns throughput counters.
func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		EventsTotal:  r.accepted.Load(),
		DroppedTotal: r.dropped.Load(),
	}
	for _, w := range r.workers {
		if n := w.droppedTotal.Load(); n > 0 {
			if stats.SinkDrops == nil {
				stats.SinkDrops = make(map[string]uint64, len(r.workers))
			}
			stats.SinkDrops[w.name] = n
		}
	}
	return stats
}

// sinkWorker owns one sink. Events are cloned into a private backlog so sinks
// never observe each other's mutations, and write failures back the worker
// off without touching the dispatch loop.
type sinkWorker struct {
	name     string
	sink     Sink
	backlog  chan Event
	fallback *log.Logger

	droppedTotal atomic.Uint64
	strikes      int
}

func (w *sinkWorker) offer(event Event) {
	select {
	case w.backlog <- cloneEvent(event):
	default:
		w.droppedTotal.Add(1)
		w.fallback.Printf("sink %s backlog full, dropping type=%s room=%s", w.name, event.Type, event.Room)
	}
}

func (w *sinkWorker) drain() {
	for event := range w.backlog {
		if err := w.sink.Write(event); err != nil {
			w.strikes++
			w.backOff(err)
			continue
		}
		w.strikes = 0
	}
}

// backOff pauses between writes after a failure so a broken sink does not
// spin. The pause grows with consecutive failures, capped at ten seconds.
func (w *sinkWorker) backOff(err error) {
	pause := time.Duration(w.strikes) * 500 * time.Millisecond
	if pause > 10*time.Second {
		pause = 10 * time.Second
	}
	w.fallback.Printf("sink %s write failed: %v (pausing %s)", w.name, err, pause)
	time.Sleep(pause)
}

var _ Publisher = (*Router)(nil)
