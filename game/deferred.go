package game

import (
	"sync"

	"netroom/internal/telemetry"
	"netroom/logging"
)

const deferredDropMetricKey = "room_deferred_drop_total"

// Deferred is the gateway through which room hooks hand work off to slower
// external systems (platform calls, persistence) without blocking the
// simulation loop. Enqueue never blocks; the hosting layer decides where and
// when the queued calls actually run, and the core makes no assumption about
// their timing or success.
type Deferred struct {
	queue   chan func()
	logger  telemetry.Logger
	metrics telemetry.Metrics
	publish func(logging.Event)

	mu        sync.Mutex
	dropCount uint64
}

func newDeferred(capacity int, logger telemetry.Logger, metrics telemetry.Metrics, publish func(logging.Event)) *Deferred {
	if capacity <= 0 {
		capacity = 256
	}
	return &Deferred{
		queue:   make(chan func(), capacity),
		logger:  logger,
		metrics: metrics,
		publish: publish,
	}
}

// Enqueue stages a call for asynchronous execution. When the queue is
// saturated the call is dropped, counted, published as a structured event,
// and logged on a power-of-two cadence so a wedged consumer cannot flood the
// log.
func (d *Deferred) Enqueue(fn func()) bool {
	if d == nil || fn == nil {
		return false
	}
	select {
	case d.queue <- fn:
		return true
	default:
	}
	if d.metrics != nil {
		d.metrics.Add(deferredDropMetricKey, 1)
	}
	d.mu.Lock()
	d.dropCount++
	count := d.dropCount
	d.mu.Unlock()
	if d.publish != nil {
		d.publish(logging.Event{
			Type:     logging.EventDeferredDrop,
			Severity: logging.SeverityWarn,
			Category: logging.CategorySystem,
			Payload:  map[string]any{"dropped": count, "capacity": cap(d.queue)},
		})
	}
	if count&(count-1) == 0 && d.logger != nil {
		d.logger.Printf("[deferred] queue full, dropped call count=%d capacity=%d", count, cap(d.queue))
	}
	return false
}

// Run executes queued calls until the stop channel closes. Hosts run this on
// a worker goroutine per room.
func (d *Deferred) Run(stop <-chan struct{}) {
	if d == nil {
		return
	}
	for {
		select {
		case <-stop:
			return
		case fn := <-d.queue:
			fn()
		}
	}
}

// DrainSync executes every currently queued call inline and returns how many
// ran. The harness uses this to make deferred effects observable without a
// worker goroutine.
func (d *Deferred) DrainSync() int {
	if d == nil {
		return 0
	}
	ran := 0
	for {
		select {
		case fn := <-d.queue:
			fn()
			ran++
		default:
			return ran
		}
	}
}

// Pending reports the number of queued calls.
func (d *Deferred) Pending() int {
	if d == nil {
		return 0
	}
	return len(d.queue)
}
