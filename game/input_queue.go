package game

import (
	"sync"

	"netroom/entity"
	"netroom/internal/telemetry"
)

const (
	inputQueueOccupancyMetricKey = "room_input_queue_occupancy"
	inputQueueOverflowMetricKey  = "room_input_queue_overflow_total"
)

// stagedInput is one actor intent waiting for the next tick.
type stagedInput struct {
	ActorID string
	Input   entity.Input
}

// inputQueue stores staged inputs in a fixed-size ring. Transport goroutines
// produce concurrently; the room's tick loop is the single consumer, which is
// how a room stays single-threaded relative to itself.
type inputQueue struct {
	mu      sync.Mutex
	data    []stagedInput
	head    int
	tail    int
	count   int
	metrics telemetry.Metrics
}

func newInputQueue(capacity int, metrics telemetry.Metrics) *inputQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &inputQueue{
		data:    make([]stagedInput, capacity),
		metrics: metrics,
	}
}

// Push stages an input, returning false when the ring is full.
func (q *inputQueue) Push(in stagedInput) bool {
	if q == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.data) {
		if q.metrics != nil {
			q.metrics.Add(inputQueueOverflowMetricKey, 1)
		}
		return false
	}
	q.data[q.tail] = in
	q.tail = (q.tail + 1) % len(q.data)
	q.count++
	q.storeOccupancyLocked()
	return true
}

// Drain returns all staged inputs in FIFO order and clears the ring.
func (q *inputQueue) Drain() []stagedInput {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	staged := make([]stagedInput, q.count)
	for i := 0; i < q.count; i++ {
		idx := (q.head + i) % len(q.data)
		staged[i] = q.data[idx]
	}
	q.head = 0
	q.tail = 0
	q.count = 0
	q.storeOccupancyLocked()
	return staged
}

// Len reports the number of staged inputs.
func (q *inputQueue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *inputQueue) storeOccupancyLocked() {
	if q.metrics == nil {
		return
	}
	q.metrics.Store(inputQueueOccupancyMetricKey, uint64(q.count))
}
