package game

import (
	"time"

	"netroom/logging"
)

// Run drives a continuous room's fixed-interval loop until the stop channel
// closes. Event-reactive rooms return immediately: they have no autonomous
// loop by definition. The measured delta is clamped when the process stalls
// so one late wakeup cannot advance the simulation by an unbounded step, and
// ticks that blow their budget are reported.
func (r *Room) Run(stop <-chan struct{}) {
	if r == nil || !r.def.Continuous() {
		return
	}
	tickRate := r.def.TickRate
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	clock := r.clock
	last := clock.Now()
	budgetSeconds := 1.0 / float64(tickRate)
	catchup := r.catchup
	if catchup <= 1 {
		catchup = 2
	}
	maxDt := budgetSeconds * float64(catchup)
	budget := time.Second / time.Duration(tickRate)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := clock.Now()
			dt := now.Sub(last).Seconds()
			clamped := false
			if dt <= 0 {
				dt = budgetSeconds
			} else if dt > maxDt {
				dt = maxDt
				clamped = true
			}
			last = now

			start := clock.Now()
			r.Advance(dt)
			duration := clock.Now().Sub(start)

			if duration > budget || clamped {
				r.publish(logging.Event{
					Type:     logging.EventTickOverrun,
					Actor:    logging.ActorRef{ID: r.id, Kind: logging.ActorKindRoom},
					Severity: logging.SeverityWarn,
					Category: logging.CategorySystem,
					Payload: map[string]any{
						"durationMs": duration.Milliseconds(),
						"budgetMs":   budget.Milliseconds(),
						"clamped":    clamped,
					},
				})
			}
		}
	}
}
