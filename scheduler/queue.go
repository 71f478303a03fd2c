package scheduler

import (
	"context"

	"turret-go/errcode"
)

// Queue dispatches bound events in bind order.
type Queue struct {
	clock   Clock
	idle    func()
	events  []*Event
	running bool
}

// NewQueue returns a queue reading time from clock. idle runs after
// every scan (wfi on hardware, a short sleep on the host); nil means none.
func NewQueue(clock Clock, idle func()) *Queue {
	return &Queue{clock: clock, idle: idle}
}

// Bind registers e. All binding must happen before Run.
func (q *Queue) Bind(e *Event) error {
	if e == nil || e.fn == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "scheduler.bind", Msg: "nil event"}
	}
	if q.running {
		return &errcode.E{C: errcode.Busy, Op: "scheduler.bind", Msg: e.name}
	}
	if e.bound {
		return &errcode.E{C: errcode.InvalidParams, Op: "scheduler.bind", Msg: "already bound: " + e.name}
	}
	e.bound = true
	q.events = append(q.events, e)
	return nil
}

func (q *Queue) Len() int { return len(q.events) }

// RunOnce scans every bound event once against now and runs the due
// ones. The first callback error ends the scan and is returned.
func (q *Queue) RunOnce(now Instant) error {
	for _, e := range q.events {
		if !e.take(now) {
			continue
		}
		if err := e.fn(); err != nil {
			return &errcode.E{C: errcode.Of(err), Op: "event " + e.name, Err: err}
		}
	}
	return nil
}

// Run scans until ctx is done or a callback fails. A callback error is
// fatal: scheduling does not resume.
func (q *Queue) Run(ctx context.Context) error {
	q.running = true
	defer func() { q.running = false }()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := q.RunOnce(q.clock.Now()); err != nil {
			println("[sched] fatal:", err.Error())
			return err
		}
		if q.idle != nil {
			q.idle()
		}
	}
}
