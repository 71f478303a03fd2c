package scheduler

type disposition uint8

const (
	idle disposition = iota
	pendingNow
	pendingAt
)

func (d disposition) String() string {
	switch d {
	case pendingNow:
		return "pending_now"
	case pendingAt:
		return "pending_at"
	default:
		return "idle"
	}
}

// Event is one schedulable unit of work. Its disposition and period are
// guarded by the critical section, so Call, CallAt, Cancel and SetPeriod
// are safe from interrupt handlers. The callback only ever runs on the
// main loop.
type Event struct {
	name string
	fn   func() error

	// Guarded.
	state    disposition
	at       Instant
	period   Duration
	periodic bool

	// Only touched by Queue.Bind.
	bound bool
}

// NewEvent returns an idle event bound to fn.
func NewEvent(name string, fn func() error) *Event {
	return &Event{name: name, fn: fn}
}

func (e *Event) Name() string { return e.name }

// Call posts the event for dispatch on the next scan.
func (e *Event) Call() {
	s := critEnter()
	e.state = pendingNow
	critExit(s)
}

// CallAt posts the event for dispatch once t is reached.
func (e *Event) CallAt(t Instant) {
	s := critEnter()
	e.state = pendingAt
	e.at = t
	critExit(s)
}

// Cancel disarms the event. A callback already running is not affected.
func (e *Event) Cancel() {
	s := critEnter()
	e.state = idle
	critExit(s)
}

// SetPeriod makes the event re-arm itself p ticks after each deadline.
func (e *Event) SetPeriod(p Duration) {
	s := critEnter()
	e.period = p
	e.periodic = true
	critExit(s)
}

func (e *Event) ClearPeriod() {
	s := critEnter()
	e.period = 0
	e.periodic = false
	critExit(s)
}

// Pending reports whether the event is armed.
func (e *Event) Pending() bool {
	s := critEnter()
	p := e.state != idle
	critExit(s)
	return p
}

// Deadline returns the armed deadline, if the event is pending at an instant.
func (e *Event) Deadline() (Instant, bool) {
	s := critEnter()
	at, ok := e.at, e.state == pendingAt
	critExit(s)
	return at, ok
}

// take decides due-ness and performs the post-dispatch transition in one
// critical section.
func (e *Event) take(now Instant) bool {
	s := critEnter()
	due := false
	eventTime := now
	switch e.state {
	case pendingNow:
		due = true
	case pendingAt:
		due = e.at.Reached(now)
		eventTime = e.at
	}
	if due {
		if e.periodic {
			e.state = pendingAt
			e.at = eventTime.Add(e.period)
		} else {
			e.state = idle
		}
	}
	critExit(s)
	return due
}
