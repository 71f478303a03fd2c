package scheduler

// Ticker is the monotonic tick counter shared between the tick interrupt
// and the main loop.
type Ticker struct {
	ticks uint32
}

// Tick advances the counter by one. Call it from the timer interrupt.
func (t *Ticker) Tick() {
	s := critEnter()
	t.ticks++
	critExit(s)
}

// Now returns the current instant.
func (t *Ticker) Now() Instant {
	s := critEnter()
	n := t.ticks
	critExit(s)
	return Instant(n)
}

