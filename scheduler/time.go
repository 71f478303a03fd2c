// Package scheduler is the cooperative, single-threaded event core: a
// monotonic tick counter fed by a timer interrupt and a queue of events
// that are armed from anywhere (including interrupt handlers) and
// dispatched from the main loop.
package scheduler

import "turret-go/x/mathx"

// TickHz is the rate of the tick source.
const TickHz = 100

// Instant counts ticks since boot. It wraps after 2^32 ticks
// (about 497 days at 100 Hz); compare with Reached, never with <.
type Instant uint32

// Duration is a tick delta.
type Duration uint32

// Millis converts milliseconds to ticks, rounding up.
func Millis(ms uint32) Duration {
	return Duration(mathx.CeilDiv(uint64(ms)*TickHz, 1000))
}

// Seconds converts seconds to ticks.
func Seconds(s uint32) Duration { return Duration(s * TickHz) }

// Millis reports d in milliseconds.
func (d Duration) Millis() uint32 { return uint32(d) * (1000 / TickHz) }

func (t Instant) Add(d Duration) Instant { return t + Instant(d) }

// Sub returns t-u modulo the counter width.
func (t Instant) Sub(u Instant) Duration { return Duration(t - u) }

// Reached reports whether t is not later than now, across wraparound.
func (t Instant) Reached(now Instant) bool { return int32(now-t) >= 0 }

// Clock is anything that can report the current tick.
type Clock interface {
	Now() Instant
}
