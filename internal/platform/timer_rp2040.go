//go:build rp2040

package platform

import (
	"device/rp"
	"runtime/interrupt"

	"turret-go/scheduler"
)

// The runtime owns alarm 0; alarm 1 paces audio samples and alarm 2
// drives the scheduler tick.
const (
	audioAlarm = 1
	tickAlarm  = 2

	tickPeriodUs = 1000000 / scheduler.TickHz
)

var (
	tickSource *scheduler.Ticker
	tickNext   uint32
)

func timerNow() uint32 { return rp.TIMER.TIMERAWL.Get() }

func startTicker(t *scheduler.Ticker) {
	tickSource = t
	irq := interrupt.New(rp.IRQ_TIMER_IRQ_2, tickISR)
	rp.TIMER.INTE.SetBits(1 << tickAlarm)
	tickNext = timerNow() + tickPeriodUs
	rp.TIMER.ALARM2.Set(tickNext)
	irq.Enable()
}

func tickISR(interrupt.Interrupt) {
	rp.TIMER.INTR.Set(1 << tickAlarm)
	tickNext += tickPeriodUs
	rp.TIMER.ALARM2.Set(tickNext)
	tickSource.Tick()
}
