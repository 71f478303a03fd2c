//go:build rp2040

package platform

import (
	"device/rp"
	"machine"
	"runtime/interrupt"

	"github.com/sparques/pwm"

	"turret-go/errcode"
)

// pwmAudio plays u8 samples as PWM duty, one sample per timer alarm.
type pwmAudio struct {
	pg     pwm.Group
	ch     uint8
	top    uint32
	enable machine.Pin
	done   func()

	// Guarded by interrupts being disabled.
	cur, next []byte
	pos       int
	running   bool

	periodUs uint32
	rem      uint32
	frac     uint32
	rate     uint32
	at       uint32
}

var audioOut *pwmAudio

func newPWMAudio(pin, enable machine.Pin) (*pwmAudio, error) {
	pin.Configure(machine.PinConfig{Mode: machine.PinPWM})
	enable.Configure(machine.PinConfig{Mode: machine.PinOutput})
	enable.Low()

	pg := pwm.Get(pin)
	// carrier well above the audio band
	pg.Configure(machine.PWMConfig{Period: 8000})
	ch, err := pg.Channel(pin)
	if err != nil {
		return nil, err
	}
	a := &pwmAudio{pg: pg, ch: ch, top: pg.Top(), enable: enable}
	pg.Set(ch, 0)

	audioOut = a
	irq := interrupt.New(rp.IRQ_TIMER_IRQ_1, audioISR)
	irq.Enable()
	return a, nil
}

func (a *pwmAudio) Start(rateHz uint32, done func()) error {
	if rateHz == 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "audio.start", Msg: "rate"}
	}
	s := interrupt.Disable()
	a.done = done
	a.cur, a.next, a.pos = nil, nil, 0
	a.rate = rateHz
	a.periodUs = 1000000 / rateHz
	a.rem = 1000000 % rateHz
	a.frac = 0
	a.running = true
	a.pg.Set(a.ch, a.top/2)
	a.at = timerNow() + a.periodUs
	rp.TIMER.ALARM1.Set(a.at)
	rp.TIMER.INTE.SetBits(1 << audioAlarm)
	interrupt.Restore(s)

	a.enable.High()
	return nil
}

func (a *pwmAudio) Play(buf []byte) error {
	s := interrupt.Disable()
	defer interrupt.Restore(s)
	switch {
	case !a.running:
		return errcode.Uninitialized
	case a.cur == nil:
		a.cur, a.pos = buf, 0
	case a.next == nil:
		a.next = buf
	default:
		return errcode.Busy
	}
	return nil
}

func (a *pwmAudio) Stop() error {
	s := interrupt.Disable()
	rp.TIMER.INTE.ClearBits(1 << audioAlarm)
	rp.TIMER.INTR.Set(1 << audioAlarm)
	a.running = false
	a.cur, a.next = nil, nil
	a.pg.Set(a.ch, 0)
	interrupt.Restore(s)

	a.enable.Low()
	return nil
}

func audioISR(interrupt.Interrupt) {
	rp.TIMER.INTR.Set(1 << audioAlarm)
	a := audioOut
	if !a.running {
		return
	}

	a.at += a.periodUs
	a.frac += a.rem
	if a.frac >= a.rate {
		a.frac -= a.rate
		a.at++
	}
	rp.TIMER.ALARM1.Set(a.at)

	if a.cur == nil {
		return
	}
	a.pg.Set(a.ch, uint32(a.cur[a.pos])*a.top/255)
	a.pos++
	if a.pos == len(a.cur) {
		a.cur, a.next, a.pos = a.next, nil, 0
		a.done()
	}
}
