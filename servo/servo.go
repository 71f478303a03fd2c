// Package servo positions hobby servos by ratio of their travel.
package servo

import (
	"turret-go/errcode"
	"turret-go/x/mathx"
)

// Standard hobby servo pulse range.
const (
	MinPulseUs = 1000
	MaxPulseUs = 2000
)

// Bounds is the pulse window the servo travels over, in microseconds.
type Bounds struct {
	Lower uint16
	Width uint16
}

// FullRange is the whole 1 ms..2 ms window.
func FullRange() Bounds { return Bounds{Lower: MinPulseUs, Width: MaxPulseUs - MinPulseUs} }

func (b Bounds) Upper() uint16 { return b.Lower + b.Width }

func (b Bounds) Mid() uint16 { return b.Lower + b.Width/2 }

// Scaled narrows b to num/den of its width, keeping the midpoint.
func (b Bounds) Scaled(num, den uint16) (Bounds, error) {
	if den == 0 || num > den {
		return Bounds{}, &errcode.E{C: errcode.InvalidParams, Op: "servo.scale", Msg: "ratio out of range"}
	}
	w := uint16(mathx.MulDiv(uint32(b.Width), uint32(num), uint32(den)))
	return Bounds{Lower: b.Mid() - w/2, Width: w}, nil
}

// Pulse maps num/den of travel to a pulse width.
func (b Bounds) Pulse(num, den uint16) (uint16, error) {
	if den == 0 || num > den {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "servo.pulse", Msg: "ratio out of range"}
	}
	return b.Lower + uint16(mathx.MulDiv(uint32(b.Width), uint32(num), uint32(den))), nil
}

// FromPot scales the full range by a potentiometer reading, never below
// a tenth of full travel.
func FromPot(raw, max uint16) (Bounds, error) {
	if max == 0 {
		return Bounds{}, &errcode.E{C: errcode.InvalidParams, Op: "servo.pot", Msg: "zero full scale"}
	}
	raw = mathx.Clamp(raw, max/10, max)
	return FullRange().Scaled(raw, max)
}

// Driver emits pulses. tinygo.org/x/drivers/servo.Servo satisfies it; a
// zero width stops the pulse train.
type Driver interface {
	SetMicroseconds(us int16)
}

// Servo positions one output within Bounds.
type Servo struct {
	drv     Driver
	b       Bounds
	pulse   uint16
	enabled bool
}

// New returns a disabled servo parked at mid travel.
func New(drv Driver, b Bounds) *Servo {
	return &Servo{drv: drv, b: b, pulse: b.Mid()}
}

func (s *Servo) Bounds() Bounds { return s.b }

// Pulse returns the last commanded pulse width.
func (s *Servo) Pulse() uint16 { return s.pulse }

// SetRatio moves to num/den of travel.
func (s *Servo) SetRatio(num, den uint16) error {
	p, err := s.b.Pulse(num, den)
	if err != nil {
		return err
	}
	s.pulse = p
	if s.enabled {
		s.drv.SetMicroseconds(int16(p))
	}
	return nil
}

// Enable starts pulsing at the last position.
func (s *Servo) Enable() {
	s.enabled = true
	s.drv.SetMicroseconds(int16(s.pulse))
}

func (s *Servo) Disable() {
	s.enabled = false
	s.drv.SetMicroseconds(0)
}
