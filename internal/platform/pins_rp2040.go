//go:build rp2040

package platform

import "machine"

// Pico wiring.
const (
	SensorSDA   = machine.GP4
	SensorSCL   = machine.GP5
	SweepServo  = machine.GP14 // PWM7 A
	AimServo    = machine.GP15 // PWM7 B
	LaserPin    = machine.GP16
	PickupPin   = machine.GP17 // switch to ground, open when lifted
	AudioPin    = machine.GP18 // PWM1 A, RC filtered into the amplifier
	AudioEnable = machine.GP19
	ButtonPin   = machine.GP20 // to ground
	RangePot    = machine.ADC0
	NoisePin    = machine.ADC1 // floating, seeds the clip picker
	LEDPin      = machine.LED
)
