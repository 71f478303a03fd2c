//go:build rp2040

package platform

import (
	"device/arm"
	"machine"
	"math/rand"
	"time"

	tgservo "tinygo.org/x/drivers/servo"

	"turret-go/config"
	"turret-go/drivers/vl53l1x"
	"turret-go/errcode"
	"turret-go/scheduler"
	"turret-go/servo"
	"turret-go/simplefs"
	"turret-go/turret"
)

type adcPot struct{ adc machine.ADC }

// Read returns the 16-bit scaled ADC value.
func (p adcPot) Read() (uint16, uint16, error) { return p.adc.Get(), 0xFFFF, nil }

// Open configures the Pico peripherals and returns the board.
func Open(cfg config.Config) (turret.Board, *Platform, error) {
	var b turret.Board

	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       SensorSDA,
		SCL:       SensorSCL,
	}); err != nil {
		return b, nil, errcode.Wrap(errcode.Bus, "i2c0", err)
	}
	sensor := vl53l1x.New(i2c)
	if err := waitBooted(sensor); err != nil {
		return b, nil, err
	}
	if err := sensor.Init(cfg.UseSensor2V8); err != nil {
		return b, nil, err
	}

	machine.InitADC()
	pot := machine.ADC{Pin: RangePot}
	pot.Configure(machine.ADCConfig{})

	sweepBounds, err := servo.FromPot(pot.Get(), 0xFFFF)
	if err != nil {
		return b, nil, err
	}
	sweep, err := newServo(SweepServo, sweepBounds)
	if err != nil {
		return b, nil, err
	}
	aim, err := newServo(AimServo, servo.FullRange())
	if err != nil {
		return b, nil, err
	}

	LaserPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	LaserPin.Low()
	LEDPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	LEDPin.Low()
	PickupPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	out, err := newPWMAudio(AudioPin, AudioEnable)
	if err != nil {
		return b, nil, err
	}

	clips, err := simplefs.Mount(machine.Flash)
	if err != nil {
		println("[platform] no clip store:", err.Error())
		return b, nil, err
	}
	println("[platform] clips:", clips.NumFiles())

	t := &scheduler.Ticker{}
	startTicker(t)

	b = turret.Board{
		Clock:  t,
		Sensor: sensor,
		Sweep:  sweep,
		Aim:    aim,
		Laser:  LaserPin,
		LED:    LEDPin,
		Pickup: PickupPin, // pulled up, open (high) when lifted
		Pot:    adcPot{pot},
		Audio:  out,
		Clips:  clips,
		Rand:   rand.New(rand.NewSource(seed())),
		Idle:   func() { arm.Asm("wfi") },
	}
	return b, &Platform{Ticker: t, Close: func() error { return nil }}, nil
}

func newServo(pin machine.Pin, b servo.Bounds) (*servo.Servo, error) {
	drv, err := tgservo.New(machine.PWM7, pin)
	if err != nil {
		return nil, err
	}
	s := servo.New(&drv, b)
	s.Enable()
	return s, nil
}

// seed mixes the hardware RNG with ADC noise from a floating input.
func seed() int64 {
	s, err := machine.GetRNG()
	if err != nil {
		println("[platform] rng:", err.Error())
	}
	noise := machine.ADC{Pin: NoisePin}
	noise.Configure(machine.ADCConfig{})
	for i := 0; i < 32; i++ {
		s = s<<1 ^ uint32(noise.Get()&1) ^ s>>31
	}
	return int64(s)
}

// Halt stops after a fatal error. The watchdog, if armed, resets the chip.
func Halt() {
	for {
		arm.Asm("wfi")
	}
}

// Button waits for a press on the board button.
func Button() {
	ButtonPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	for ButtonPin.Get() {
		time.Sleep(10 * time.Millisecond)
	}
	for !ButtonPin.Get() {
		time.Sleep(10 * time.Millisecond)
	}
}
