//go:build !rp2040 && !rp2350

package platform

import (
	"bytes"
	"context"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"turret-go/audio"
	"turret-go/config"
	"turret-go/ranging"
	"turret-go/scheduler"
	"turret-go/servo"
	"turret-go/simplefs"
	"turret-go/turret"
	"turret-go/x/timex"
)

// SimOptions describe the simulated turret.
type SimOptions struct {
	Steps   uint16 // 0 uses the configured default
	Wall    uint16 // background distance in mm
	Noise   int    // +/- mm of uniform sensor noise
	Seed    int64
	Objects []Object

	ClipImage string // SimpleFS image; empty generates tones
	Sound     bool   // play through the sound card

	// A non-empty I2CBus ranges with a real VL53L1X instead of the scene.
	I2CBus string

	// A non-empty GPIOChip drives real laser and LED lines and reads the
	// pick-up switch from it.
	GPIOChip   string
	LaserLine  int
	LEDLine    int
	PickupLine int
}

func DefaultSimOptions() SimOptions {
	return SimOptions{
		Wall:  1200,
		Noise: 3,
		Seed:  time.Now().UnixNano(),
		Objects: []Object{
			{From: 18, To: 28, Distance: 600, Appear: 500},
		},
	}
}

// OpenSim builds a host board around a simulated scene.
func OpenSim(cfg config.Config, o SimOptions) (turret.Board, *Platform, error) {
	var b turret.Board
	var closers []func() error
	closeAll := func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	clips, closeClips, err := openClips(o.ClipImage)
	if err != nil {
		return b, nil, err
	}
	closers = append(closers, closeClips)

	sweep := newSimServo("sweep", servo.FullRange())
	aim := newSimServo("aim", servo.FullRange())

	var sensor ranging.Sensor
	if o.I2CBus != "" {
		d, closeBus, err := OpenI2CSensor(o.I2CBus, cfg.UseSensor2V8)
		if err != nil {
			closeAll()
			return b, nil, err
		}
		closers = append(closers, closeBus)
		sensor = d
	} else {
		sensor = NewScene(sweep.position, o.Wall, o.Noise, o.Seed, o.Objects...)
	}

	var laser, led interface{ Set(bool) } = &logPin{name: "laser"}, &logPin{name: "led"}
	var pickup turret.Switch = &logPin{name: "pickup"}
	if o.GPIOChip != "" {
		g, err := OpenGPIO(o.GPIOChip)
		if err != nil {
			closeAll()
			return b, nil, err
		}
		closers = append(closers, g.Close)
		if laser, err = g.Output(o.LaserLine); err == nil {
			if led, err = g.Output(o.LEDLine); err == nil {
				var in *LinePin
				in, err = g.Input(o.PickupLine)
				pickup = in
			}
		}
		if err != nil {
			closeAll()
			return b, nil, err
		}
	}

	var out audio.Output = &SilentOutput{}
	if o.Sound {
		out = NewSpeakerOutput()
	}

	var pot turret.Pot
	if o.Steps != 0 {
		pot = fixedPot{raw: o.Steps, max: cfg.MaxSteps}
	}

	t := &scheduler.Ticker{}
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runTicker(ctx, t)
	}()
	closers = append(closers, func() error { cancel(); wg.Wait(); return nil })

	b = turret.Board{
		Clock:  t,
		Sensor: sensor,
		Sweep:  sweep,
		Aim:    aim,
		Laser:  laser,
		LED:    led,
		Pickup: pickup,
		Pot:    pot,
		Audio:  out,
		Clips:  clips,
		Rand:   rand.New(rand.NewSource(o.Seed)),
		Idle:   func() { time.Sleep(time.Millisecond) },
	}
	return b, &Platform{Ticker: t, Close: closeAll}, nil
}

func runTicker(ctx context.Context, t *scheduler.Ticker) {
	tk := time.NewTicker(timex.PeriodFromHz(scheduler.TickHz))
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			t.Tick()
		}
	}
}

type fixedPot struct{ raw, max uint16 }

func (p fixedPot) Read() (uint16, uint16, error) { return p.raw, p.max, nil }

// logPin prints level changes.
type logPin struct {
	mu   sync.Mutex
	name string
	on   bool
}

func (p *logPin) Set(on bool) {
	p.mu.Lock()
	changed := p.on != on
	p.on = on
	p.mu.Unlock()
	if changed {
		log.Printf("[pin] %s=%v", p.name, on)
	}
}

func (p *logPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on
}

// simServo remembers the commanded step so the scene knows where the
// sensor points.
type simServo struct {
	name     string
	s        *servo.Servo
	mu       sync.Mutex
	num, den uint16
}

type nullDriver struct{}

func (nullDriver) SetMicroseconds(int16) {}

func newSimServo(name string, b servo.Bounds) *simServo {
	s := &simServo{name: name, s: servo.New(nullDriver{}, b), den: 1}
	s.s.Enable()
	return s
}

func (s *simServo) SetRatio(num, den uint16) error {
	if err := s.s.SetRatio(num, den); err != nil {
		return err
	}
	s.mu.Lock()
	s.num, s.den = num, den
	s.mu.Unlock()
	return nil
}

func (s *simServo) position() (uint16, uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.num, s.den
}

// Pulse is the last pulse width sent to the servo.
func (s *simServo) Pulse() uint16 { return s.s.Pulse() }

type fileStorage struct {
	*os.File
	size int64
}

func (f fileStorage) Size() int64 { return f.size }

func openClips(path string) (*simplefs.FileSystem, func() error, error) {
	if path == "" {
		img, err := ToneImage()
		if err != nil {
			return nil, nil, err
		}
		fs, err := simplefs.Mount(bytes.NewReader(img))
		return fs, func() error { return nil }, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	fs, err := simplefs.Mount(fileStorage{File: f, size: st.Size()})
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return fs, f.Close, nil
}
