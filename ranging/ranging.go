// Package ranging runs the sensor sweep: a baseline pass that learns a
// contact threshold for every servo step, then a back-and-forth scan
// that compares each reading against it.
package ranging

import (
	"turret-go/calibration"
	"turret-go/drivers/vl53l1x"
	"turret-go/errcode"
	"turret-go/scheduler"
)

// MaxSteps bounds the baseline table.
const MaxSteps = 100

type Sensor interface {
	SetTimingBudget(b vl53l1x.TimingBudget) error
	SetDistanceMode(m vl53l1x.DistanceMode) error
	SetInterMeasurement(ms uint32) error
	StartRanging() error
	StopRanging() error
	CheckForDataReady() (bool, error)
	Distance() (uint16, error)
	RangeStatus() (vl53l1x.RangeStatus, error)
	ClearInterrupt() error
}

// Positioner moves the sensor to num/den of its travel.
type Positioner interface {
	SetRatio(num, den uint16) error
}

// Reporter consumes scan results. Reset is called on every direction
// change.
type Reporter interface {
	Report(pos uint16, contact bool) error
	Reset()
}

type Listener interface {
	BaselineComplete() error
}

type Mode uint8

const (
	Baseline Mode = iota
	ScanDown
	ScanUp
)

func (m Mode) String() string {
	switch m {
	case ScanDown:
		return "scan_down"
	case ScanUp:
		return "scan_up"
	}
	return "baseline"
}

type MoveResult uint8

const (
	SameDirection MoveResult = iota
	ChangeDirection
)

type Config struct {
	Steps        uint16
	TimingBudget vl53l1x.TimingBudget
	DistanceMode vl53l1x.DistanceMode
	InterMeasMs  uint32
	Retry        scheduler.Duration
	Settle       scheduler.Duration
	ResetDelay   scheduler.Duration
	Sigmas       uint32
}

func DefaultConfig() Config {
	return Config{
		Steps:        50,
		TimingBudget: vl53l1x.Budget100ms,
		DistanceMode: vl53l1x.Long,
		InterMeasMs:  200,
		Retry:        scheduler.Millis(10),
		Settle:       scheduler.Millis(100),
		ResetDelay:   scheduler.Millis(500),
		Sigmas:       calibration.DefaultSigmas,
	}
}

// Reading is one scan measurement.
type Reading struct {
	Mode      Mode
	Pos       uint16
	Distance  uint16
	Threshold uint16
	Status    vl53l1x.RangeStatus
	Contact   bool
}

type Ranging struct {
	cfg      Config
	clock    scheduler.Clock
	sensor   Sensor
	servo    Positioner
	reporter Reporter
	listener Listener

	mode     Mode
	cal      calibration.Calibration
	baseline [MaxSteps]uint16
	current  uint16
	total    uint16

	startRanging *scheduler.Event
	readSensor   *scheduler.Event

	// Optional telemetry hooks.
	OnScan     func(Reading)
	OnBaseline func(pos uint16, p calibration.Point, threshold uint16)
}

func New(cfg Config, clock scheduler.Clock, sensor Sensor, servo Positioner, reporter Reporter, listener Listener) (*Ranging, error) {
	if cfg.Steps < 2 || cfg.Steps > MaxSteps {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "ranging.new", Msg: "steps out of range"}
	}
	r := &Ranging{
		cfg:      cfg,
		clock:    clock,
		sensor:   sensor,
		servo:    servo,
		reporter: reporter,
		listener: listener,
		total:    cfg.Steps,
	}
	r.startRanging = scheduler.NewEvent("ranging.start", r.onStartRanging)
	r.readSensor = scheduler.NewEvent("ranging.read", r.onReadSensor)
	return r, nil
}

func (r *Ranging) Bind(q *scheduler.Queue) error {
	if err := q.Bind(r.startRanging); err != nil {
		return err
	}
	return q.Bind(r.readSensor)
}

// Start parks the servo, programs the sensor and schedules the first
// baseline measurement once the servo has had time to get home.
func (r *Ranging) Start() error {
	if err := r.servo.SetRatio(0, r.total); err != nil {
		return err
	}
	if err := r.sensor.SetTimingBudget(r.cfg.TimingBudget); err != nil {
		return err
	}
	if err := r.sensor.SetDistanceMode(r.cfg.DistanceMode); err != nil {
		return err
	}
	if err := r.sensor.SetInterMeasurement(r.cfg.InterMeasMs); err != nil {
		return err
	}
	r.mode = Baseline
	r.cal.Reset()
	r.current = 0
	r.startRanging.CallAt(r.clock.Now().Add(r.cfg.ResetDelay))
	return nil
}

func (r *Ranging) Mode() Mode       { return r.mode }
func (r *Ranging) Position() uint16 { return r.current }
func (r *Ranging) Steps() uint16    { return r.total }

// Threshold returns the learned threshold at pos.
func (r *Ranging) Threshold(pos uint16) uint16 {
	if pos >= r.total {
		return 0
	}
	return r.baseline[pos]
}

// onStartRanging expects the servo in place and the sensor stopped.
func (r *Ranging) onStartRanging() error {
	if err := r.sensor.StartRanging(); err != nil {
		return err
	}
	r.readSensor.CallAt(r.clock.Now().Add(scheduler.Millis(r.cfg.TimingBudget.Millis())))
	return nil
}

func (r *Ranging) onReadSensor() error {
	ready, err := r.sensor.CheckForDataReady()
	if err != nil {
		return err
	}
	if !ready {
		println("[ranging] sensor not ready")
		r.readSensor.CallAt(r.clock.Now().Add(r.cfg.Retry))
		return nil
	}

	distance, err := r.sensor.Distance()
	if err != nil {
		return err
	}
	status, err := r.sensor.RangeStatus()
	if err != nil {
		return err
	}
	if err := r.sensor.ClearInterrupt(); err != nil {
		return err
	}
	if err := r.sensor.StopRanging(); err != nil {
		return err
	}

	if r.mode == Baseline {
		return r.processCalibration(distance)
	}
	return r.processScan(distance, status)
}

func (r *Ranging) processCalibration(distance uint16) error {
	r.cal.AddSample(distance)
	p, ok := r.cal.Point()
	if !ok {
		r.startRanging.Call()
		return nil
	}

	th := p.Threshold(r.cfg.Sigmas)
	r.baseline[r.current] = th
	println("[ranging] baseline", r.current, "mean", p.Mean, "threshold", th)
	if r.OnBaseline != nil {
		r.OnBaseline(r.current, p, th)
	}
	r.cal.Reset()

	if r.current == r.total-1 {
		r.mode = ScanDown
		if err := r.listener.BaselineComplete(); err != nil {
			return err
		}
	}
	_, err := r.moveServo()
	return err
}

func (r *Ranging) processScan(distance uint16, status vl53l1x.RangeStatus) error {
	th := r.baseline[r.current]
	contact := distance < th
	if err := r.reporter.Report(r.current, contact); err != nil {
		return err
	}
	if r.OnScan != nil {
		r.OnScan(Reading{Mode: r.mode, Pos: r.current, Distance: distance, Threshold: th, Status: status, Contact: contact})
	}
	_, err := r.moveServo()
	return err
}

func (r *Ranging) moveServo() (MoveResult, error) {
	var down bool
	switch {
	case r.mode == ScanDown && r.current == 0:
		r.mode = ScanUp
		return r.reverse(), nil
	case r.mode == ScanDown:
		down = true
	case r.current == r.total-1:
		r.mode = ScanDown
		return r.reverse(), nil
	}

	if down {
		r.current--
	} else {
		r.current++
	}
	if err := r.servo.SetRatio(r.current, r.total); err != nil {
		return SameDirection, err
	}
	r.startRanging.CallAt(r.clock.Now().Add(r.cfg.Settle))
	return SameDirection, nil
}

func (r *Ranging) reverse() MoveResult {
	r.reporter.Reset()
	r.startRanging.Call()
	return ChangeDirection
}

// StepsFromRatio scales num/den against max, truncating.
func StepsFromRatio(num, den, max uint16) (uint16, error) {
	if den == 0 || num > den {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "ranging.steps", Msg: "ratio above one"}
	}
	return uint16(uint32(max) * uint32(num) / uint32(den)), nil
}
