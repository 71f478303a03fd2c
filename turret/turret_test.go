package turret

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"turret-go/audio"
	"turret-go/bus"
	"turret-go/config"
	"turret-go/drivers/vl53l1x"
	"turret-go/errcode"
	"turret-go/ranging"
	"turret-go/scheduler"
	"turret-go/simplefs"
	"turret-go/targeting"
	"turret-go/types"
)

type clock struct{ now scheduler.Instant }

func (c *clock) Now() scheduler.Instant { return c.now }

type ratio struct{ num, den uint16 }

func (r *ratio) SetRatio(num, den uint16) error { r.num, r.den = num, den; return nil }

type pin struct{ on bool }

func (p *pin) Set(on bool) { p.on = on }
func (p *pin) Get() bool   { return p.on }

// scene returns far readings except over a near object.
type scene struct {
	sweep *ratio
	near  func(pos uint16) bool
	armed bool
}

func (s *scene) SetTimingBudget(vl53l1x.TimingBudget) error { return nil }
func (s *scene) SetDistanceMode(vl53l1x.DistanceMode) error { return nil }
func (s *scene) SetInterMeasurement(uint32) error           { return nil }
func (s *scene) StartRanging() error                        { return nil }
func (s *scene) StopRanging() error                         { return nil }
func (s *scene) CheckForDataReady() (bool, error)           { return true, nil }
func (s *scene) ClearInterrupt() error                      { return nil }

func (s *scene) RangeStatus() (vl53l1x.RangeStatus, error) {
	return vl53l1x.RangeStatus{Kind: vl53l1x.StatusOK}, nil
}

func (s *scene) Distance() (uint16, error) {
	if s.armed && s.near != nil && s.near(s.sweep.num) {
		return 400, nil
	}
	return 1200, nil
}

// speaker consumes every buffer as soon as it is queued.
type speaker struct {
	done    func()
	started int
	bytes   int
}

func (s *speaker) Start(rate uint32, done func()) error { s.done = done; s.started++; return nil }
func (s *speaker) Play(buf []byte) error                { s.bytes += len(buf); s.done(); return nil }
func (s *speaker) Stop() error                          { return nil }

type firstClip struct{}

func (firstClip) Intn(int) int { return 0 }

type pot struct {
	raw, max uint16
	err      error
}

func (p pot) Read() (uint16, uint16, error) { return p.raw, p.max, p.err }

var (
	_ ranging.Sensor   = (*scene)(nil)
	_ targeting.Aimer  = (*ratio)(nil)
	_ targeting.Pin    = (*pin)(nil)
	_ Switch           = (*pin)(nil)
	_ audio.Output     = (*speaker)(nil)
	_ Pot              = pot{}
	_ ranging.Listener = (*App)(nil)
)

type rig struct {
	clk   *clock
	sweep *ratio
	aim   *ratio
	laser *pin
	led   *pin
	lift  *pin
	scene *scene
	spk   *speaker
	board Board
	conn  *bus.Connection
	sub   *bus.Subscription

	scans  int
	tick   func(scan int) bool // true stops the run
	cancel context.CancelFunc
}

func newRig(t *testing.T) *rig {
	t.Helper()
	b := simplefs.NewBuilder(1 << 20)
	for _, name := range audio.ClipNames() {
		if err := b.Add(name, bytes.Repeat([]byte{0x80}, 1500)); err != nil {
			t.Fatal(err)
		}
	}
	fs, err := simplefs.Mount(bytes.NewReader(b.Bytes()))
	if err != nil {
		t.Fatal(err)
	}

	r := &rig{clk: &clock{}, sweep: &ratio{}, aim: &ratio{}, laser: &pin{}, led: &pin{}, lift: &pin{}, spk: &speaker{}}
	r.scene = &scene{sweep: r.sweep}
	r.board = Board{
		Clock:  r.clk,
		Sensor: r.scene,
		Sweep:  r.sweep,
		Aim:    r.aim,
		Laser:  r.laser,
		LED:    r.led,
		Pickup: r.lift,
		Audio:  r.spk,
		Clips:  fs,
		Rand:   firstClip{},
		Idle:   func() { r.idle() },
	}
	r.conn = bus.NewBus(4096).NewConnection("test")
	r.sub = r.conn.Subscribe(bus.Topic{"turret", "#"})
	return r
}

// idle advances the clock one tick per scan.
func (r *rig) idle() {
	r.clk.now++
	r.scans++
	if r.tick != nil && r.tick(r.scans) {
		r.cancel()
	}
}

func (r *rig) run(t *testing.T, a *App, limit int, tick func(scan int) bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.cancel = cancel
	stopped := false
	r.tick = func(n int) bool {
		if tick(n) {
			stopped = true
			return true
		}
		return n >= limit
	}
	if err := a.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: %v", err)
	}
	if !stopped {
		t.Fatalf("gave up after %d scans", r.scans)
	}
}

func (r *rig) messages() map[string][]any {
	out := make(map[string][]any)
	for {
		select {
		case m := <-r.sub.Channel():
			k := m.Topic.String()
			out[k] = append(out[k], m.Payload)
		default:
			return out
		}
	}
}

func sounds(msgs []any) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, m.(types.AudioEvent).Sound)
	}
	return out
}

func TestNewValidates(t *testing.T) {
	r := newRig(t)
	cfg := config.Default()
	cfg.LockWidth = 0
	if _, err := New(cfg, r.board, nil); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("err=%v", err)
	}

	r.board.Pot = pot{raw: 5, max: 4}
	if _, err := New(config.Default(), r.board, nil); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("ratio above one: err=%v", err)
	}
	r.board.Pot = pot{err: errcode.Bus}
	if _, err := New(config.Default(), r.board, nil); !errors.Is(err, errcode.Bus) {
		t.Fatalf("pot error: %v", err)
	}
}

func TestNewBindsEverything(t *testing.T) {
	r := newRig(t)
	r.board.Pot = pot{raw: 1024, max: 4096}
	a, err := New(config.Default(), r.board, r.conn)
	if err != nil {
		t.Fatal(err)
	}
	if a.Steps() != 25 {
		t.Fatalf("steps=%d", a.Steps())
	}
	// ranging 2, targeting 2, audio 1, pickup 1
	if a.Queue().Len() != 7 {
		t.Fatalf("bound %d events", a.Queue().Len())
	}
	if r.aim.num != 0 || r.aim.den != 25 {
		t.Fatalf("aim not parked: %+v", r.aim)
	}
}

func TestBaselineThenLock(t *testing.T) {
	r := newRig(t)
	r.scene.near = func(pos uint16) bool { return pos >= 20 && pos <= 29 }
	a, err := New(config.Default(), r.board, r.conn)
	if err != nil {
		t.Fatal(err)
	}
	r.run(t, a, 50000, func(int) bool {
		// the object walks in once the baseline is learned
		if a.Ranging().Mode() != ranging.Baseline {
			r.scene.armed = true
		}
		return r.laser.on
	})

	if got := a.Targeting().State(); got != (targeting.State{Kind: targeting.Lock, Start: 29, End: 21}) {
		t.Fatalf("state=%+v", got)
	}
	if r.aim.num != 25 || r.aim.den != 50 {
		t.Fatalf("aim=%+v", r.aim)
	}
	if !r.led.on {
		t.Fatal("led off while in contact")
	}

	msgs := r.messages()
	want := []string{"startup", "begin_scan", "target_acquired"}
	got := sounds(msgs["turret/audio"])
	if len(got) != len(want) {
		t.Fatalf("sounds=%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sounds=%v", got)
		}
	}
	if n := len(msgs["turret/baseline"]); n != 50 {
		t.Fatalf("%d baseline points", n)
	}
	bp := msgs["turret/baseline"][0].(types.BaselinePoint)
	if bp.Mean != 1200 || bp.Threshold != 1200 {
		t.Fatalf("baseline=%+v", bp)
	}

	scans := msgs["turret/scan"]
	first := scans[0].(types.ScanReading)
	if first.Pos != 48 || first.Mode != "scan_down" || first.Contact || first.Steps != 50 {
		t.Fatalf("first scan=%+v", first)
	}
	last := scans[len(scans)-1].(types.ScanReading)
	if last.Pos != 21 || !last.Contact || last.Distance != 400 {
		t.Fatalf("last scan=%+v", last)
	}

	targets := msgs["turret/target"]
	lock := targets[len(targets)-1].(types.TargetStatus)
	if lock.State != "lock" || lock.Start != 29 || lock.End != 21 {
		t.Fatalf("target=%+v", lock)
	}
	if r.spk.started != 3 {
		t.Fatalf("output started %d times", r.spk.started)
	}
}

func TestPickupEdge(t *testing.T) {
	r := newRig(t)
	a, err := New(config.Default(), r.board, r.conn)
	if err != nil {
		t.Fatal(err)
	}
	r.run(t, a, 1000, func(n int) bool {
		if n == 200 {
			r.lift.on = true
		}
		return n == 400
	})

	msgs := r.messages()
	if n := len(msgs["turret/pickup"]); n != 1 {
		t.Fatalf("%d pickup events", n)
	}
	got := sounds(msgs["turret/audio"])
	if len(got) != 2 || got[1] != "picked_up" {
		t.Fatalf("sounds=%v", got)
	}
}

func TestSensorFailureStopsRun(t *testing.T) {
	r := newRig(t)
	r.board.Sensor = failing{r.scene}
	a, err := New(config.Default(), r.board, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.cancel = cancel
	r.tick = func(n int) bool { return n > 1000 }
	err = a.Run(ctx)
	if errcode.Of(err) != errcode.Bus {
		t.Fatalf("err=%v", err)
	}
}

type failing struct{ *scene }

func (failing) CheckForDataReady() (bool, error) {
	return false, &errcode.E{C: errcode.Bus, Op: "i2c tx"}
}

func TestHeartbeat(t *testing.T) {
	r := newRig(t)
	cfg := config.Default()
	cfg.HeartbeatMs = 1000
	a, err := New(cfg, r.board, r.conn)
	if err != nil {
		t.Fatal(err)
	}
	r.run(t, a, 1000, func(n int) bool { return n == 450 })

	beats := r.messages()["turret/heartbeat"]
	if len(beats) != 4 {
		t.Fatalf("%d beats", len(beats))
	}
	hb := beats[3].(types.Heartbeat)
	if hb.Beat != 3 || hb.Mode != "baseline" || hb.Steps != 50 || hb.Target != "no_contact" {
		t.Fatalf("beat=%+v", hb)
	}
}

func TestHeartbeatDisabled(t *testing.T) {
	r := newRig(t)
	cfg := config.Default()
	cfg.HeartbeatMs = 0
	a, err := New(cfg, r.board, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.Queue().Len() != 6 {
		t.Fatalf("bound %d events", a.Queue().Len())
	}
}
