package targeting

import (
	"testing"

	"turret-go/audio"
	"turret-go/scheduler"
)

type clock struct{ now scheduler.Instant }

func (c *clock) Now() scheduler.Instant { return c.now }

type aim struct{ num, den uint16 }

func (a *aim) SetRatio(num, den uint16) error { a.num, a.den = num, den; return nil }

type pin struct{ on bool }

func (p *pin) Set(on bool) { p.on = on }

type sounds struct{ played []audio.Sound }

func (s *sounds) Play(x audio.Sound) error { s.played = append(s.played, x); return nil }

func (s *sounds) last() audio.Sound {
	if len(s.played) == 0 {
		return 255
	}
	return s.played[len(s.played)-1]
}

var (
	_ Aimer  = (*aim)(nil)
	_ Pin    = (*pin)(nil)
	_ Player = (*sounds)(nil)
)

type rig struct {
	clk   *clock
	aim   *aim
	laser *pin
	led   *pin
	snd   *sounds
	q     *scheduler.Queue
	tg    *Targeting
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{clk: &clock{}, aim: &aim{num: 99}, laser: &pin{}, led: &pin{}, snd: &sounds{}}
	tg, err := New(DefaultConfig(), r.clk, r.aim, r.laser, r.led, r.snd, 50)
	if err != nil {
		t.Fatal(err)
	}
	r.tg = tg
	r.q = scheduler.NewQueue(r.clk, nil)
	if err := tg.Bind(r.q); err != nil {
		t.Fatal(err)
	}
	return r
}

func (r *rig) report(t *testing.T, pos uint16, contact bool) {
	t.Helper()
	if err := r.tg.Report(pos, contact); err != nil {
		t.Fatalf("Report(%d, %v): %v", pos, contact, err)
	}
}

// sweep reports contact over [from, to] in either direction.
func (r *rig) sweep(t *testing.T, from, to uint16, contact bool) {
	t.Helper()
	step := 1
	if to < from {
		step = -1
	}
	for p := int(from); ; p += step {
		r.report(t, uint16(p), contact)
		if p == int(to) {
			return
		}
	}
}

func (r *rig) advance(t *testing.T, d scheduler.Duration) {
	t.Helper()
	end := r.clk.now.Add(d)
	for !end.Reached(r.clk.now) {
		r.clk.now++
		if err := r.q.RunOnce(r.clk.now); err != nil {
			t.Fatal(err)
		}
	}
}

func TestNewParksAimAtZero(t *testing.T) {
	r := newRig(t)
	if r.aim.num != 0 || r.aim.den != 50 {
		t.Fatalf("aim=%d/%d", r.aim.num, r.aim.den)
	}
	if _, err := New(DefaultConfig(), r.clk, r.aim, r.laser, r.led, r.snd, 0); err == nil {
		t.Fatal("zero steps accepted")
	}
}

func TestLockAfterEightSteps(t *testing.T) {
	r := newRig(t)

	r.sweep(t, 10, 17, true)
	if got := r.tg.State(); got != (State{Kind: EarlyContact, Start: 10}) {
		t.Fatalf("state=%+v before lock width", got)
	}
	if r.laser.on || len(r.snd.played) != 0 {
		t.Fatal("laser or sound before lock")
	}
	if !r.led.on {
		t.Fatal("led off during contact")
	}

	r.report(t, 18, true)
	if got := r.tg.State(); got != (State{Kind: Lock, Start: 10, End: 18}) {
		t.Fatalf("state=%+v", got)
	}
	if r.aim.num != 14 || r.aim.den != 50 {
		t.Fatalf("aim=%d/%d want 14/50", r.aim.num, r.aim.den)
	}
	if !r.laser.on {
		t.Fatal("laser off after lock")
	}
	if r.snd.last() != audio.TargetAcquired {
		t.Fatalf("sound=%v", r.snd.played)
	}
}

func TestLockDownward(t *testing.T) {
	r := newRig(t)
	r.sweep(t, 30, 22, true)
	if got := r.tg.State(); got != (State{Kind: Lock, Start: 30, End: 22}) {
		t.Fatalf("state=%+v", got)
	}
	if r.aim.num != 26 {
		t.Fatalf("aim=%d want 26", r.aim.num)
	}
}

func TestEarlyContactDropsOnGap(t *testing.T) {
	r := newRig(t)
	r.sweep(t, 10, 14, true)
	r.report(t, 15, false)
	if r.tg.State().Kind != NoContact {
		t.Fatalf("state=%+v", r.tg.State())
	}
	if r.led.on {
		t.Fatal("led on without contact")
	}
	// a fresh run has to reach the full width again
	r.sweep(t, 16, 23, true)
	if r.tg.State().Kind != EarlyContact {
		t.Fatalf("state=%+v", r.tg.State())
	}
}

func TestLockTracksAndBreaks(t *testing.T) {
	r := newRig(t)
	r.sweep(t, 10, 18, true)
	r.sweep(t, 19, 20, true)
	if got := r.tg.State(); got != (State{Kind: Lock, Start: 10, End: 20}) {
		t.Fatalf("state=%+v", got)
	}
	if r.aim.num != 15 {
		t.Fatalf("aim=%d want 15", r.aim.num)
	}
	played := len(r.snd.played)

	r.sweep(t, 21, 23, false)
	if r.tg.State().Kind != Lock {
		t.Fatal("lock broke before break width")
	}
	r.report(t, 24, false)
	if r.tg.State().Kind != NoContact {
		t.Fatalf("state=%+v", r.tg.State())
	}
	if len(r.snd.played) != played {
		t.Fatal("tracking played extra sounds")
	}
}

func TestBreakWidthFromLockEnd(t *testing.T) {
	r := newRig(t)
	r.sweep(t, 10, 18, true)
	r.report(t, 23, false)
	if r.tg.State().Kind != NoContact {
		t.Fatal("23 did not break lock ending at 18")
	}

	r = newRig(t)
	r.sweep(t, 10, 18, true)
	r.report(t, 15, false)
	if r.tg.State().Kind != Lock {
		t.Fatal("no contact inside the arc broke the lock")
	}
}

func TestBreakDownward(t *testing.T) {
	r := newRig(t)
	r.sweep(t, 30, 22, true)
	r.report(t, 19, false)
	if r.tg.State().Kind != Lock {
		t.Fatal("broke at 3 steps")
	}
	r.report(t, 18, false)
	if r.tg.State().Kind != NoContact {
		t.Fatal("did not break at 4 steps")
	}
}

func TestResetClearsLock(t *testing.T) {
	r := newRig(t)
	r.sweep(t, 10, 18, true)
	r.tg.Reset()
	if r.tg.State().Kind != NoContact {
		t.Fatal("reset kept lock")
	}
}

func TestLaserTimeoutAndCooldownSounds(t *testing.T) {
	r := newRig(t)
	r.sweep(t, 10, 18, true)

	r.advance(t, scheduler.Seconds(5)-1)
	if !r.laser.on {
		t.Fatal("laser off early")
	}
	r.advance(t, 1)
	if r.laser.on {
		t.Fatal("laser still on after timeout")
	}
	if r.snd.last() != audio.ContactLost {
		t.Fatalf("sounds=%v", r.snd.played)
	}

	// reacquired inside the cooldown
	r.advance(t, scheduler.Seconds(10))
	r.tg.Reset()
	r.sweep(t, 30, 38, true)
	if r.snd.last() != audio.ContactRestored {
		t.Fatalf("sounds=%v", r.snd.played)
	}
	if !r.laser.on {
		t.Fatal("laser not relit")
	}

	// the relock cancelled target lost; let the laser time out again and
	// wait out both timers
	r.advance(t, scheduler.Seconds(5))
	if r.snd.last() != audio.ContactLost {
		t.Fatalf("sounds=%v", r.snd.played)
	}
	r.advance(t, scheduler.Seconds(60)-1)
	if r.snd.last() == audio.TargetLost {
		t.Fatal("target lost early")
	}
	r.advance(t, 1)
	if r.snd.last() != audio.TargetLost {
		t.Fatalf("sounds=%v", r.snd.played)
	}

	r.tg.Reset()
	r.sweep(t, 10, 18, true)
	if r.snd.last() != audio.TargetAcquired {
		t.Fatalf("sounds=%v", r.snd.played)
	}
}

func TestRelockCancelsTargetLost(t *testing.T) {
	r := newRig(t)
	r.sweep(t, 10, 18, true)
	r.advance(t, scheduler.Seconds(5))
	r.tg.Reset()
	r.sweep(t, 10, 18, true)
	n := len(r.snd.played)
	// keep the lock fed so the laser never times out
	for i := 0; i < 70; i++ {
		r.advance(t, scheduler.Seconds(1))
		r.report(t, 18, true)
	}
	for _, s := range r.snd.played[n:] {
		if s == audio.TargetLost || s == audio.ContactLost {
			t.Fatalf("unexpected %v while locked", s)
		}
	}
}

func TestOnChange(t *testing.T) {
	r := newRig(t)
	var seen []State
	r.tg.OnChange = func(s State) { seen = append(seen, s) }
	r.sweep(t, 10, 19, true)
	r.report(t, 20, false)
	want := []Kind{EarlyContact, Lock, Lock}
	if len(seen) != len(want) {
		t.Fatalf("seen=%+v", seen)
	}
	for i, k := range want {
		if seen[i].Kind != k {
			t.Fatalf("seen[%d]=%+v", i, seen[i])
		}
	}
}
