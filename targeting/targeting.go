// Package targeting turns per-step contact reports into a target lock,
// aims the laser servo at the locked arc and drives the cues around it.
package targeting

import (
	"turret-go/audio"
	"turret-go/errcode"
	"turret-go/scheduler"
	"turret-go/x/mathx"
)

type Kind uint8

const (
	NoContact Kind = iota
	EarlyContact
	Lock
)

func (k Kind) String() string {
	switch k {
	case EarlyContact:
		return "early_contact"
	case Lock:
		return "lock"
	}
	return "no_contact"
}

// State is the current belief about a target. Start is valid for
// EarlyContact and Lock, End only for Lock.
type State struct {
	Kind  Kind
	Start uint16
	End   uint16
}

type Aimer interface {
	SetRatio(num, den uint16) error
}

type Pin interface {
	Set(on bool)
}

type Player interface {
	Play(s audio.Sound) error
}

type Config struct {
	LockWidth  uint16 // steps of continuous contact needed to lock
	BreakWidth uint16 // outward steps of no contact that break a lock
	LaserOff   scheduler.Duration
	TargetLost scheduler.Duration
	Reacquire  scheduler.Duration // within this of a release a lock is a "restore"
}

func DefaultConfig() Config {
	return Config{
		LockWidth:  8,
		BreakWidth: 4,
		LaserOff:   scheduler.Seconds(5),
		TargetLost: scheduler.Seconds(60),
		Reacquire:  scheduler.Seconds(30),
	}
}

// Targeting owns the aim servo, the laser and the contact LED.
type Targeting struct {
	cfg    Config
	clock  scheduler.Clock
	aim    Aimer
	laser  Pin
	led    Pin
	player Player
	total  uint16

	state    State
	lastLock scheduler.Instant
	released bool

	laserOff   *scheduler.Event
	targetLost *scheduler.Event

	// OnChange, when set, sees every state change and lock update.
	OnChange func(State)
}

// New parks the aim servo at zero. total is the number of sweep steps.
func New(cfg Config, clock scheduler.Clock, aim Aimer, laser, led Pin, player Player, total uint16) (*Targeting, error) {
	if total == 0 || cfg.LockWidth == 0 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "targeting.new"}
	}
	t := &Targeting{cfg: cfg, clock: clock, aim: aim, laser: laser, led: led, player: player, total: total}
	t.laserOff = scheduler.NewEvent("targeting.laser_off", t.onLaserOff)
	t.targetLost = scheduler.NewEvent("targeting.target_lost", t.onTargetLost)
	if err := aim.SetRatio(0, total); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Targeting) Bind(q *scheduler.Queue) error {
	if err := q.Bind(t.laserOff); err != nil {
		return err
	}
	return q.Bind(t.targetLost)
}

func (t *Targeting) State() State { return t.state }

// Reset drops any partial or held lock; the sweep changed direction.
func (t *Targeting) Reset() { t.set(State{Kind: NoContact}) }

// Report feeds one scan result.
func (t *Targeting) Report(pos uint16, contact bool) error {
	if contact {
		return t.contact(pos)
	}
	t.noContact(pos)
	return nil
}

func (t *Targeting) contact(pos uint16) error {
	t.led.Set(true)

	switch t.state.Kind {
	case NoContact:
		t.set(State{Kind: EarlyContact, Start: pos})
	case EarlyContact:
		start := t.state.Start
		if mathx.AbsDiff(start, pos) < t.cfg.LockWidth {
			return nil
		}
		s := audio.TargetAcquired
		if t.released && t.clock.Now().Sub(t.lastLock) < t.cfg.Reacquire {
			s = audio.ContactRestored
		}
		if err := t.player.Play(s); err != nil {
			return err
		}
		return t.lock(start, pos)
	case Lock:
		return t.lock(t.state.Start, pos)
	}
	return nil
}

func (t *Targeting) noContact(pos uint16) {
	t.led.Set(false)

	switch t.state.Kind {
	case EarlyContact:
		t.set(State{Kind: NoContact})
	case Lock:
		start, end := int32(t.state.Start), int32(t.state.End)
		p, w := int32(pos), int32(t.cfg.BreakWidth)
		// only divergence away from start breaks the lock
		var broken bool
		if start < end {
			broken = p-end >= w
		} else {
			broken = end-p >= w
		}
		if broken {
			t.set(State{Kind: NoContact})
		}
	}
}

// lock aims at the middle of the arc and (re)arms the laser timeout.
func (t *Targeting) lock(start, end uint16) error {
	t.set(State{Kind: Lock, Start: start, End: end})

	lo, hi := mathx.Min(start, end), mathx.Max(start, end)
	if err := t.aim.SetRatio(lo+(hi-lo)/2, t.total); err != nil {
		return err
	}
	t.laser.Set(true)

	t.laserOff.CallAt(t.clock.Now().Add(t.cfg.LaserOff))
	t.targetLost.Cancel()
	return nil
}

func (t *Targeting) onLaserOff() error {
	now := t.clock.Now()
	t.laser.Set(false)
	t.lastLock = now
	t.released = true
	t.targetLost.CallAt(now.Add(t.cfg.TargetLost))
	return t.player.Play(audio.ContactLost)
}

func (t *Targeting) onTargetLost() error {
	return t.player.Play(audio.TargetLost)
}

func (t *Targeting) set(s State) {
	changed := s != t.state
	t.state = s
	if changed || s.Kind == Lock {
		if t.OnChange != nil {
			t.OnChange(s)
		}
	}
}
