// Package turret wires the sweep, targeting and audio state machines to
// a board and runs them on one scheduler queue.
package turret

import (
	"context"

	"turret-go/audio"
	"turret-go/bus"
	"turret-go/calibration"
	"turret-go/config"
	"turret-go/ranging"
	"turret-go/scheduler"
	"turret-go/services/heartbeat"
	"turret-go/targeting"
	"turret-go/types"
)

var (
	TopicScan     = bus.Topic{"turret", "scan"}
	TopicBaseline = bus.Topic{"turret", "baseline"}
	TopicTarget   = bus.Topic{"turret", "target"}
	TopicAudio    = bus.Topic{"turret", "audio"}
	TopicPickup   = bus.Topic{"turret", "pickup"}
)

// Switch reads true while the turret is lifted.
type Switch interface {
	Get() bool
}

// Pot reads the range potentiometer as raw out of max.
type Pot interface {
	Read() (raw, max uint16, err error)
}

// Board is everything the application needs from the hardware. Pickup
// and Pot may be nil.
type Board struct {
	Clock  scheduler.Clock
	Sensor ranging.Sensor
	Sweep  ranging.Positioner
	Aim    targeting.Aimer
	Laser  targeting.Pin
	LED    targeting.Pin
	Pickup Switch
	Pot    Pot
	Audio  audio.Output
	Clips  audio.Library
	Rand   audio.Rand

	// Idle runs between scheduler scans.
	Idle func()
}

type App struct {
	cfg   config.Config
	board Board
	conn  *bus.Connection
	steps uint16

	q      *scheduler.Queue
	player *audio.Player
	target *targeting.Targeting
	sweep  *ranging.Ranging

	pickup *scheduler.Event
	lifted bool

	beat *heartbeat.Service // nil when disabled
}

// New builds the state machines and binds their events. conn may be nil.
func New(cfg config.Config, b Board, conn *bus.Connection) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var raw, max uint16
	if b.Pot != nil {
		var err error
		if raw, max, err = b.Pot.Read(); err != nil {
			return nil, err
		}
	}
	steps, err := cfg.Steps(raw, max)
	if err != nil {
		return nil, err
	}
	println("[turret] steps", steps)

	a := &App{cfg: cfg, board: b, conn: conn, steps: steps}
	a.q = scheduler.NewQueue(b.Clock, b.Idle)
	a.player = audio.New(b.Audio, b.Clips, b.Rand)
	a.player.OnClip = a.onClip

	a.target, err = targeting.New(cfg.Targeting(), b.Clock, b.Aim, b.Laser, b.LED, a.player, steps)
	if err != nil {
		return nil, err
	}
	a.target.OnChange = a.onTarget

	a.sweep, err = ranging.New(cfg.Ranging(steps), b.Clock, b.Sensor, b.Sweep, a.target, a)
	if err != nil {
		return nil, err
	}
	a.sweep.OnScan = a.onScan
	a.sweep.OnBaseline = a.onBaseline

	a.pickup = scheduler.NewEvent("turret.pickup", a.pollPickup)

	if err := a.sweep.Bind(a.q); err != nil {
		return nil, err
	}
	if err := a.target.Bind(a.q); err != nil {
		return nil, err
	}
	if err := a.player.Bind(a.q); err != nil {
		return nil, err
	}
	if err := a.q.Bind(a.pickup); err != nil {
		return nil, err
	}
	if cfg.HeartbeatMs != 0 {
		a.beat = heartbeat.New(conn, b.Clock, cfg.Heartbeat(), a.status)
		if err := a.beat.Bind(a.q); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *App) Steps() uint16                   { return a.steps }
func (a *App) Queue() *scheduler.Queue         { return a.q }
func (a *App) Player() *audio.Player           { return a.player }
func (a *App) Targeting() *targeting.Targeting { return a.target }
func (a *App) Ranging() *ranging.Ranging       { return a.sweep }

// Run plays the startup cue, starts the sweep and dispatches events
// until ctx ends or a callback fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.player.Play(audio.Startup); err != nil {
		return err
	}
	if err := a.sweep.Start(); err != nil {
		return err
	}
	if a.board.Pickup != nil {
		a.lifted = a.board.Pickup.Get()
		poll := a.cfg.PickupPoll()
		a.pickup.SetPeriod(poll)
		a.pickup.CallAt(a.board.Clock.Now().Add(poll))
	}
	if a.beat != nil {
		a.beat.Start()
	}
	return a.q.Run(ctx)
}

// BaselineComplete is called by the sweep when every step has a threshold.
func (a *App) BaselineComplete() error {
	println("[turret] baseline complete")
	return a.player.Play(audio.BeginScan)
}

func (a *App) pollPickup() error {
	lifted := a.board.Pickup.Get()
	was := a.lifted
	a.lifted = lifted
	if !lifted || was {
		return nil
	}
	println("[turret] picked up")
	a.publish(TopicPickup, types.PickupEvent{TS: a.now()}, false)
	return a.player.Play(audio.PickedUp)
}

func (a *App) now() uint32 { return uint32(a.board.Clock.Now()) }

func (a *App) publish(t bus.Topic, payload any, retained bool) {
	if a.conn == nil {
		return
	}
	a.conn.Publish(a.conn.NewMessage(t, payload, retained))
}

func (a *App) onScan(r ranging.Reading) {
	a.publish(TopicScan, types.ScanReading{
		Mode:      r.Mode.String(),
		Pos:       r.Pos,
		Steps:     a.steps,
		Distance:  r.Distance,
		Threshold: r.Threshold,
		Status:    r.Status.String(),
		Contact:   r.Contact,
		TS:        a.now(),
	}, false)
}

func (a *App) onBaseline(pos uint16, p calibration.Point, threshold uint16) {
	a.publish(TopicBaseline, types.BaselinePoint{
		Pos:        pos,
		Mean:       p.Mean,
		StdDevDeci: p.StdDevDeci,
		Threshold:  threshold,
	}, false)
}

func (a *App) onTarget(s targeting.State) {
	ts := types.TargetStatus{State: s.Kind.String(), TS: a.now()}
	if s.Kind != targeting.NoContact {
		ts.Start = s.Start
	}
	if s.Kind == targeting.Lock {
		ts.End = s.End
	}
	a.publish(TopicTarget, ts, true)
}

func (a *App) status() types.Heartbeat {
	_, busy := a.player.Current()
	return types.Heartbeat{
		Mode:   a.sweep.Mode().String(),
		Pos:    a.sweep.Position(),
		Steps:  a.steps,
		Target: a.target.State().Kind.String(),
		Audio:  busy,
	}
}

func (a *App) onClip(s audio.Sound, c audio.Clip) {
	a.publish(TopicAudio, types.AudioEvent{Sound: s.String(), Clip: c.String(), TS: a.now()}, false)
}
