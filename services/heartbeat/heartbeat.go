// Package heartbeat publishes a periodic status summary. The interval can
// be changed at runtime by publishing to config/heartbeat.
package heartbeat

import (
	"turret-go/bus"
	"turret-go/scheduler"
	"turret-go/types"
)

var (
	TopicStatus = bus.Topic{"turret", "heartbeat"}
	TopicConfig = bus.Topic{"config", "heartbeat"}
)

// Source fills in the application part of a beat.
type Source func() types.Heartbeat

type Service struct {
	conn     *bus.Connection
	clock    scheduler.Clock
	src      Source
	interval scheduler.Duration
	beats    uint32

	ev     *scheduler.Event
	cfgSub *bus.Subscription
}

// New returns a service beating every interval. conn may be nil, in
// which case beats are only logged.
func New(conn *bus.Connection, clock scheduler.Clock, interval scheduler.Duration, src Source) *Service {
	s := &Service{conn: conn, clock: clock, src: src, interval: interval}
	s.ev = scheduler.NewEvent("heartbeat", s.beat)
	if conn != nil {
		s.cfgSub = conn.Subscribe(TopicConfig)
	}
	return s
}

func (s *Service) Bind(q *scheduler.Queue) error { return q.Bind(s.ev) }

func (s *Service) Interval() scheduler.Duration { return s.interval }

func (s *Service) Start() {
	s.ev.SetPeriod(s.interval)
	s.ev.CallAt(s.clock.Now().Add(s.interval))
}

func (s *Service) Stop() {
	s.ev.ClearPeriod()
	s.ev.Cancel()
}

func (s *Service) beat() error {
	s.applyConfig()

	hb := s.src()
	hb.Beat = s.beats
	hb.Uptime = uint32(s.clock.Now())
	s.beats++

	println("[heartbeat]", hb.Beat, hb.Mode, hb.Pos, hb.Target)
	if s.conn != nil {
		s.conn.Publish(s.conn.NewMessage(TopicStatus, hb, true))
	}
	return nil
}

// applyConfig takes the newest pending interval change, if any.
func (s *Service) applyConfig() {
	if s.cfgSub == nil {
		return
	}
	for {
		select {
		case msg, ok := <-s.cfgSub.Channel():
			if !ok {
				s.cfgSub = nil
				return
			}
			s.setInterval(msg.Payload)
		default:
			return
		}
	}
}

func (s *Service) setInterval(payload any) {
	var ms uint32
	switch p := payload.(type) {
	case types.HeartbeatConfig:
		ms = p.IntervalMs
	case map[string]any:
		// decoded JSON, interval in seconds
		iv, ok := p["interval"].(float64)
		if !ok || iv <= 0 {
			return
		}
		ms = uint32(iv * 1000)
	default:
		return
	}
	d := scheduler.Millis(ms)
	if d == 0 {
		println("[heartbeat] ignoring zero interval")
		return
	}
	s.interval = d
	s.ev.SetPeriod(d)
	s.ev.CallAt(s.clock.Now().Add(d))
	println("[heartbeat] interval", ms, "ms")
}
