// Package config holds the tunable constants of the turret in one place.
package config

import (
	"turret-go/calibration"
	"turret-go/drivers/vl53l1x"
	"turret-go/errcode"
	"turret-go/ranging"
	"turret-go/scheduler"
	"turret-go/targeting"
)

// Config is the full set of timings and thresholds. Durations are in
// milliseconds and are rounded up to whole ticks.
type Config struct {
	// Sensor and sweep
	TimingBudget vl53l1x.TimingBudget `json:"timing_budget_ms"`
	DistanceMode vl53l1x.DistanceMode `json:"distance_mode"`
	InterMeasMs  uint32               `json:"inter_measurement_ms"`
	RetryMs      uint32               `json:"retry_ms"`
	SettleMs     uint32               `json:"settle_ms"`
	ResetMs      uint32               `json:"reset_ms"`
	MaxSteps     uint16               `json:"max_steps"`
	DefaultSteps uint16               `json:"default_steps"` // when no range pot is fitted
	Sigmas       uint32               `json:"sigmas"`
	UseSensor2V8 bool                 `json:"sensor_2v8"`

	// Targeting
	LockWidth   uint16 `json:"lock_width"`
	BreakWidth  uint16 `json:"break_width"`
	LaserOffMs  uint32 `json:"laser_off_ms"`
	LostMs      uint32 `json:"target_lost_ms"`
	ReacquireMs uint32 `json:"reacquire_ms"`

	// Misc
	PickupPollMs uint32 `json:"pickup_poll_ms"`
	HeartbeatMs  uint32 `json:"heartbeat_ms"` // 0 disables
	BusQueueLen  int    `json:"bus_queue_len"`
}

func Default() Config {
	return Config{
		TimingBudget: vl53l1x.Budget100ms,
		DistanceMode: vl53l1x.Long,
		InterMeasMs:  200,
		RetryMs:      10,
		SettleMs:     100,
		ResetMs:      500,
		MaxSteps:     ranging.MaxSteps,
		DefaultSteps: 50,
		Sigmas:       calibration.DefaultSigmas,

		LockWidth:   8,
		BreakWidth:  4,
		LaserOffMs:  5000,
		LostMs:      60000,
		ReacquireMs: 30000,

		PickupPollMs: 50,
		HeartbeatMs:  10000,
		BusQueueLen:  16,
	}
}

func invalid(msg string) error {
	return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: msg}
}

func (c Config) Validate() error {
	switch {
	case c.TimingBudget.Millis() == 0:
		return invalid("timing budget")
	case c.DistanceMode != vl53l1x.Short && c.DistanceMode != vl53l1x.Long:
		return invalid("distance mode")
	case c.DistanceMode == vl53l1x.Long && c.TimingBudget == vl53l1x.Budget15ms:
		return invalid("15 ms budget needs short distance mode")
	case c.InterMeasMs != 0 && c.InterMeasMs < c.TimingBudget.Millis():
		return invalid("inter-measurement shorter than timing budget")
	case c.RetryMs == 0:
		return invalid("retry")
	case c.MaxSteps < 2 || c.MaxSteps > ranging.MaxSteps:
		return invalid("max steps")
	case c.DefaultSteps < 2 || c.DefaultSteps > c.MaxSteps:
		return invalid("default steps")
	case c.LockWidth == 0:
		return invalid("lock width")
	case c.BreakWidth == 0:
		return invalid("break width")
	case c.LaserOffMs == 0 || c.LostMs == 0:
		return invalid("laser timers")
	case c.PickupPollMs == 0:
		return invalid("pickup poll")
	case c.BusQueueLen < 1:
		return invalid("bus queue length")
	}
	return nil
}

// Steps derives the sweep step count from a range pot reading. A zero
// max means no pot and selects DefaultSteps.
func (c Config) Steps(raw, max uint16) (uint16, error) {
	if max == 0 {
		return c.DefaultSteps, nil
	}
	n, err := ranging.StepsFromRatio(raw, max, c.MaxSteps)
	if err != nil {
		return 0, err
	}
	if n < 2 {
		n = 2
	}
	return n, nil
}

func (c Config) Ranging(steps uint16) ranging.Config {
	return ranging.Config{
		Steps:        steps,
		TimingBudget: c.TimingBudget,
		DistanceMode: c.DistanceMode,
		InterMeasMs:  c.InterMeasMs,
		Retry:        scheduler.Millis(c.RetryMs),
		Settle:       scheduler.Millis(c.SettleMs),
		ResetDelay:   scheduler.Millis(c.ResetMs),
		Sigmas:       c.Sigmas,
	}
}

func (c Config) Targeting() targeting.Config {
	return targeting.Config{
		LockWidth:  c.LockWidth,
		BreakWidth: c.BreakWidth,
		LaserOff:   scheduler.Millis(c.LaserOffMs),
		TargetLost: scheduler.Millis(c.LostMs),
		Reacquire:  scheduler.Millis(c.ReacquireMs),
	}
}

func (c Config) PickupPoll() scheduler.Duration { return scheduler.Millis(c.PickupPollMs) }
func (c Config) Heartbeat() scheduler.Duration  { return scheduler.Millis(c.HeartbeatMs) }
