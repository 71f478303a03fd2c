package types

// ------------------------
// Sweep
// ------------------------

// ScanReading is one scan measurement (turret/scan).
type ScanReading struct {
	Mode      string `json:"mode"` // "scan_down", "scan_up"
	Pos       uint16 `json:"pos"`
	Steps     uint16 `json:"steps"`
	Distance  uint16 `json:"mm"`
	Threshold uint16 `json:"threshold_mm"`
	Status    string `json:"status"` // sensor range status, telemetry only
	Contact   bool   `json:"contact"`
	TS        uint32 `json:"ts_ticks"`
}

// BaselinePoint is the learned threshold for one step (turret/baseline).
type BaselinePoint struct {
	Pos        uint16 `json:"pos"`
	Mean       uint16 `json:"mean_mm"`
	StdDevDeci uint32 `json:"stddev_deci_mm"` // tenths of a mm
	Threshold  uint16 `json:"threshold_mm"`
}

// ------------------------
// Targeting & audio
// ------------------------

// TargetStatus is retained on turret/target.
type TargetStatus struct {
	State string `json:"state"` // "no_contact", "early_contact", "lock"
	Start uint16 `json:"start"`
	End   uint16 `json:"end,omitempty"`
	TS    uint32 `json:"ts_ticks"`
}

// AudioEvent names the clip that just started (turret/audio).
type AudioEvent struct {
	Sound string `json:"sound"`
	Clip  string `json:"clip"`
	TS    uint32 `json:"ts_ticks"`
}

// PickupEvent is published on turret/pickup when the switch opens.
type PickupEvent struct {
	TS uint32 `json:"ts_ticks"`
}

// ------------------------
// Heartbeat
// ------------------------

// Heartbeat is retained on turret/heartbeat.
type Heartbeat struct {
	Beat   uint32 `json:"beat"`
	Uptime uint32 `json:"uptime_ticks"`
	Mode   string `json:"mode"`
	Pos    uint16 `json:"pos"`
	Steps  uint16 `json:"steps"`
	Target string `json:"target"`
	Audio  bool   `json:"audio_busy"`
}

// HeartbeatConfig changes the beat interval (config/heartbeat).
type HeartbeatConfig struct {
	IntervalMs uint32 `json:"interval_ms"`
}

// BridgeState is retained on bridge/state.
type BridgeState struct {
	Level  string `json:"level"`  // "up", "degraded", "error", "idle"
	Status string `json:"status"` // short machine string
	Error  string `json:"error,omitempty"`
	TS     int64  `json:"ts_ms"`
}
