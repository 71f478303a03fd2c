// Package vl53l1x is a register-level driver for the ST VL53L1X time-of-flight
// ranging sensor, following the ST ultra-lite driver (ULD) call set.
//
// Usage (split-phase, never blocks):
//
//	d := vl53l1x.New(i2c)
//	_ = d.SetTimingBudget(vl53l1x.Budget100ms)
//	_ = d.StartRanging()
//	// ... later
//	if ok, _ := d.CheckForDataReady(); ok {
//		mm, _ := d.Distance()
//		_ = d.ClearInterrupt()
//	}
package vl53l1x

import (
	"errors"

	"tinygo.org/x/drivers"

	"turret-go/errcode"
	"turret-go/x/conv"
)

// Address is the default 7-bit I2C address.
const Address = 0x29

var (
	ErrInvalidTimingBudget = errors.New("vl53l1x: invalid timing budget")
	ErrTimingForMode       = errors.New("vl53l1x: timing budget unsupported in distance mode")
	ErrInvalidDistanceMode = errors.New("vl53l1x: invalid distance mode")
	ErrNoDevice            = errors.New("vl53l1x: device not found")
)

type DistanceMode uint8

const (
	Short DistanceMode = iota + 1
	Long
)

func (m DistanceMode) String() string {
	switch m {
	case Short:
		return "short"
	case Long:
		return "long"
	}
	return "invalid"
}

type TimingBudget uint16

// Budgets supported by the ULD tables, in milliseconds.
const (
	Budget15ms  TimingBudget = 15 // short mode only
	Budget20ms  TimingBudget = 20
	Budget33ms  TimingBudget = 33
	Budget50ms  TimingBudget = 50
	Budget100ms TimingBudget = 100
	Budget200ms TimingBudget = 200
	Budget500ms TimingBudget = 500
)

func (b TimingBudget) Millis() uint32 { return uint32(b) }

// StatusKind classifies a range status register value.
type StatusKind uint8

const (
	StatusOK StatusKind = iota
	StatusSigmaFailure
	StatusSignalFailure
	StatusOutOfBounds
	StatusWraparound
	StatusUndocumented
	StatusInvalid
)

// RangeStatus is the decoded result of the last measurement. Code carries
// the ULD status number for undocumented values and the raw register value
// for invalid ones.
type RangeStatus struct {
	Kind StatusKind
	Code uint8
}

func (s RangeStatus) OK() bool { return s.Kind == StatusOK }

func (s RangeStatus) String() string {
	switch s.Kind {
	case StatusOK:
		return "ok"
	case StatusSigmaFailure:
		return "sigma failure"
	case StatusSignalFailure:
		return "signal failure"
	case StatusOutOfBounds:
		return "out of bounds"
	case StatusWraparound:
		return "wraparound"
	case StatusUndocumented:
		return "undocumented(" + conv.Utoa(uint64(s.Code)) + ")"
	}
	return "invalid(" + conv.Utoa(uint64(s.Code)) + ")"
}

func decodeStatus(raw uint8) RangeStatus {
	switch raw & 0x1f {
	case 9:
		return RangeStatus{Kind: StatusOK}
	case 4:
		return RangeStatus{Kind: StatusSignalFailure}
	case 5:
		return RangeStatus{Kind: StatusOutOfBounds}
	case 6:
		return RangeStatus{Kind: StatusSigmaFailure}
	case 7:
		return RangeStatus{Kind: StatusWraparound}
	case 3:
		return RangeStatus{Kind: StatusUndocumented, Code: 5}
	case 8:
		return RangeStatus{Kind: StatusUndocumented, Code: 3}
	case 12:
		return RangeStatus{Kind: StatusUndocumented, Code: 9}
	case 13:
		return RangeStatus{Kind: StatusUndocumented, Code: 13}
	case 18:
		return RangeStatus{Kind: StatusUndocumented, Code: 10}
	case 19:
		return RangeStatus{Kind: StatusUndocumented, Code: 6}
	case 22:
		return RangeStatus{Kind: StatusUndocumented, Code: 11}
	case 23:
		return RangeStatus{Kind: StatusUndocumented, Code: 12}
	}
	return RangeStatus{Kind: StatusInvalid, Code: raw & 0x1f}
}

// Device is a VL53L1X on an I2C bus.
type Device struct {
	bus     drivers.I2C
	Address uint16

	w [6]byte
	r [4]byte
}

func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, Address: Address}
}

// Booted reports whether the sensor firmware has finished booting.
func (d *Device) Booted() (bool, error) {
	v, err := d.read8(regFirmwareSystemStatus)
	return v != 0, err
}

func (d *Device) StartRanging() error { return d.write8(regModeStart, modeStartRanging) }

func (d *Device) StopRanging() error { return d.write8(regModeStart, modeStopRanging) }

// ClearInterrupt re-arms the data-ready flag after a reading.
func (d *Device) ClearInterrupt() error { return d.write8(regInterruptClear, 0x01) }

// interruptPolarity returns 1 for active high (default), 0 for active low.
func (d *Device) interruptPolarity() (uint8, error) {
	v, err := d.read8(regGPIOHVMuxCtrl)
	if err != nil {
		return 0, err
	}
	return ((v & 0x10) >> 4) ^ 1, nil
}

// CheckForDataReady polls the data-ready flag.
func (d *Device) CheckForDataReady() (bool, error) {
	pol, err := d.interruptPolarity()
	if err != nil {
		return false, err
	}
	v, err := d.read8(regGPIOTIOHVStatus)
	if err != nil {
		return false, err
	}
	return v&0x01 == pol, nil
}

// Distance returns the last measured distance in millimetres.
func (d *Device) Distance() (uint16, error) { return d.read16(regResultRangeMM) }

func (d *Device) RangeStatus() (RangeStatus, error) {
	v, err := d.read8(regResultRangeStatus)
	if err != nil {
		return RangeStatus{}, err
	}
	return decodeStatus(v), nil
}

// DistanceMode reads the programmed distance mode.
func (d *Device) DistanceMode() (DistanceMode, error) {
	v, err := d.read8(regPhasecalTimeoutMacrop)
	if err != nil {
		return 0, err
	}
	switch v {
	case phasecalShort:
		return Short, nil
	case phasecalLong:
		return Long, nil
	}
	return 0, ErrInvalidDistanceMode
}

// TimingBudget reads the programmed timing budget.
func (d *Device) TimingBudget() (TimingBudget, error) {
	a, err := d.read16(regRangeTimeoutAHi)
	if err != nil {
		return 0, err
	}
	for _, tbl := range []map[TimingBudget]timeouts{shortTimeouts, longTimeouts} {
		for b, t := range tbl {
			if t.a == a {
				return b, nil
			}
		}
	}
	return 0, ErrInvalidTimingBudget
}

// SetTimingBudget programs the budget for the current distance mode, so
// call it after SetDistanceMode.
func (d *Device) SetTimingBudget(b TimingBudget) error {
	mode, err := d.DistanceMode()
	if err != nil {
		return err
	}
	tbl := shortTimeouts
	if mode == Long {
		tbl = longTimeouts
	}
	t, ok := tbl[b]
	if !ok {
		if _, known := shortTimeouts[b]; known {
			return ErrTimingForMode
		}
		return ErrInvalidTimingBudget
	}
	if err := d.write16(regRangeTimeoutAHi, t.a); err != nil {
		return err
	}
	return d.write16(regRangeTimeoutBHi, t.b)
}

// SetDistanceMode switches mode and restores the current timing budget
// for the new mode.
func (d *Device) SetDistanceMode(m DistanceMode) error {
	var regs modeRegs
	switch m {
	case Short:
		regs = shortModeRegs
	case Long:
		regs = longModeRegs
	default:
		return ErrInvalidDistanceMode
	}
	budget, err := d.TimingBudget()
	if err != nil {
		return err
	}
	for _, w := range []struct {
		reg uint16
		v   uint8
	}{
		{regPhasecalTimeoutMacrop, regs.phasecal},
		{regRangeVCSELPeriodA, regs.vcselA},
		{regRangeVCSELPeriodB, regs.vcselB},
		{regRangeValidPhaseHigh, regs.validPhase},
	} {
		if err := d.write8(w.reg, w.v); err != nil {
			return err
		}
	}
	if err := d.write16(regSDConfigWOISD0, regs.woi); err != nil {
		return err
	}
	if err := d.write16(regSDConfigInitialPhaseSD0, regs.initialPhase); err != nil {
		return err
	}
	return d.SetTimingBudget(budget)
}

// SetInterMeasurement programs the period between continuous measurements.
// It must be at least the timing budget; that is not checked here.
func (d *Device) SetInterMeasurement(ms uint32) error {
	osc, err := d.read16(regResultOscCalibrateVal)
	if err != nil {
		return err
	}
	clockPLL := uint32(osc) & 0x3ff
	ticks := clockPLL * ms * 43 / 40 // 1.075 as in the ST driver
	return d.write32(regIntermeasurementPeriod, ticks)
}

// --- bus helpers ---

func (d *Device) setReg(reg uint16) {
	d.w[0] = byte(reg >> 8)
	d.w[1] = byte(reg)
}

func (d *Device) tx(op string, w, r []byte) error {
	return errcode.Wrap(errcode.Bus, op, d.bus.Tx(d.Address, w, r))
}

func (d *Device) read8(reg uint16) (uint8, error) {
	d.setReg(reg)
	if err := d.tx("vl53l1x.read8", d.w[:2], d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

func (d *Device) read16(reg uint16) (uint16, error) {
	d.setReg(reg)
	if err := d.tx("vl53l1x.read16", d.w[:2], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func (d *Device) write8(reg uint16, v uint8) error {
	d.setReg(reg)
	d.w[2] = v
	return d.tx("vl53l1x.write8", d.w[:3], nil)
}

func (d *Device) write16(reg uint16, v uint16) error {
	d.setReg(reg)
	d.w[2] = byte(v >> 8)
	d.w[3] = byte(v)
	return d.tx("vl53l1x.write16", d.w[:4], nil)
}

func (d *Device) write32(reg uint16, v uint32) error {
	d.setReg(reg)
	d.w[2] = byte(v >> 24)
	d.w[3] = byte(v >> 16)
	d.w[4] = byte(v >> 8)
	d.w[5] = byte(v)
	return d.tx("vl53l1x.write32", d.w[:6], nil)
}
