package vl53l1x

import (
	tgvl53l1x "tinygo.org/x/drivers/vl53l1x"
)

// Init resets the sensor, waits for it to boot and loads the default
// configuration, then leaves ranging stopped with VHV bounds set for
// temperature-compensated restarts. It blocks and is meant for board
// bring-up before the scheduler starts.
func (d *Device) Init(use2v8 bool) error {
	base := tgvl53l1x.New(d.bus)
	base.Address = d.Address
	if !base.Configure(use2v8) {
		return ErrNoDevice
	}
	base.StopContinuous()
	if err := d.ClearInterrupt(); err != nil {
		return err
	}
	if err := d.StopRanging(); err != nil {
		return err
	}
	if err := d.write8(regVHVConfigTimeoutLoopBound, 0x09); err != nil { // two bounds VHV
		return err
	}
	return d.write8(regVHVConfigInit, 0) // start VHV from the previous temperature
}
