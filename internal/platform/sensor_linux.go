//go:build linux && !rp2040 && !rp2350

package platform

import (
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"

	"turret-go/drivers/vl53l1x"
	"turret-go/errcode"
)

// OpenI2CSensor brings up a real VL53L1X on a Linux I2C bus ("1" for
// /dev/i2c-1, "" for the first bus found). periph's bus has the same Tx
// method as the TinyGo I2C interface, so the driver runs unchanged.
func OpenI2CSensor(name string, use2v8 bool) (*vl53l1x.Device, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, errcode.Wrap(errcode.Bus, "periph.init", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, nil, errcode.Wrap(errcode.Bus, "i2c.open", err)
	}
	d := vl53l1x.New(bus)
	if err := waitBooted(d); err != nil {
		bus.Close()
		return nil, nil, err
	}
	if err := d.Init(use2v8); err != nil {
		bus.Close()
		return nil, nil, err
	}
	return d, bus.Close, nil
}
