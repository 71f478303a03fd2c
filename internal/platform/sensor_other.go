//go:build !linux && !rp2040 && !rp2350

package platform

import (
	"turret-go/drivers/vl53l1x"
	"turret-go/errcode"
)

func OpenI2CSensor(name string, _ bool) (*vl53l1x.Device, func() error, error) {
	return nil, nil, &errcode.E{C: errcode.NotFound, Op: "i2c " + name, Msg: "i2c needs linux"}
}
