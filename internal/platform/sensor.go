package platform

import (
	"time"

	"turret-go/drivers/vl53l1x"
	"turret-go/errcode"
)

// waitBooted polls the sensor's boot flag for up to 200 ms.
func waitBooted(d *vl53l1x.Device) error {
	for i := 0; i < 100; i++ {
		ok, err := d.Booted()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		time.Sleep(2 * time.Millisecond)
	}
	return &errcode.E{C: errcode.Timeout, Op: "vl53l1x.boot"}
}
