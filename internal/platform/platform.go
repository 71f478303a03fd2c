// Package platform builds a turret.Board for the target it is compiled
// for: the Pico hardware, or a simulated scene on the host.
package platform

import "turret-go/scheduler"

// Platform is an opened board plus the tick source driving its clock.
type Platform struct {
	Ticker *scheduler.Ticker
	Close  func() error
}
