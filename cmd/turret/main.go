//go:build rp2040

package main

import (
	"context"
	"time"

	"turret-go/bus"
	"turret-go/config"
	"turret-go/internal/platform"
	cfgsvc "turret-go/services/config"
	"turret-go/turret"
	"turret-go/types"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot")

	cfg := config.Default()
	board, _, err := platform.Open(cfg)
	if err != nil {
		println("[main] board:", err.Error())
		platform.Halt()
	}

	b := bus.NewBus(cfg.BusQueueLen)
	if err := cfgsvc.NewConfigService("pico").Publish(b.NewConnection("config")); err != nil {
		println("[main] config:", err.Error())
	}
	mon := b.NewConnection("monitor").Subscribe(bus.T("turret", "+"))

	// print telemetry between scans; the main loop never blocks
	idle := board.Idle
	board.Idle = func() {
		drain(mon)
		idle()
	}

	app, err := turret.New(cfg, board, b.NewConnection("turret"))
	if err != nil {
		println("[main] init:", err.Error())
		platform.Halt()
	}
	if err := app.Run(context.Background()); err != nil {
		println("[main] fatal:", err.Error())
	}
	platform.Halt()
}

func drain(sub *bus.Subscription) {
	for {
		select {
		case m := <-sub.Channel():
			show(m)
		default:
			return
		}
	}
}

func show(m *bus.Message) {
	switch p := m.Payload.(type) {
	case types.TargetStatus:
		println("[target]", p.State, p.Start, p.End)
	case types.AudioEvent:
		println("[audio]", p.Sound, p.Clip)
	case types.BaselinePoint:
		println("[baseline]", p.Pos, p.Mean, p.Threshold)
	case types.PickupEvent:
		println("[pickup]", p.TS)
	}
}
