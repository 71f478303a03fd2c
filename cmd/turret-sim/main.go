//go:build !rp2040 && !rp2350

// turret-sim runs the turret firmware logic against a simulated scene on
// the host, optionally through the sound card and real GPIO lines.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"turret-go/bus"
	"turret-go/config"
	"turret-go/internal/platform"
	"turret-go/services/bridge"
	cfgsvc "turret-go/services/config"
	"turret-go/services/heartbeat"
	"turret-go/turret"
)

var version = "dev"

type options struct {
	configPath string
	objects    []string
	duration   time.Duration
	scans      bool
	link       string
	prefix     string
	sim        platform.SimOptions
}

func main() {
	o := options{sim: platform.DefaultSimOptions()}
	steps := 0

	cmd := &cobra.Command{
		Use:   "turret-sim",
		Short: "Run the sentry turret against a simulated scene",
		Long: `turret-sim runs the sweep, targeting and audio state machines on the host.
The sensor looks at a flat wall with objects that appear after a number of
measurements. Telemetry goes out as JSON lines over --link, and lines
sent back on config/ topics (e.g. config/heartbeat) are applied.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 0 || steps > 0xFFFF {
				return fmt.Errorf("steps out of range: %d", steps)
			}
			o.sim.Steps = uint16(steps)
			if cmd.Flags().Changed("object") {
				o.sim.Objects = nil
				for _, s := range o.objects {
					obj, err := parseObject(s)
					if err != nil {
						return err
					}
					o.sim.Objects = append(o.sim.Objects, obj)
				}
			}
			return run(cmd.Context(), o)
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "JSON config overriding the defaults")
	f.IntVar(&steps, "steps", 0, "sweep steps (default from config)")
	f.Uint16Var(&o.sim.Wall, "wall", o.sim.Wall, "background distance in mm")
	f.IntVar(&o.sim.Noise, "noise", o.sim.Noise, "sensor noise in +/- mm")
	f.Int64Var(&o.sim.Seed, "seed", o.sim.Seed, "random seed")
	f.StringArrayVar(&o.objects, "object", nil, "object as from:to:mm[@appear], repeatable")
	f.StringVar(&o.sim.ClipImage, "clips", "", "SimpleFS clip image (default: generated tones)")
	f.BoolVar(&o.sim.Sound, "sound", false, "play audio through the sound card")
	f.StringVar(&o.sim.I2CBus, "i2c", "", "range with a real VL53L1X on this I2C bus instead of the scene")
	f.StringVar(&o.sim.GPIOChip, "gpiochip", "", "drive laser/LED and read the pick-up switch on this chip")
	f.IntVar(&o.sim.LaserLine, "laser-line", 17, "laser line offset")
	f.IntVar(&o.sim.LEDLine, "led-line", 27, "LED line offset")
	f.IntVar(&o.sim.PickupLine, "pickup-line", 22, "pick-up switch line offset")
	f.DurationVar(&o.duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	f.StringVar(&o.link, "link", "stdio", "telemetry link: stdio, serial:<port>[@baud], mqtt:<broker-url> or none")
	f.StringVar(&o.prefix, "mqtt-prefix", "sentry", "topic prefix on the MQTT broker")
	f.BoolVar(&o.scans, "scans", false, "also forward every scan reading")

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	board, plat, err := platform.OpenSim(cfg, o.sim)
	if err != nil {
		return fmt.Errorf("open board: %w", err)
	}
	defer plat.Close()

	b := bus.NewBus(cfg.BusQueueLen)
	if err := cfgsvc.NewConfigService("sim").Publish(b.NewConnection("config")); err != nil {
		return err
	}
	app, err := turret.New(cfg, board, b.NewConnection("turret"))
	if err != nil {
		return err
	}
	log.Printf("[sim] %d steps, %d objects", app.Steps(), len(o.sim.Objects))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.duration)
		defer cancel()
	}

	linkDone := make(chan struct{})
	if bc, ok := bridgeConfig(o.link, o.prefix, o.scans); ok {
		bconn := b.NewConnection("bridge")
		bconn.Publish(bconn.NewMessage(bridge.TopicConfig, bc, true))
		go func() {
			defer close(linkDone)
			bridge.Start(ctx, bconn)
		}()
	} else {
		close(linkDone)
	}

	err = app.Run(ctx)
	interrupted := ctx.Err() != nil
	stop()
	<-linkDone
	if interrupted {
		return nil
	}
	return err
}

// parseObject reads from:to:mm with an optional @appear suffix.
func parseObject(s string) (platform.Object, error) {
	var o platform.Object
	spec, appear, hasAppear := strings.Cut(s, "@")
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return o, fmt.Errorf("object %q: want from:to:mm[@appear]", s)
	}
	var vals [3]uint16
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return o, fmt.Errorf("object %q: %w", s, err)
		}
		vals[i] = uint16(v)
	}
	if vals[0] > vals[1] {
		return o, fmt.Errorf("object %q: from after to", s)
	}
	o.From, o.To, o.Distance = vals[0], vals[1], vals[2]
	if hasAppear {
		n, err := strconv.Atoi(appear)
		if err != nil || n < 0 {
			return o, fmt.Errorf("object %q: bad appear count", s)
		}
		o.Appear = n
	}
	return o, nil
}

// bridgeConfig turns the --link flag into a bridge configuration.
func bridgeConfig(link, prefix string, scans bool) (bridge.Config, bool) {
	var c bridge.Config
	switch {
	case link == "" || link == "none":
		return c, false
	case link == "stdio":
		c.Transport.Type = "stdio"
	case strings.HasPrefix(link, "serial:"):
		port, baud, _ := strings.Cut(strings.TrimPrefix(link, "serial:"), "@")
		n, _ := strconv.Atoi(baud)
		c.Transport = bridge.TransportConfig{Type: "serial", Serial: &bridge.SerialConfig{Port: port, Baud: n}}
	case strings.HasPrefix(link, "mqtt:"):
		c.Transport = bridge.TransportConfig{Type: "mqtt", MQTT: &bridge.MQTTConfig{
			Broker:   strings.TrimPrefix(link, "mqtt:"),
			ClientID: "turret-sim",
			Prefix:   prefix,
		}}
	default:
		c.Transport.Type = link
	}
	if !scans {
		c.Forward = []string{
			turret.TopicTarget.String(),
			turret.TopicAudio.String(),
			turret.TopicBaseline.String(),
			turret.TopicPickup.String(),
			heartbeat.TopicStatus.String(),
		}
	}
	return c, true
}
