// send-image uploads a SimpleFS image to a turret running flash-writer
// over a serial port.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/tarm/serial"

	"turret-go/flashimg"
)

var version = "dev"

func main() {
	var (
		port    string
		baud    int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send-image <image>",
		Short: "Upload a clip image to the turret flash",
		Long: `send-image streams <image> block by block to the flash-writer firmware.
Press the board's button once the port is open to start the transfer.`,
		Version: version,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return send(ctx, port, baud, img)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&port, "port", "p", "/dev/ttyACM0", "serial device")
	cmd.Flags().IntVarP(&baud, "baud", "b", 115200, "baud rate")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "give up after this long")

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

func send(ctx context.Context, name string, baud int, img []byte) error {
	p, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud, ReadTimeout: 100 * time.Millisecond})
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer p.Close()

	log.Printf("[send] %s open, %d bytes to send; press the button on the board", name, len(img))
	start := time.Now()
	last := -1
	err = flashimg.Send(ctx, pollLink{p}, img, func(done, total int) {
		pct := done * 100 / total
		if pct/10 != last/10 || done == total {
			last = pct
			log.Printf("[send] %3d%% %d/%d", pct, done, total)
		}
	})
	if err != nil {
		return err
	}
	log.Printf("[send] done in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

// pollLink treats an empty timed-out read as "nothing yet" and keeps
// polling until data arrives or ctx ends.
type pollLink struct{ rw io.ReadWriter }

func (l pollLink) Write(p []byte) (int, error) { return l.rw.Write(p) }

func (l pollLink) RecvSomeContext(ctx context.Context, p []byte) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := l.rw.Read(p)
		if n > 0 || (err != nil && !errors.Is(err, io.EOF)) {
			return n, err
		}
	}
}
