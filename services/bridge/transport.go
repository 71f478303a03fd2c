package bridge

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/tarm/serial"
)

type stdioTransport struct{}

func (stdioTransport) Open(context.Context) (io.ReadWriteCloser, error) {
	return stdio{}, nil
}

func (stdioTransport) String() string { return "stdio" }

// stdio leaves the process streams open on Close.
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return nil }

type serialTransport struct{ cfg SerialConfig }

func newSerialTransport(cfg TransportConfig) (Transport, error) {
	if cfg.Serial == nil || cfg.Serial.Port == "" {
		return nil, errors.New("serial transport requires a port")
	}
	c := *cfg.Serial
	if c.Baud == 0 {
		c.Baud = 115200
	}
	if c.ReadTimeoutMS == 0 {
		c.ReadTimeoutMS = 200
	}
	return &serialTransport{cfg: c}, nil
}

func (t *serialTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	p, err := serial.OpenPort(&serial.Config{
		Name:        t.cfg.Port,
		Baud:        t.cfg.Baud,
		ReadTimeout: time.Duration(t.cfg.ReadTimeoutMS) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	return &pollPort{port: p, ctx: ctx}, nil
}

func (t *serialTransport) String() string { return "serial:" + t.cfg.Port }

// pollPort hides read timeouts, which the port reports as an empty read,
// until data arrives or the link is cancelled.
type pollPort struct {
	port io.ReadWriteCloser
	ctx  context.Context
}

func (p *pollPort) Read(b []byte) (int, error) {
	for {
		if err := p.ctx.Err(); err != nil {
			return 0, err
		}
		n, err := p.port.Read(b)
		if n > 0 || (err != nil && !errors.Is(err, io.EOF)) {
			return n, err
		}
	}
}

func (p *pollPort) Write(b []byte) (int, error) { return p.port.Write(b) }
func (p *pollPort) Close() error                { return p.port.Close() }
