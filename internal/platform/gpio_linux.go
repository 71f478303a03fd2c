//go:build linux && !rp2040 && !rp2350

package platform

import (
	"log"

	"github.com/warthog618/go-gpiocdev"

	"turret-go/errcode"
)

// GPIO hands out lines of one Linux GPIO chip.
type GPIO struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

func OpenGPIO(name string) (*GPIO, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, errcode.Wrap(errcode.NotFound, "gpio "+name, err)
	}
	return &GPIO{chip: chip}, nil
}

// Output requests offset as an output driven low.
func (g *GPIO) Output(offset int) (*LinePin, error) {
	l, err := g.chip.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, errcode.Wrap(errcode.Bus, "gpio request", err)
	}
	g.lines = append(g.lines, l)
	return &LinePin{l: l}, nil
}

// Input requests offset as an input with the pull-up enabled.
func (g *GPIO) Input(offset int) (*LinePin, error) {
	l, err := g.chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return nil, errcode.Wrap(errcode.Bus, "gpio request", err)
	}
	g.lines = append(g.lines, l)
	return &LinePin{l: l}, nil
}

func (g *GPIO) Close() error {
	for _, l := range g.lines {
		l.Close()
	}
	g.lines = nil
	return g.chip.Close()
}

type LinePin struct{ l *gpiocdev.Line }

func (p *LinePin) Set(on bool) {
	v := 0
	if on {
		v = 1
	}
	if err := p.l.SetValue(v); err != nil {
		log.Printf("[gpio] set %d: %v", p.l.Offset(), err)
	}
}

func (p *LinePin) Get() bool {
	v, err := p.l.Value()
	if err != nil {
		log.Printf("[gpio] get %d: %v", p.l.Offset(), err)
		return false
	}
	return v != 0
}
