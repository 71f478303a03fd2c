//go:build !linux && !rp2040 && !rp2350

package platform

import "turret-go/errcode"

type GPIO struct{}

type LinePin struct{}

func OpenGPIO(name string) (*GPIO, error) {
	return nil, &errcode.E{C: errcode.NotFound, Op: "gpio " + name, Msg: "gpio needs linux"}
}

func (g *GPIO) Output(int) (*LinePin, error) { return nil, errcode.NotFound }
func (g *GPIO) Input(int) (*LinePin, error)  { return nil, errcode.NotFound }
func (g *GPIO) Close() error                 { return nil }

func (p *LinePin) Set(bool)  {}
func (p *LinePin) Get() bool { return false }
