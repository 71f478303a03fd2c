//go:build rp2040

// flash-writer receives a clip store image over UART0 and writes it to
// the Pico's data flash, where the turret firmware mounts it.
package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"turret-go/flashimg"
	"turret-go/internal/platform"
)

func main() {
	time.Sleep(2 * time.Second)
	println("[flash] boot, flash size", machine.Flash.Size())

	u := uartx.UART0
	if err := u.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	}); err != nil {
		println("[flash] uart:", err.Error())
		platform.Halt()
	}

	println("[flash] press the button to start")
	platform.Button()

	r := flashimg.Receiver{
		Flash: machine.Flash,
		Link:  u,
		Erased: func(n int) {
			println("[flash] erased", n, "bytes")
		},
		Block: func(done, total int) {
			println("[flash] block", done, "/", total)
		},
	}
	n, err := r.Receive(context.Background())
	if err != nil {
		println("[flash] failed:", err.Error())
		platform.Halt()
	}
	println("[flash] wrote", n, "bytes")
	platform.Halt()
}
