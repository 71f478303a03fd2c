// Package flashimg moves a clip-store image from a host to device flash
// over a serial link.
//
// Wire protocol (integers big-endian):
//
//	host   -> device  image length u32 (multiple of 4)
//	device -> host    block size u16
//	for each block:
//	host   -> device  block bytes, CRC-32/MPEG-2 of the block u32
//	device -> host    one ack byte: Ack continues, anything else aborts
package flashimg

import (
	"context"
	"io"

	"turret-go/errcode"
)

const (
	Ack              = 42
	Nak              = 0
	DefaultBlockSize = 4096
)

// Link is a byte stream with a cancellable receive, as offered by the
// RP2040 UART driver.
type Link interface {
	Write(p []byte) (int, error)
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

// StreamLink adapts a plain io.ReadWriter (a host serial port, a pipe).
// Cancellation is only observed between reads.
type StreamLink struct{ RW io.ReadWriter }

func (s StreamLink) Write(p []byte) (int, error) { return s.RW.Write(p) }

func (s StreamLink) RecvSomeContext(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.RW.Read(p)
}

func recvFull(ctx context.Context, l Link, p []byte) error {
	for len(p) > 0 {
		n, err := l.RecvSomeContext(ctx, p)
		p = p[n:]
		if err != nil {
			if len(p) == 0 {
				return nil
			}
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return &errcode.E{C: errcode.Of(err), Op: "flashimg.recv", Err: err}
		}
	}
	return nil
}

func sendAll(l Link, p []byte) error {
	for len(p) > 0 {
		n, err := l.Write(p)
		if err != nil {
			return &errcode.E{C: errcode.Of(err), Op: "flashimg.send", Err: err}
		}
		if n == 0 {
			return &errcode.E{C: errcode.Error, Op: "flashimg.send", Err: io.ErrShortWrite}
		}
		p = p[n:]
	}
	return nil
}

func be32(v uint32) [4]byte { return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)} }

func fromBE32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// Pad returns img extended with zeros to a multiple of 4 bytes.
func Pad(img []byte) []byte {
	if r := len(img) % 4; r != 0 {
		return append(img, make([]byte, 4-r)...)
	}
	return img
}
