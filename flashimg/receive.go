package flashimg

import (
	"context"

	"turret-go/errcode"
	"turret-go/x/conv"
)

// Flash is the block device the image is written to. TinyGo's
// machine.Flash satisfies it.
type Flash interface {
	WriteAt(p []byte, off int64) (int, error)
	Size() int64
	EraseBlockSize() int64
	EraseBlocks(start, length int64) error
}

// Receiver is the device side of the upload.
type Receiver struct {
	Flash     Flash
	Link      Link
	BlockSize int // DefaultBlockSize when zero, at most 65535

	// Erased is called once the target area is erased, before the block
	// size is announced.
	Erased func(n int)
	// Block is called after each block is written.
	Block func(done, total int)
}

// Receive runs one upload and returns the image length written.
func (r *Receiver) Receive(ctx context.Context) (int, error) {
	const op = "flashimg.receive"
	block := r.BlockSize
	if block <= 0 {
		block = DefaultBlockSize
	}
	if block > 0xffff {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "block size " + conv.Itoa(block) + " does not fit u16"}
	}

	var hdr [4]byte
	if err := recvFull(ctx, r.Link, hdr[:]); err != nil {
		return 0, err
	}
	total := int(fromBE32(hdr[:]))
	switch {
	case total == 0 || total%4 != 0:
		return 0, &errcode.E{C: errcode.Protocol, Op: op, Msg: "bad image length " + conv.Itoa(total)}
	case int64(total) > r.Flash.Size():
		return 0, &errcode.E{C: errcode.OutOfSpace, Op: op, Msg: "image larger than flash"}
	}

	eb := r.Flash.EraseBlockSize()
	if err := r.Flash.EraseBlocks(0, (int64(total)+eb-1)/eb); err != nil {
		return 0, &errcode.E{C: errcode.Error, Op: op, Msg: "erase", Err: err}
	}
	if r.Erased != nil {
		r.Erased(total)
	}

	bs := [2]byte{byte(block >> 8), byte(block)}
	if err := sendAll(r.Link, bs[:]); err != nil {
		return 0, err
	}

	buf := make([]byte, block+4)
	for off := 0; off < total; off += block {
		n := min(block, total-off)
		if err := recvFull(ctx, r.Link, buf[:n+4]); err != nil {
			return off, err
		}
		want := fromBE32(buf[n : n+4])
		if got := CRC32MPEG2(buf[:n]); got != want {
			_ = sendAll(r.Link, []byte{Nak})
			return off, &errcode.E{C: errcode.CRCMismatch, Op: op, Msg: "block at " + conv.Itoa(off) + ": got " + conv.Hex32(got) + " want " + conv.Hex32(want)}
		}
		if _, err := r.Flash.WriteAt(buf[:n], int64(off)); err != nil {
			_ = sendAll(r.Link, []byte{Nak})
			return off, &errcode.E{C: errcode.Error, Op: op, Msg: "write", Err: err}
		}
		if err := sendAll(r.Link, []byte{Ack}); err != nil {
			return off, err
		}
		if r.Block != nil {
			r.Block(off+n, total)
		}
	}
	return total, nil
}
