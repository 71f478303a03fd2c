package flashimg

import (
	"context"

	"turret-go/errcode"
	"turret-go/x/conv"
)

// Progress is told how many image bytes have been acknowledged.
type Progress func(done, total int)

// Send uploads image over l. The image is padded to a multiple of 4.
func Send(ctx context.Context, l Link, image []byte, progress Progress) error {
	image = Pad(image)
	if uint64(len(image)) > 0xffffffff {
		return &errcode.E{C: errcode.InvalidParams, Op: "flashimg.send", Msg: "image too large"}
	}

	hdr := be32(uint32(len(image)))
	if err := sendAll(l, hdr[:]); err != nil {
		return err
	}

	var bs [2]byte
	if err := recvFull(ctx, l, bs[:]); err != nil {
		return err
	}
	block := int(bs[0])<<8 | int(bs[1])
	if block == 0 {
		return &errcode.E{C: errcode.Protocol, Op: "flashimg.send", Msg: "zero block size"}
	}

	var ack [1]byte
	for off := 0; off < len(image); off += block {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(off+block, len(image))
		chunk := image[off:end]
		crc := be32(CRC32MPEG2(chunk))
		if err := sendAll(l, chunk); err != nil {
			return err
		}
		if err := sendAll(l, crc[:]); err != nil {
			return err
		}
		if err := recvFull(ctx, l, ack[:]); err != nil {
			return err
		}
		if ack[0] != Ack {
			return &errcode.E{C: errcode.BadAck, Op: "flashimg.send", Msg: "block at " + conv.Itoa(off)}
		}
		if progress != nil {
			progress(end, len(image))
		}
	}
	return nil
}
