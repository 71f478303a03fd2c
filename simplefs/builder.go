package simplefs

import (
	"bytes"
	"io"

	"turret-go/errcode"
)

// Builder assembles an image in memory. Files keep the order they were added in,
// which is also their directory index.
type Builder struct {
	capacity int
	names    []string
	data     [][]byte
	size     int
}

// NewBuilder returns a builder for a store of capacity bytes.
func NewBuilder(capacity int) *Builder {
	return &Builder{capacity: capacity, size: HeaderSize}
}

// Add appends a file.
func (b *Builder) Add(name string, data []byte) error {
	const op = "simplefs.add"
	switch {
	case len(name) == 0 || len(name) > MaxNameBytes:
		return &errcode.E{C: errcode.NameTooLong, Op: op, Msg: name}
	case len(b.names) >= MaxFiles:
		return &errcode.E{C: errcode.TooManyFiles, Op: op, Msg: name}
	case uint64(len(data)) > 0xffffffff:
		return &errcode.E{C: errcode.FileTooBig, Op: op, Msg: name}
	}
	for _, n := range b.names {
		if n == name {
			return &errcode.E{C: errcode.DuplicateName, Op: op, Msg: name}
		}
	}
	next := b.size + DirEntrySize + len(data)
	if next > b.capacity || uint64(next) > 0xffffffff {
		return &errcode.E{C: errcode.OutOfSpace, Op: op, Msg: name}
	}
	b.names = append(b.names, name)
	b.data = append(b.data, data)
	b.size = next
	return nil
}

func (b *Builder) NumFiles() int { return len(b.names) }

// Size is the length of the image built so far.
func (b *Builder) Size() int { return b.size }

// Bytes renders the image.
func (b *Builder) Bytes() []byte {
	img := make([]byte, b.size)
	putU64(img[0:8], Signature)
	putU16(img[8:10], uint16(len(b.names)))

	off := HeaderSize + len(b.names)*DirEntrySize
	for i, name := range b.names {
		e := DirEntry{Name: name, Offset: uint32(off), Length: uint32(len(b.data[i]))}
		encodeEntry(img[HeaderSize+i*DirEntrySize:], e)
		copy(img[off:], b.data[i])
		off += len(b.data[i])
	}
	return img
}

// WriteTo writes the image to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	return bytes.NewReader(b.Bytes()).WriteTo(w)
}
