// Package simplefs reads and builds the flat, read-only clip store kept
// in flash.
//
// Layout (all integers big-endian):
//
//	header   signature u64 ("SimpleFS") | num_files u16
//	dir      num_files x { name [16]byte NUL-padded | offset u32 | length u32 }
//	payload  file data, offsets are absolute within the image
package simplefs

const (
	Signature    uint64 = 0x53696d706c654653 // "SimpleFS"
	HeaderSize          = 10
	DirEntrySize        = 24
	MaxNameBytes        = 16
	MaxFiles            = 0xffff
)

// DirEntry describes one stored file.
type DirEntry struct {
	Name   string
	Offset uint32
	Length uint32
}

func putU16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func putU64(b []byte, v uint64) {
	putU32(b[:4], uint32(v>>32))
	putU32(b[4:8], uint32(v))
}

func getU16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }

func getU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func getU64(b []byte) uint64 { return uint64(getU32(b[:4]))<<32 | uint64(getU32(b[4:8])) }

func encodeEntry(b []byte, e DirEntry) {
	clear(b[:MaxNameBytes])
	copy(b[:MaxNameBytes], e.Name)
	putU32(b[16:20], e.Offset)
	putU32(b[20:24], e.Length)
}

func decodeEntry(b []byte) DirEntry {
	name := b[:MaxNameBytes]
	n := 0
	for n < len(name) && name[n] != 0 {
		n++
	}
	return DirEntry{
		Name:   string(name[:n]),
		Offset: getU32(b[16:20]),
		Length: getU32(b[20:24]),
	}
}
