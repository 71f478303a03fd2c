package flashimg

import "github.com/snksoft/crc"

// CRC-32/MPEG-2: MSB-first, no final xor.
var crcTable = crc.NewTable(&crc.Parameters{
	Width:      32,
	Polynomial: 0x04c11db7,
	Init:       0xffffffff,
	ReflectIn:  false,
	ReflectOut: false,
	FinalXor:   0,
})

// CRC32MPEG2 returns the checksum of p.
func CRC32MPEG2(p []byte) uint32 { return uint32(crcTable.CalculateCRC(p)) }
