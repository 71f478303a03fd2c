// Package conv formats integers for log and error text without fmt or
// strconv, which are heavy on the microcontroller.
package conv

const hexDigits = "0123456789ABCDEF"

// Utoa formats n in base 10.
func Utoa(n uint64) string {
	var b [20]byte
	i := len(b)
	for {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			return string(b[i:])
		}
	}
}

// Itoa formats n in base 10.
func Itoa(n int) string {
	if n < 0 {
		return "-" + Utoa(uint64(-int64(n)))
	}
	return Utoa(uint64(n))
}

// Hex32 formats n as 0x followed by eight uppercase digits.
func Hex32(n uint32) string {
	b := [10]byte{'0', 'x'}
	for i := 9; i >= 2; i-- {
		b[i] = hexDigits[n&0xF]
		n >>= 4
	}
	return string(b[:])
}
