package mathx

import "golang.org/x/exp/constraints"

// CeilDiv returns ceil(a/b). b == 0 yields 0.
func CeilDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// RoundDiv returns floor((a + b/2)/b). b == 0 yields 0.
func RoundDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}

// MulDiv returns a*num/den with a 64-bit intermediate, truncated.
func MulDiv(a, num, den uint32) uint32 {
	if den == 0 {
		return 0
	}
	return uint32(uint64(a) * uint64(num) / uint64(den))
}
