package mathx

// ISqrt returns floor(sqrt(x)).
func ISqrt(x uint64) uint64 {
	if x < 2 {
		return x
	}
	// Newton iteration from an over-estimate converges downwards.
	r := x
	y := r/2 + r%2
	for y < r {
		r = y
		y = (r + x/r) / 2
	}
	return r
}

// ISqrtRound returns sqrt(x) rounded to the nearest integer.
func ISqrtRound(x uint64) uint64 {
	r := ISqrt(x)
	// (r+0.5)^2 = r^2 + r + 0.25, so round up when x - r^2 > r.
	if x-r*r > r {
		r++
	}
	return r
}
