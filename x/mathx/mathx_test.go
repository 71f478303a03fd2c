package mathx

import "testing"

func TestISqrt(t *testing.T) {
	cases := []struct {
		in, floor, round uint64
	}{
		{0, 0, 0},
		{1, 1, 1},
		{2, 1, 1},
		{3, 1, 2},
		{4, 2, 2},
		{200, 14, 14},
		{210, 14, 14},
		{211, 14, 15},
		{1 << 40, 1 << 20, 1 << 20},
		{^uint64(0), 4294967295, 4294967296},
	}
	for _, c := range cases {
		if got := ISqrt(c.in); got != c.floor {
			t.Errorf("ISqrt(%d) = %d, want %d", c.in, got, c.floor)
		}
		if got := ISqrtRound(c.in); got != c.round {
			t.Errorf("ISqrtRound(%d) = %d, want %d", c.in, got, c.round)
		}
	}
}

func TestClampSwapsBounds(t *testing.T) {
	if got := Clamp(5, 10, 0); got != 5 {
		t.Fatalf("Clamp = %d", got)
	}
	if got := Clamp(-3, 10, 0); got != 0 {
		t.Fatalf("Clamp = %d", got)
	}
	if got := Clamp[uint16](300, 0, 100); got != 100 {
		t.Fatalf("Clamp = %d", got)
	}
}

func TestIntegerHelpers(t *testing.T) {
	if AbsDiff[uint16](10, 18) != 8 || AbsDiff[uint16](18, 10) != 8 {
		t.Fatal("AbsDiff")
	}
	if CeilDiv[uint32](101, 10) != 11 || CeilDiv[uint32](100, 10) != 10 || CeilDiv[uint32](1, 0) != 0 {
		t.Fatal("CeilDiv")
	}
	if RoundDiv[uint32](14, 10) != 1 || RoundDiv[uint32](15, 10) != 2 {
		t.Fatal("RoundDiv")
	}
	if MulDiv(1000, 1, 3) != 333 || MulDiv(4000000000, 3, 4) != 3000000000 {
		t.Fatal("MulDiv")
	}
}
