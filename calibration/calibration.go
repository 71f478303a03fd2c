// Package calibration turns a short window of distance samples into a
// per-position contact threshold (a one-sided lower control limit).
package calibration

import "turret-go/x/mathx"

// Samples is the fixed window size.
const Samples = 5

// DefaultSigmas is the threshold distance below the mean, in standard deviations.
const DefaultSigmas = 3

// Point is the statistic of one completed window, in millimetres.
type Point struct {
	Mean       uint16
	StdDev     uint16 // rounded
	StdDevDeci uint32 // tenths of a millimetre
}

// Threshold returns max(0, Mean - sigmas*StdDev).
func (p Point) Threshold(sigmas uint32) uint16 {
	off := mathx.RoundDiv(sigmas*p.StdDevDeci, 10)
	if off >= uint32(p.Mean) {
		return 0
	}
	return p.Mean - uint16(off)
}

// Calibration accumulates up to Samples readings. The zero value is ready to use.
type Calibration struct {
	samples [Samples]uint16
	n       int
}

// AddSample records one reading. Readings past the window are dropped.
func (c *Calibration) AddSample(mm uint16) {
	if c.n >= Samples {
		return
	}
	c.samples[c.n] = mm
	c.n++
}

func (c *Calibration) NumSamples() int { return c.n }

func (c *Calibration) Complete() bool { return c.n >= Samples }

// Point returns the population mean and standard deviation once the
// window is complete.
func (c *Calibration) Point() (Point, bool) {
	if !c.Complete() {
		return Point{}, false
	}
	var sum, sumsq uint64
	for _, s := range c.samples[:c.n] {
		v := uint64(s)
		sum += v
		sumsq += v * v
	}
	n := uint64(c.n)

	// var = (n*sumsq - sum^2) / n^2, scaled by 100 for tenths.
	spread := n*sumsq - sum*sum
	deci := mathx.ISqrtRound(100 * spread / (n * n))

	return Point{
		Mean:       uint16(mathx.RoundDiv(sum, n)),
		StdDev:     uint16(mathx.RoundDiv(deci, 10)),
		StdDevDeci: uint32(deci),
	}, true
}

// Reset empties the window.
func (c *Calibration) Reset() { *c = Calibration{} }
