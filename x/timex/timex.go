package timex

import "time"

// PeriodFromHz returns the period of a requested frequency.
// freqHz==0 is coerced to 1.
func PeriodFromHz(freqHz uint32) time.Duration {
	if freqHz == 0 {
		freqHz = 1
	}
	return time.Duration(uint64(time.Second) / uint64(freqHz))
}

// SamplesDuration returns how long n samples last at rateHz.
func SamplesDuration(n int, rateHz uint32) time.Duration {
	if n <= 0 {
		return 0
	}
	if rateHz == 0 {
		rateHz = 1
	}
	return time.Duration(uint64(n) * uint64(time.Second) / uint64(rateHz))
}
