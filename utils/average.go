package utils

import "time"

// RollingAverage averages the most recent durations added to it.
type RollingAverage struct {
	data []time.Duration
	pos  int
	n    int
}

// NewRollingAverage returns an average over the last numSamples durations.
func NewRollingAverage(numSamples int) *RollingAverage {
	if numSamples < 1 {
		numSamples = 1
	}
	return &RollingAverage{data: make([]time.Duration, numSamples)}
}

// NumSamples is the window size.
func (ra *RollingAverage) NumSamples() int {
	return len(ra.data)
}

// Add records d, evicting the oldest sample once the window is full.
func (ra *RollingAverage) Add(d time.Duration) {
	ra.data[ra.pos] = d
	ra.pos++
	if ra.pos >= len(ra.data) {
		ra.pos = 0
	}
	if ra.n < len(ra.data) {
		ra.n++
	}
}

// Average is zero until something was added.
func (ra *RollingAverage) Average() time.Duration {
	if ra.n == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range ra.data[:ra.n] {
		sum += d
	}
	return sum / time.Duration(ra.n)
}
