package simulation

import (
	"github.com/benbjohnson/clock"
)

// options configures a Simulation.
type options struct {
	// clock times ticks and paces realtime runs.
	clock clock.Clock
	// sampleLimit bounds how many step durations are kept for the summary.
	sampleLimit int
}

func defaultOptions() options {
	return options{
		clock:       clock.New(),
		sampleLimit: DefaultSampleLimit,
	}
}

// Option configures how a Simulation is set up.
type Option interface {
	apply(*options)
}

// funcOption wraps a function that modifies options into an
// implementation of the Option interface.
type funcOption struct {
	f func(*options)
}

func (fdo *funcOption) apply(do *options) {
	fdo.f(do)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{
		f: f,
	}
}

// WithClock returns an Option which replaces the wall clock, typically with a mock in tests.
func WithClock(c clock.Clock) Option {
	return newFuncOption(func(o *options) {
		o.clock = c
	})
}

// WithSampleLimit returns an Option which sets how many of the most recent step durations are
// kept for the run summary. Values below 1 keep the default.
func WithSampleLimit(n int) Option {
	return newFuncOption(func(o *options) {
		if n > 0 {
			o.sampleLimit = n
		}
	})
}
