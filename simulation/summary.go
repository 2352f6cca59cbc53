package simulation

import (
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/crowdsim/collision"
)

// DefaultSampleLimit is how many step durations a simulation keeps for its summary.
const DefaultSampleLimit = 1 << 16

// Summary aggregates the ticks of a run.
type Summary struct {
	RunID   string
	Objects int
	Ticks   int64
	// Samples is how many step durations the timing fields are computed over.
	Samples int

	StepMean   time.Duration
	StepStdDev time.Duration
	StepP50    time.Duration
	StepP95    time.Duration
	StepMax    time.Duration

	Collision collision.Report
	MaxDepth  float64
}

func (s Summary) String() string {
	return fmt.Sprintf("run %s: %d objects, %d ticks, step mean %v p50 %v p95 %v max %v, %v",
		s.RunID, s.Objects, s.Ticks, s.StepMean, s.StepP50, s.StepP95, s.StepMax, s.Collision)
}

// stepStats keeps a ring of the most recent step durations plus running collision totals.
type stepStats struct {
	limit    int
	next     int
	samples  []float64
	totals   collision.Report
	maxDepth float64
}

func newStepStats(limit int) *stepStats {
	return &stepStats{limit: limit}
}

func (st *stepStats) add(d time.Duration, report collision.Report) {
	if len(st.samples) < st.limit {
		st.samples = append(st.samples, float64(d))
	} else {
		st.samples[st.next] = float64(d)
		st.next = (st.next + 1) % st.limit
	}
	st.totals.Add(report)
	if depth := report.MaxDepth(); depth > st.maxDepth {
		st.maxDepth = depth
	}
}

// Durations returns the kept step durations, oldest first.
func (st *stepStats) durations() []time.Duration {
	out := make([]time.Duration, 0, len(st.samples))
	for i := range st.samples {
		out = append(out, time.Duration(st.samples[(st.next+i)%len(st.samples)]))
	}
	return out
}

func (st *stepStats) summarize() Summary {
	sum := Summary{
		Samples:   len(st.samples),
		Collision: st.totals,
		MaxDepth:  st.maxDepth,
	}
	if len(st.samples) == 0 {
		return sum
	}
	data := stats.Float64Data(st.samples)
	// errors below only come from empty input
	//nolint:errcheck
	p50, _ := data.Percentile(50)
	//nolint:errcheck
	p95, _ := data.Percentile(95)
	//nolint:errcheck
	maxStep, _ := data.Max()
	mean, std := stat.MeanStdDev(st.samples, nil)
	if len(st.samples) == 1 {
		std = 0
	}

	sum.StepMean = time.Duration(mean)
	sum.StepStdDev = time.Duration(std)
	sum.StepP50 = time.Duration(p50)
	sum.StepP95 = time.Duration(p95)
	sum.StepMax = time.Duration(maxStep)
	return sum
}

// Summary returns the aggregate of every tick so far.
func (s *Simulation) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := s.stats.summarize()
	sum.RunID = s.runID
	sum.Objects = s.set.Len()
	sum.Ticks = s.ticks.Load()
	return sum
}

// StepDurations returns the most recent step durations, oldest first.
func (s *Simulation) StepDurations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.durations()
}
