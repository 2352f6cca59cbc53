package simulation

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/crowdsim/utils"
)

// TickFunc is called after every tick of a run. Returning an error stops the run with that error.
type TickFunc func(TickReport) error

// Run advances the simulation by ticks fixed steps of dt seconds, as fast as possible. The context
// is checked between ticks; a cancelled run returns the summary so far with the context's error.
func (s *Simulation) Run(ctx context.Context, ticks int, dt float64, onTick TickFunc) (Summary, error) {
	ctx, span := trace.StartSpan(ctx, "simulation::Run")
	defer span.End()
	span.AddAttributes(trace.Int64Attribute("ticks", int64(ticks)), trace.StringAttribute("run", s.runID))

	if ticks < 0 {
		return s.Summary(), utils.NewInvalidStateError("tick count must be non-negative, got %d", ticks)
	}
	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			return s.Summary(), err
		}
		if err := s.tick(ctx, dt, onTick); err != nil {
			return s.Summary(), err
		}
	}
	sum := s.Summary()
	s.logger.Infow("run finished", "run", s.runID, "ticks", sum.Ticks, "step_mean", sum.StepMean)
	return sum, nil
}

// RunRealtime steps the simulation once per dt of wall time, as measured by the simulation's
// clock, until ctx is done. A tick that overruns its slot delays the next one rather than
// queueing extra ticks. Cancellation is the normal way to end a realtime run, so it returns a nil
// error.
func (s *Simulation) RunRealtime(ctx context.Context, dt float64, onTick TickFunc) (Summary, error) {
	ctx, span := trace.StartSpan(ctx, "simulation::RunRealtime")
	defer span.End()

	period := time.Duration(dt * float64(time.Second))
	if period <= 0 {
		return s.Summary(), utils.NewInvalidStateError("realtime tick length must be positive, got %v", dt)
	}
	ticker := s.clock.Ticker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sum := s.Summary()
			s.logger.Infow("realtime run stopped", "run", s.runID, "ticks", sum.Ticks)
			return sum, nil
		case <-ticker.C:
		}
		if err := s.tick(ctx, dt, onTick); err != nil {
			return s.Summary(), err
		}
	}
}

func (s *Simulation) tick(ctx context.Context, dt float64, onTick TickFunc) error {
	_, span := trace.StartSpan(ctx, "simulation::Step")
	defer span.End()

	report, err := s.Step(dt)
	if err != nil {
		span.SetStatus(trace.Status{Code: trace.StatusCodeInternal, Message: err.Error()})
		return err
	}
	if onTick == nil {
		return nil
	}
	if err := onTick(report); err != nil {
		return errors.Wrapf(err, "tick %d", report.Tick)
	}
	return nil
}
