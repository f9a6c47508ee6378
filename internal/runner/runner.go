package runner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/torosent/surge/internal/pool"
)

// StopReason explains why a run ended.
type StopReason string

const (
	StopDeadline     StopReason = "deadline"
	StopRampComplete StopReason = "ramp_complete"
	StopRampFailure  StopReason = "ramp_failure"
	StopCanceled     StopReason = "canceled"
)

// Phase summarizes one ramp step.
type Phase struct {
	RPS        int
	Dispatched int64
	Failures   int64
	Elapsed    time.Duration
}

// Successes returns the requests of the phase that did not fail.
func (p Phase) Successes() int64 {
	return p.Dispatched - p.Failures
}

// Result captures execution summary.
type Result struct {
	Total      int64
	Errors     int64
	Duration   time.Duration
	Phases     []Phase
	StopReason StopReason
}

// Halted reports whether the ramp stopped on a failing phase.
func (r Result) Halted() bool {
	return r.StopReason == StopRampFailure
}

// Runner dispatches requests according to one of three policies: fixed
// window bursts, a steady in-flight pool, or a fail-fast ramp of bursts.
type Runner struct {
	opt  Options
	plan *rampPlan
	log  logrus.FieldLogger
}

// New validates opt and returns a runner. No request is sent on error.
func New(opt Options) (*Runner, error) {
	opt.normalize()
	if err := opt.validate(); err != nil {
		return nil, err
	}
	r := &Runner{opt: opt, log: opt.Logger}
	if opt.Mode == ModeRamp {
		r.plan = compileRampPlan(opt.Ramp)
	}
	return r, nil
}

// tally counts dispatched and failed requests for one scope.
type tally struct {
	dispatched atomic.Int64
	errors     atomic.Int64
}

// Run dispatches until the policy ends or ctx is canceled. In-flight
// requests are always drained before Run returns.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	total := &tally{}

	var res Result
	switch r.opt.Mode {
	case ModePower:
		res.StopReason = r.runPower(ctx, total)
	case ModeRamp:
		res.Phases, res.StopReason = r.runRamp(ctx, total)
	default:
		deadline := start.Add(r.opt.Duration)
		res.StopReason = r.runWindows(ctx, deadline, r.opt.Rate, total)
	}

	res.Total = total.dispatched.Load()
	res.Errors = total.errors.Load()
	res.Duration = time.Since(start)
	r.log.WithFields(logrus.Fields{
		"dispatched": res.Total,
		"errors":     res.Errors,
		"reason":     res.StopReason,
	}).Debug("dispatch finished")
	return res
}

// job wraps one request and charges its failure to every tally. A panic
// inside the requester still counts as a failure.
// job wraps one request. Cancelling ctx stops dispatch but not requests
// already in flight; those end on their own timeout.
func (r *Runner) job(ctx context.Context, tallies ...*tally) func() {
	reqCtx := context.WithoutCancel(ctx)
	return func() {
		failed := true
		defer func() {
			if failed {
				for _, t := range tallies {
					t.errors.Add(1)
				}
			}
		}()
		failed = r.opt.Requester.Do(reqCtx) != nil
	}
}

func dispatched(tallies ...*tally) {
	for _, t := range tallies {
		t.dispatched.Add(1)
	}
}

func (r *Runner) newPool(size int) *pool.Pool {
	return pool.New(size, pool.WithPanicHandler(func(err error) {
		r.log.WithError(err).Error("request panicked")
	}))
}

// runWindows fires a burst of rps requests at the start of every window
// until a window would start at or after deadline. Each burst is drained
// before the rest of its window is waited out.
func (r *Runner) runWindows(ctx context.Context, deadline time.Time, rps int, tallies ...*tally) StopReason {
	p := r.newPool(rps)
	defer p.Wait()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return StopCanceled
		}
		windowStart := time.Now()
		if !windowStart.Before(deadline) {
			return StopDeadline
		}

		for i := 0; i < rps; i++ {
			if err := p.Go(ctx, r.job(ctx, tallies...)); err != nil {
				p.Wait()
				return StopCanceled
			}
			dispatched(tallies...)
		}
		p.Wait()

		remaining := r.opt.Window - time.Since(windowStart)
		if remaining <= 0 {
			continue
		}
		timer.Reset(remaining)
		select {
		case <-ctx.Done():
			return StopCanceled
		case <-timer.C:
		}
	}
}

// runPower keeps Power requests in flight until the deadline. Slots are
// topped up on every tick and as soon as a request completes.
func (r *Runner) runPower(ctx context.Context, total *tally) StopReason {
	p := r.newPool(r.opt.Power)
	defer p.Wait()

	deadline := time.NewTimer(r.opt.Duration)
	defer deadline.Stop()
	ticker := time.NewTicker(r.opt.TickInterval)
	defer ticker.Stop()

	fill := func() {
		for ctx.Err() == nil && p.TryGo(r.job(ctx, total)) {
			dispatched(total)
		}
	}

	fill()
	for {
		select {
		case <-ctx.Done():
			return StopCanceled
		case <-deadline.C:
			r.log.WithField("in_flight", p.InFlight()).Debug("deadline reached, draining")
			return StopDeadline
		case <-ticker.C:
			fill()
		case <-p.Freed():
			fill()
		}
	}
}

// runRamp executes ramp phases in order and stops after the first phase
// that saw a failure.
func (r *Runner) runRamp(ctx context.Context, total *tally) ([]Phase, StopReason) {
	r.log.WithFields(logrus.Fields{
		"phases":   len(r.plan.steps),
		"max_rps":  r.plan.maxRate,
		"duration": r.plan.totalDuration(),
		"pacing":   r.opt.Ramp.Pacing,
	}).Debug("ramp planned")

	var pace *limiterPacer
	if r.opt.Ramp.Pacing == PacingUniform {
		pace = newLimiterPacer(r.opt.LimiterFactory, r.plan.steps[0].rate)
	}

	phases := make([]Phase, 0, len(r.plan.steps))
	for _, step := range r.plan.steps {
		phaseStart := time.Now()
		deadline := phaseStart.Add(step.duration)
		scope := &tally{}

		var reason StopReason
		if pace != nil {
			pace.SetRate(step.rate)
			reason = r.runPaced(ctx, deadline, step.rate, pace, total, scope)
		} else {
			reason = r.runWindows(ctx, deadline, step.rate, total, scope)
		}

		phase := Phase{
			RPS:        step.rate,
			Dispatched: scope.dispatched.Load(),
			Failures:   scope.errors.Load(),
			Elapsed:    time.Since(phaseStart),
		}
		phases = append(phases, phase)
		if r.opt.OnPhase != nil {
			r.opt.OnPhase(phase)
		}
		r.log.WithFields(logrus.Fields{
			"rps":        phase.RPS,
			"dispatched": phase.Dispatched,
			"failures":   phase.Failures,
		}).Debug("ramp phase finished")

		if reason == StopCanceled {
			return phases, StopCanceled
		}
		if phase.Failures > 0 {
			return phases, StopRampFailure
		}
	}
	return phases, StopRampComplete
}

// runPaced dispatches one request per pacer token until deadline, with at
// most rps requests in flight.
func (r *Runner) runPaced(ctx context.Context, deadline time.Time, rps int, pace pacer, tallies ...*tally) StopReason {
	p := r.newPool(rps)
	defer p.Wait()

	phaseCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	for {
		if err := pace.Wait(phaseCtx); err != nil {
			break
		}
		if err := p.Go(phaseCtx, r.job(ctx, tallies...)); err != nil {
			break
		}
		dispatched(tallies...)
	}
	if ctx.Err() != nil {
		return StopCanceled
	}
	return StopDeadline
}
