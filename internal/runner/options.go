package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Requester abstracts executing a single request operation.
// Implementations should return an error for failed requests.
type Requester interface {
	Do(ctx context.Context) error
}

// Mode selects the dispatch policy.
type Mode string

const (
	ModeRPS   Mode = "rps"
	ModePower Mode = "power"
	ModeRamp  Mode = "ramp"
)

// Pacing selects how a ramp phase spreads its requests.
type Pacing string

const (
	PacingBurst   Pacing = "burst"
	PacingUniform Pacing = "uniform"
)

const (
	defaultWindow       = time.Second
	defaultTickInterval = 100 * time.Millisecond
)

// RampPlan describes ramp phases at StartRPS, StartRPS+Step, ... <= MaxRPS.
type RampPlan struct {
	StartRPS     int
	Step         int
	StepDuration time.Duration
	MaxRPS       int
	Pacing       Pacing
}

// Options configure the Runner.
type Options struct {
	Mode         Mode
	Rate         int           // requests per window in rps mode
	Power        int           // requests kept in flight in power mode
	Duration     time.Duration // run length in rps and power modes
	Ramp         RampPlan
	Window       time.Duration // burst window, 1s unless set
	TickInterval time.Duration // power mode top-up tick, 100ms unless set
	Requester    Requester     // request executor (required)
	Logger       logrus.FieldLogger
	// OnPhase is called after each ramp phase finishes.
	OnPhase        func(Phase)
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

// OptionsError reports options that cannot drive a run.
type OptionsError struct {
	Field  string
	Reason string
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("runner: invalid %s: %s", e.Field, e.Reason)
}

func (o *Options) normalize() {
	if o.Window <= 0 {
		o.Window = defaultWindow
	}
	if o.TickInterval <= 0 {
		o.TickInterval = defaultTickInterval
	}
	if o.Ramp.Pacing == "" {
		o.Ramp.Pacing = PacingBurst
	}
	if o.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		o.Logger = discard
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst of one spaces dispatches evenly at 1/rps.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func (o Options) validate() error {
	if o.Requester == nil {
		return &OptionsError{Field: "requester", Reason: "must not be nil"}
	}
	switch o.Mode {
	case ModeRPS:
		if o.Rate <= 0 {
			return &OptionsError{Field: "rate", Reason: fmt.Sprintf("must be positive, got %d", o.Rate)}
		}
		if o.Duration <= 0 {
			return &OptionsError{Field: "duration", Reason: fmt.Sprintf("must be positive, got %s", o.Duration)}
		}
	case ModePower:
		if o.Power <= 0 {
			return &OptionsError{Field: "power", Reason: fmt.Sprintf("must be positive, got %d", o.Power)}
		}
		if o.Duration <= 0 {
			return &OptionsError{Field: "duration", Reason: fmt.Sprintf("must be positive, got %s", o.Duration)}
		}
	case ModeRamp:
		r := o.Ramp
		switch {
		case r.StartRPS <= 0:
			return &OptionsError{Field: "ramp start", Reason: fmt.Sprintf("must be positive, got %d", r.StartRPS)}
		case r.Step <= 0:
			return &OptionsError{Field: "ramp step", Reason: fmt.Sprintf("must be positive, got %d", r.Step)}
		case r.StepDuration <= 0:
			return &OptionsError{Field: "ramp step duration", Reason: fmt.Sprintf("must be positive, got %s", r.StepDuration)}
		case r.MaxRPS < r.StartRPS:
			return &OptionsError{Field: "ramp max", Reason: fmt.Sprintf("%d is below start %d", r.MaxRPS, r.StartRPS)}
		}
		if r.Pacing != PacingBurst && r.Pacing != PacingUniform {
			return &OptionsError{Field: "ramp pacing", Reason: fmt.Sprintf("unknown pacing %q", r.Pacing)}
		}
	default:
		return &OptionsError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", o.Mode)}
	}
	return nil
}
