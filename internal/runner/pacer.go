package runner

import (
	"context"

	"golang.org/x/time/rate"
)

// pacer spaces dispatches at a configurable rate.
type pacer interface {
	Wait(ctx context.Context) error
	SetRate(rps int)
}

// limiterPacer delegates pacing to a rate.Limiter (uniform spacing).
type limiterPacer struct {
	limiter *rate.Limiter
}

func newLimiterPacer(factory func(rps int) *rate.Limiter, rps int) *limiterPacer {
	return &limiterPacer{limiter: factory(rps)}
}

func (l *limiterPacer) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

func (l *limiterPacer) SetRate(rps int) {
	if l == nil || l.limiter == nil {
		return
	}
	if rps <= 0 {
		l.limiter.SetLimit(rate.Inf)
		return
	}
	l.limiter.SetLimit(rate.Limit(rps))
	if l.limiter.Burst() < 1 {
		l.limiter.SetBurst(1)
	}
}
