package runner

import "time"

type rampPlan struct {
	steps    []rampStep
	duration time.Duration
	maxRate  int
}

type rampStep struct {
	start    time.Duration
	duration time.Duration
	rate     int
}

func compileRampPlan(r RampPlan) *rampPlan {
	if r.StartRPS <= 0 || r.Step <= 0 || r.StepDuration <= 0 || r.MaxRPS < r.StartRPS {
		return nil
	}

	plan := &rampPlan{}
	var offset time.Duration
	for rps := r.StartRPS; ; rps += r.Step {
		plan.steps = append(plan.steps, rampStep{
			start:    offset,
			duration: r.StepDuration,
			rate:     rps,
		})
		plan.maxRate = rps
		offset += r.StepDuration
		// stop before rps+step could pass MaxRPS or overflow
		if rps > r.MaxRPS-r.Step {
			break
		}
	}
	plan.duration = offset
	return plan
}

func (p *rampPlan) totalDuration() time.Duration {
	if p == nil {
		return 0
	}
	return p.duration
}
