// Package runner provides the rate and concurrency controller for surge.
//
// A [Runner] dispatches calls to a [Requester] under one of three policies:
//   - [ModeRPS]: every window (1s by default) fire a burst of Rate requests,
//     wait for the burst to drain, then sleep out the rest of the window.
//   - [ModePower]: keep Power requests in flight for Duration, topping the
//     pool up on a ticker and whenever a request completes.
//   - [ModeRamp]: run phases at StartRPS, StartRPS+Step, ... up to MaxRPS,
//     each for StepDuration, and stop after the first phase with a failure.
//
// # Basic Usage
//
//	r, err := runner.New(runner.Options{
//		Mode:      runner.ModeRPS,
//		Rate:      100,
//		Duration:  time.Minute,
//		Requester: executor,
//	})
//	if err != nil {
//		return err
//	}
//	result := r.Run(ctx)
//
// Dispatch is bounded by a pool sized to the rate or power level, so a slow
// target makes submissions wait rather than spawn unbounded goroutines.
// Request failures never stop the runner except through the ramp policy.
//
// # Middleware
//
// [WithLogging] wraps a requester and reports each failure to a [FailureLogger].
package runner
