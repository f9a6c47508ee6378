// Package metrics records per-request outcomes and aggregates them into a report.
//
// # Recorder
//
// A single [Recorder] is shared by every request goroutine of a run:
//
//	rec := metrics.NewRecorder()
//	rec.Start()
//
//	rec.Record(metrics.Success(12*time.Millisecond, 200))
//	rec.Record(metrics.TransportFailure(err))
//
// Recording never fails. Only successful outcomes contribute latency samples;
// failures are counted and bucketed by status code or transport error class.
//
// # Live view
//
// [Recorder.Counts] reads atomics and is cheap enough to poll from a ticker.
// [Recorder.Live] adds throughput and HDR histogram quantiles for dashboards.
//
// # Aggregation
//
// Once the run has drained, freeze the state and compute the report:
//
//	report := metrics.Aggregate(rec.Snapshot(), elapsed)
//
// [Aggregate] is pure. Percentiles use the nearest-rank method over the exact
// sample list, so p99 >= p95 always holds. A run without successes reports
// zero latencies with HasLatency set to false.
package metrics
