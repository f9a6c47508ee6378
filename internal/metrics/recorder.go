package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Counts is a point-in-time view of the recorder counters.
type Counts struct {
	Total     int64
	Successes int64
	Failures  int64
}

// LiveStats feeds progress displays while a run is still in flight.
type LiveStats struct {
	Counts
	Elapsed        time.Duration
	RequestsPerSec float64
	P50Latency     time.Duration
	P99Latency     time.Duration
	MaxLatency     time.Duration
	StatusBuckets  map[string]int64
}

// Snapshot is a frozen copy of the recorder state.
type Snapshot struct {
	Successes     int64
	Failures      int64
	Latencies     []time.Duration
	StatusBuckets map[string]int64
}

// Total returns the number of recorded outcomes.
func (s Snapshot) Total() int64 {
	return s.Successes + s.Failures
}

// Recorder accumulates request outcomes from many goroutines.
//
// Counters are mirrored in atomics so progress readers never take the lock.
type Recorder struct {
	mu        sync.Mutex
	samples   []time.Duration
	buckets   map[string]int64
	hist      *hdrhistogram.Histogram
	start     time.Time
	successes atomic.Int64
	failures  atomic.Int64
}

// NewRecorder returns an empty recorder whose clock starts now.
func NewRecorder() *Recorder {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &Recorder{
		hist:    hdrhistogram.New(1, 60_000_000, 3),
		buckets: make(map[string]int64),
		start:   time.Now(),
	}
}

// Start resets the recorder clock. Call it right before dispatch begins.
func (r *Recorder) Start() {
	r.mu.Lock()
	r.start = time.Now()
	r.mu.Unlock()
}

// Record stores one outcome. It never fails.
func (r *Recorder) Record(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o.OK() {
		r.samples = append(r.samples, o.Latency)
		us := o.Latency.Microseconds()
		if us < r.hist.LowestTrackableValue() {
			us = r.hist.LowestTrackableValue()
		}
		if us > r.hist.HighestTrackableValue() {
			us = r.hist.HighestTrackableValue()
		}
		_ = r.hist.RecordValue(us)
		r.successes.Add(1)
		return
	}

	r.failures.Add(1)
	r.buckets[o.Bucket()]++
}

// Counts returns the live counters without locking.
func (r *Recorder) Counts() Counts {
	s := r.successes.Load()
	f := r.failures.Load()
	return Counts{Total: s + f, Successes: s, Failures: f}
}

// Live returns counters, throughput and histogram quantiles for progress output.
func (r *Recorder) Live() LiveStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := LiveStats{Counts: r.Counts(), Elapsed: time.Since(r.start)}
	if stats.Elapsed > 0 && stats.Total > 0 {
		stats.RequestsPerSec = float64(stats.Total) / stats.Elapsed.Seconds()
	}
	if r.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(r.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P99Latency = time.Duration(r.hist.ValueAtQuantile(99)) * time.Microsecond
		stats.MaxLatency = time.Duration(r.hist.Max()) * time.Microsecond
	}
	if len(r.buckets) > 0 {
		stats.StatusBuckets = make(map[string]int64, len(r.buckets))
		for k, v := range r.buckets {
			stats.StatusBuckets[k] = v
		}
	}
	return stats
}

// Snapshot copies the recorded state. Use it once the run has drained.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Successes: r.successes.Load(),
		Failures:  r.failures.Load(),
		Latencies: append([]time.Duration(nil), r.samples...),
	}
	if len(r.buckets) > 0 {
		snap.StatusBuckets = make(map[string]int64, len(r.buckets))
		for k, v := range r.buckets {
			snap.StatusBuckets[k] = v
		}
	}
	return snap
}
