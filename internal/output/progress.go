package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/surge/internal/metrics"
)

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	recorder *metrics.Recorder
	interval time.Duration
	total    time.Duration
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
}

// NewProgressReporter creates a progress reporter that updates at the given
// interval. total is the planned run length; zero hides the remaining time.
func NewProgressReporter(recorder *metrics.Recorder, interval, total time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressReporter{
		recorder: recorder,
		interval: interval,
		total:    total,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return
	}
	go p.run()
}

// Stop halts progress updates and ends the progress line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		<-p.finished
		fmt.Fprintln(p.writer)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fmt.Fprint(p.writer, "\r"+progressLine(p.recorder.Live(), p.total))
		case <-p.done:
			return
		}
	}
}

func progressLine(live metrics.LiveStats, total time.Duration) string {
	elapsed := live.Elapsed.Seconds()
	line := fmt.Sprintf("Time: %.1f", elapsed)
	if total > 0 {
		line += fmt.Sprintf("/%.0fs", total.Seconds())
	} else {
		line += "s"
	}
	line += fmt.Sprintf(" | Requests: %d | Failures: %d | Rate: %.1f req/s", live.Total, live.Failures, live.RequestsPerSec)
	if live.P99Latency > 0 {
		line += fmt.Sprintf(" | P99: %.1fms", float64(live.P99Latency)/float64(time.Millisecond))
	}
	if total > 0 {
		remaining := total.Seconds() - elapsed
		if remaining < 0 {
			remaining = 0
		}
		line += fmt.Sprintf(" | Remaining: %.1fs", remaining)
	}
	return line
}
