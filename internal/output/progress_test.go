package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/torosent/surge/internal/metrics"
)

// syncBuffer guards a bytes.Buffer shared with the reporter goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProgressLine(t *testing.T) {
	live := metrics.LiveStats{
		Counts:         metrics.Counts{Total: 150, Successes: 148, Failures: 2},
		Elapsed:        3 * time.Second,
		RequestsPerSec: 50,
		P99Latency:     12 * time.Millisecond,
	}

	line := progressLine(live, 10*time.Second)
	for _, want := range []string{"Time: 3.0/10s", "Requests: 150", "Failures: 2", "Rate: 50.0 req/s", "P99: 12.0ms", "Remaining: 7.0s"} {
		if !strings.Contains(line, want) {
			t.Errorf("progress line %q missing %q", line, want)
		}
	}

	overrun := progressLine(metrics.LiveStats{Elapsed: 12 * time.Second}, 10*time.Second)
	if !strings.Contains(overrun, "Remaining: 0.0s") {
		t.Errorf("overrun line %q should clamp remaining", overrun)
	}

	open := progressLine(metrics.LiveStats{Elapsed: time.Second}, 0)
	if strings.Contains(open, "Remaining") {
		t.Errorf("line without total %q should omit remaining", open)
	}
}

func TestProgressReporterStartStop(t *testing.T) {
	recorder := metrics.NewRecorder()
	recorder.Start()
	for i := 0; i < 5; i++ {
		recorder.Record(metrics.Success(30*time.Millisecond, 200))
	}

	var out syncBuffer
	reporter := NewProgressReporter(recorder, 20*time.Millisecond, time.Second, &out)
	reporter.Start()
	reporter.Start()
	time.Sleep(80 * time.Millisecond)
	reporter.Stop()
	reporter.Stop()

	if !strings.Contains(out.String(), "Requests: 5") {
		t.Errorf("progress output %q missing request count", out.String())
	}
}

func TestProgressReporterStopWithoutStart(t *testing.T) {
	reporter := NewProgressReporter(metrics.NewRecorder(), 0, 0, nil)
	reporter.Stop()
}
