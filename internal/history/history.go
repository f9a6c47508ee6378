// Package history keeps a JSON-lines log of completed runs.
package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"

	"github.com/torosent/surge/internal/metrics"
)

// Entry is one line of the history file.
type Entry struct {
	RunID          string    `json:"run_id"`
	Timestamp      time.Time `json:"timestamp"`
	Target         string    `json:"target"`
	Mode           string    `json:"mode"`
	Total          int64     `json:"total"`
	Successes      int64     `json:"successes"`
	Failures       int64     `json:"failures"`
	ErrorRate      float64   `json:"error_rate"`
	RequestsPerSec float64   `json:"requests_per_sec"`
	DurationMs     float64   `json:"duration_ms"`
	HasLatency     bool      `json:"has_latency"`
	MeanLatencyMs  float64   `json:"mean_latency_ms,omitempty"`
	P95LatencyMs   float64   `json:"p95_latency_ms,omitempty"`
	P99LatencyMs   float64   `json:"p99_latency_ms,omitempty"`
	StopReason     string    `json:"stop_reason,omitempty"`
}

// NewRunID returns a lexically sortable run identifier for t.
func NewRunID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

// EntryFromReport summarizes a report finished at the given time.
func EntryFromReport(r metrics.Report, at time.Time) Entry {
	e := Entry{
		RunID:          r.RunID,
		Timestamp:      at.UTC(),
		Target:         r.Target,
		Mode:           r.Mode,
		Total:          r.Total,
		Successes:      r.Successes,
		Failures:       r.Failures,
		ErrorRate:      r.ErrorRate,
		RequestsPerSec: r.RequestsPerSec,
		DurationMs:     r.DurationMs,
		HasLatency:     r.HasLatency,
		StopReason:     r.StopReason,
	}
	if r.HasLatency {
		e.MeanLatencyMs = r.MeanLatencyMs
		e.P95LatencyMs = r.P95LatencyMs
		e.P99LatencyMs = r.P99LatencyMs
	}
	return e
}

// Store appends and reads entries. Access is serialized across processes
// with a lock file next to the history file.
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore returns a store for path. The file is created on first Append.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history: empty path")
	}
	return &Store{path: path, lock: flock.New(path + ".lock")}, nil
}

// Path returns the history file location.
func (s *Store) Path() string {
	return s.path
}

// Append writes e as a single JSON line.
func (s *Store) Append(e Entry) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("history: create directory: %w", err)
		}
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("history: lock %s: %w", s.path, err)
	}
	defer func() { _ = s.lock.Unlock() }()

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("history: encode entry: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("history: open %s: %w", s.path, err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("history: write %s: %w", s.path, err)
	}
	return f.Close()
}

// Load returns every entry in file order. A missing file yields no entries.
func (s *Store) Load() ([]Entry, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("history: lock %s: %w", s.path, err)
	}
	defer func() { _ = s.lock.Unlock() }()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", s.path, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("history: %s line %d: %w", s.path, lineNo, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("history: read %s: %w", s.path, err)
	}
	return entries, nil
}

// Previous returns the latest entry recorded for the same target and mode.
func (s *Store) Previous(target, mode string) (Entry, bool, error) {
	entries, err := s.Load()
	if err != nil {
		return Entry{}, false, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Target == target && entries[i].Mode == mode {
			return entries[i], true, nil
		}
	}
	return Entry{}, false, nil
}
