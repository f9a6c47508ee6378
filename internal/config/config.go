package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Mode selects the rate-control policy of a run.
type Mode string

const (
	// ModeRPS fires fixed bursts of Rate requests every window.
	ModeRPS Mode = "rps"
	// ModePower keeps Power requests in flight at all times.
	ModePower Mode = "power"
	// ModeRamp steps the burst rate up until a step sees a failure.
	ModeRamp Mode = "ramp"
)

// Pacing selects how a ramp step spreads its requests over a window.
type Pacing string

const (
	PacingBurst   Pacing = "burst"
	PacingUniform Pacing = "uniform"
)

const (
	DefaultTimeout      = time.Second
	DefaultWindow       = time.Second
	DefaultTickInterval = 100 * time.Millisecond
)

type Config struct {
	TargetURL        string        `mapstructure:"target"`
	Mode             Mode          `mapstructure:"mode"`
	Rate             int           `mapstructure:"rate"`
	Power            int           `mapstructure:"power"`
	Duration         time.Duration `mapstructure:"duration"`
	Ramp             RampConfig    `mapstructure:"ramp"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Window           time.Duration `mapstructure:"window"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	JSONOutput       bool          `mapstructure:"json_output"`
	YAMLOutput       bool          `mapstructure:"yaml_output"`
	HTMLOutput       string        `mapstructure:"html_output"`
	Dashboard        bool          `mapstructure:"dashboard"`
	LogErrors        bool          `mapstructure:"log_errors"`
	Verbose          bool          `mapstructure:"verbose"`
	Thresholds       []string      `mapstructure:"thresholds"`
	StrictThresholds bool          `mapstructure:"strict_thresholds"`
	HistoryFile      string        `mapstructure:"history_file"`
	Tracing          TracingConfig `mapstructure:"tracing"`
	ConfigFile       string        `mapstructure:"-"`
}

// RampConfig describes the incremental step schedule of ramp mode.
type RampConfig struct {
	StartRPS     int           `mapstructure:"start_rps"`
	Step         int           `mapstructure:"step"`
	StepDuration time.Duration `mapstructure:"step_duration"`
	MaxRPS       int           `mapstructure:"max_rps"`
	Pacing       Pacing        `mapstructure:"pacing"`
}

// Rates lists the rate of every ramp step: start, start+step, ... <= max.
func (r RampConfig) Rates() []int {
	if r.StartRPS <= 0 || r.Step <= 0 || r.MaxRPS < r.StartRPS {
		return nil
	}
	rates := make([]int, 0, (r.MaxRPS-r.StartRPS)/r.Step+1)
	for rps := r.StartRPS; ; rps += r.Step {
		rates = append(rates, rps)
		if rps > r.MaxRPS-r.Step {
			break
		}
	}
	return rates
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	// Propagate adds W3C trace headers to outgoing requests. Off unless set.
	Propagate *bool `mapstructure:"propagate"`
}

// Enabled reports whether an exporter endpoint is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether trace headers should be injected.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Propagate != nil && *t.Propagate
}

// ResolveMode fills in Mode when it was not given explicitly: power when a
// power level is set, ramp when a ramp ceiling is set, rps otherwise.
func (c *Config) ResolveMode() {
	if c.Mode != "" {
		c.Mode = Mode(strings.ToLower(strings.TrimSpace(string(c.Mode))))
		return
	}
	switch {
	case c.Power > 0:
		c.Mode = ModePower
	case c.Ramp.MaxRPS > 0:
		c.Mode = ModeRamp
	default:
		c.Mode = ModeRPS
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.TargetURL) == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	} else if err := ValidateTargetURL(c.TargetURL); err != nil {
		issues = append(issues, err.Error())
	}

	switch c.Mode {
	case ModeRPS:
		if c.Rate < 1 {
			issues = append(issues, "rate must be >= 1 in rps mode")
		}
		if c.Duration <= 0 {
			issues = append(issues, "duration must be > 0 in rps mode")
		}
	case ModePower:
		if c.Power < 1 {
			issues = append(issues, "power must be >= 1 in power mode")
		}
		if c.Duration <= 0 {
			issues = append(issues, "duration must be > 0 in power mode")
		}
	case ModeRamp:
		issues = append(issues, validateRamp(c.Ramp)...)
	case "":
		issues = append(issues, "mode is required")
	default:
		issues = append(issues, fmt.Sprintf("mode must be 'rps', 'power' or 'ramp', got %q", c.Mode))
	}

	if c.Rate > 0 && c.Power > 0 {
		issues = append(issues, "rate and power are mutually exclusive")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Power < 0 {
		issues = append(issues, "power must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Window <= 0 {
		issues = append(issues, "window must be > 0")
	}
	if c.TickInterval <= 0 {
		issues = append(issues, "tick interval must be > 0")
	}
	if c.JSONOutput && c.YAMLOutput {
		issues = append(issues, "json-output and yaml-output are mutually exclusive")
	}
	if c.Dashboard && (c.JSONOutput || c.YAMLOutput) {
		issues = append(issues, "dashboard and machine-readable output are mutually exclusive")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing: sample_rate must be between 0 and 1")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// Warnings returns non-fatal notices about the configuration.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Rate > 1000 || c.Ramp.MaxRPS > 1000 {
		warnings = append(warnings, "High request rate configured. Ensure you have authorization to test the target system.")
	}
	if c.Power > 500 {
		warnings = append(warnings, fmt.Sprintf("High power configured (%d in-flight requests). Ensure you have authorization to test the target system.", c.Power))
	}
	if c.Timeout == 0 {
		warnings = append(warnings, "No per-request timeout configured; a stalled target can hold workers indefinitely.")
	}
	return warnings
}

func validateRamp(r RampConfig) []string {
	var issues []string
	if r.StartRPS < 1 {
		issues = append(issues, "ramp: start_rps must be >= 1")
	}
	if r.Step < 1 {
		issues = append(issues, "ramp: step must be >= 1")
	}
	if r.StepDuration <= 0 {
		issues = append(issues, "ramp: step_duration must be > 0")
	}
	if r.MaxRPS < r.StartRPS {
		issues = append(issues, "ramp: max_rps must be >= start_rps")
	}
	switch r.Pacing {
	case "", PacingBurst, PacingUniform:
	default:
		issues = append(issues, fmt.Sprintf("ramp: pacing must be 'burst' or 'uniform', got %q", r.Pacing))
	}
	return issues
}

// ValidateTargetURL checks that target is an absolute http or https URL.
func ValidateTargetURL(target string) error {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return fmt.Errorf("invalid target URL %q: %v", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid target URL %q: scheme must be http or https", target)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid target URL %q: host is required", target)
	}
	return nil
}
