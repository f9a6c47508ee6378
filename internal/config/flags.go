package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "surge [target]",
		Short:         "Drive an HTTP endpoint at a fixed rate or concurrency and report latency",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	flags.String("target", "", "Target URL to load test (may also be given as the first argument)")
	flags.String("mode", "", "Rate control mode: 'rps', 'power' or 'ramp' (inferred when omitted)")

	// rps and power modes
	flags.IntP("rate", "r", 0, "Requests fired per window in rps mode")
	flags.IntP("power", "p", 0, "Requests kept in flight in power mode")
	flags.DurationP("duration", "d", 0, "How long to run the test (e.g. 30s, 1m)")

	// ramp mode
	flags.Int("ramp-start", 0, "First ramp step rate in requests per second")
	flags.Int("ramp-step", 0, "Rate increase between ramp steps")
	flags.Duration("ramp-step-duration", 0, "How long each ramp step lasts")
	flags.Int("ramp-max", 0, "Highest ramp step rate")
	flags.String("ramp-pacing", string(PacingBurst), "How a ramp step spreads requests: 'burst' or 'uniform'")

	// timing
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout (0 means no timeout)")
	flags.Duration("window", DefaultWindow, "Burst window length in rps and ramp modes")
	flags.Duration("tick", DefaultTickInterval, "Control loop tick in power mode")

	// output
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("yaml-output", false, "Emit YAML formatted output")
	flags.String("html-output", "", "Write an HTML report to the specified file path")
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.Bool("log-errors", false, "Log each failed request to stderr")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g. 'http_req_duration:p95 < 0.5')")
	flags.Bool("strict-thresholds", false, "Exit non-zero when a threshold fails")
	flags.String("history-file", "", "Append a JSON line per run to this file")
	flags.String("config", "", "Path to configuration file (YAML, JSON or TOML)")

	// tracing
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.String("tracing-service-name", "", "Service name reported on spans")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests traced (0.0-1.0)")
	flags.Bool("tracing-insecure", false, "Disable TLS towards the collector")
	flags.Bool("tracing-propagate", false, "Send W3C trace context headers to the target")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\n%s\n\nFlags:\n", cmd.UseLine(), cmd.Short)
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	} else if fs.NArg() > 0 {
		cfg.TargetURL = strings.TrimSpace(fs.Arg(0))
	}
	if fs.Changed("mode") {
		val, err := fs.GetString("mode")
		if err != nil {
			return err
		}
		cfg.Mode = Mode(strings.ToLower(strings.TrimSpace(val)))
	}

	intFlags := []struct {
		name string
		dst  *int
	}{
		{"rate", &cfg.Rate},
		{"power", &cfg.Power},
		{"ramp-start", &cfg.Ramp.StartRPS},
		{"ramp-step", &cfg.Ramp.Step},
		{"ramp-max", &cfg.Ramp.MaxRPS},
	}
	for _, f := range intFlags {
		if !fs.Changed(f.name) {
			continue
		}
		val, err := fs.GetInt(f.name)
		if err != nil {
			return err
		}
		*f.dst = val
	}

	durationFlags := []struct {
		name string
		dst  *time.Duration
	}{
		{"duration", &cfg.Duration},
		{"ramp-step-duration", &cfg.Ramp.StepDuration},
		{"timeout", &cfg.Timeout},
		{"window", &cfg.Window},
		{"tick", &cfg.TickInterval},
	}
	for _, f := range durationFlags {
		if !fs.Changed(f.name) {
			continue
		}
		val, err := fs.GetDuration(f.name)
		if err != nil {
			return err
		}
		*f.dst = val
	}

	if fs.Changed("ramp-pacing") {
		val, err := fs.GetString("ramp-pacing")
		if err != nil {
			return err
		}
		cfg.Ramp.Pacing = Pacing(strings.ToLower(strings.TrimSpace(val)))
	}

	boolFlags := []struct {
		name string
		dst  *bool
	}{
		{"json-output", &cfg.JSONOutput},
		{"yaml-output", &cfg.YAMLOutput},
		{"dashboard", &cfg.Dashboard},
		{"log-errors", &cfg.LogErrors},
		{"verbose", &cfg.Verbose},
		{"strict-thresholds", &cfg.StrictThresholds},
		{"tracing-insecure", &cfg.Tracing.Insecure},
	}
	for _, f := range boolFlags {
		if !fs.Changed(f.name) {
			continue
		}
		val, err := fs.GetBool(f.name)
		if err != nil {
			return err
		}
		*f.dst = val
	}

	stringFlags := []struct {
		name string
		dst  *string
	}{
		{"html-output", &cfg.HTMLOutput},
		{"history-file", &cfg.HistoryFile},
		{"tracing-endpoint", &cfg.Tracing.Endpoint},
		{"tracing-protocol", &cfg.Tracing.Protocol},
		{"tracing-service-name", &cfg.Tracing.ServiceName},
	}
	for _, f := range stringFlags {
		if !fs.Changed(f.name) {
			continue
		}
		val, err := fs.GetString(f.name)
		if err != nil {
			return err
		}
		*f.dst = strings.TrimSpace(val)
	}

	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}

	return nil
}
