package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional configuration file.
// Flag values override file values; the mode is resolved last.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := &Config{
		Timeout:      DefaultTimeout,
		Window:       DefaultWindow,
		TickInterval: DefaultTickInterval,
		ConfigFile:   configPath,
		Ramp:         RampConfig{Pacing: PacingBurst},
		Tracing:      TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	if cfg.Ramp.Pacing == "" {
		cfg.Ramp.Pacing = PacingBurst
	}
	cfg.ResolveMode()

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "target", "url"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "mode"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("mode: %w", err)
		}
		cfg.Mode = Mode(strings.ToLower(strings.TrimSpace(val)))
	}

	if raw, ok := lookupSetting(settings, "rate", "rps"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "power", "concurrency"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("power: %w", err)
		}
		cfg.Power = val
	}

	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = dur
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "window"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("window: %w", err)
		}
		cfg.Window = dur
	}

	if raw, ok := lookupSetting(settings, "tickinterval", "tick_interval", "tick-interval", "tick"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("tickInterval: %w", err)
		}
		cfg.TickInterval = dur
	}

	if raw, ok := lookupSetting(settings, "ramp"); ok {
		ramp, err := parseRamp(raw)
		if err != nil {
			return fmt.Errorf("ramp: %w", err)
		}
		cfg.Ramp = ramp
	}

	boolSettings := []struct {
		keys []string
		dst  *bool
	}{
		{[]string{"jsonoutput", "json_output", "json-output"}, &cfg.JSONOutput},
		{[]string{"yamloutput", "yaml_output", "yaml-output"}, &cfg.YAMLOutput},
		{[]string{"dashboard"}, &cfg.Dashboard},
		{[]string{"logerrors", "log_errors", "log-errors"}, &cfg.LogErrors},
		{[]string{"verbose"}, &cfg.Verbose},
		{[]string{"strictthresholds", "strict_thresholds", "strict-thresholds"}, &cfg.StrictThresholds},
	}
	for _, s := range boolSettings {
		raw, ok := lookupSetting(settings, s.keys...)
		if !ok {
			continue
		}
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", s.keys[0], err)
		}
		*s.dst = val
	}

	if raw, ok := lookupSetting(settings, "htmloutput", "html_output", "html-output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("htmlOutput: %w", err)
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "historyfile", "history_file", "history-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("historyFile: %w", err)
		}
		cfg.HistoryFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

func parseRamp(value interface{}) (RampConfig, error) {
	ramp := RampConfig{Pacing: PacingBurst}
	if value == nil {
		return ramp, nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return ramp, err
	}

	ints := []struct {
		keys []string
		dst  *int
	}{
		{[]string{"start_rps", "startrps", "start"}, &ramp.StartRPS},
		{[]string{"step"}, &ramp.Step},
		{[]string{"max_rps", "maxrps", "max"}, &ramp.MaxRPS},
	}
	for _, s := range ints {
		raw, ok := lookupSetting(settings, s.keys...)
		if !ok {
			continue
		}
		val, err := asInt(raw)
		if err != nil {
			return ramp, fmt.Errorf("%s: %w", s.keys[0], err)
		}
		*s.dst = val
	}

	if raw, ok := lookupSetting(settings, "step_duration", "stepduration", "step-duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return ramp, fmt.Errorf("step_duration: %w", err)
		}
		ramp.StepDuration = dur
	}

	if raw, ok := lookupSetting(settings, "pacing"); ok {
		val, err := asString(raw)
		if err != nil {
			return ramp, fmt.Errorf("pacing: %w", err)
		}
		if val = strings.ToLower(strings.TrimSpace(val)); val != "" {
			ramp.Pacing = Pacing(val)
		}
	}

	return ramp, nil
}

func parseTracing(value interface{}, base TracingConfig) (TracingConfig, error) {
	tracing := base
	if value == nil {
		return tracing, nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return tracing, err
	}

	strs := []struct {
		keys []string
		dst  *string
	}{
		{[]string{"endpoint"}, &tracing.Endpoint},
		{[]string{"protocol"}, &tracing.Protocol},
		{[]string{"service_name", "servicename", "service-name"}, &tracing.ServiceName},
	}
	for _, s := range strs {
		raw, ok := lookupSetting(settings, s.keys...)
		if !ok {
			continue
		}
		val, err := asString(raw)
		if err != nil {
			return tracing, fmt.Errorf("%s: %w", s.keys[0], err)
		}
		*s.dst = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "sample_rate", "samplerate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return tracing, fmt.Errorf("sample_rate: %w", err)
		}
		tracing.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return tracing, fmt.Errorf("insecure: %w", err)
		}
		tracing.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return tracing, fmt.Errorf("propagate: %w", err)
		}
		tracing.Propagate = &val
	}

	return tracing, nil
}
