// Package config provides unified configuration loading for claro.
// It supports loading from YAML files and environment variables, and
// validates everything up front so simulation runs never start from a
// nonsensical parameter set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/claro-lab/claro/internal/signals"
)

// minutesPerDay is the day length the time grid must divide evenly.
const minutesPerDay = 24 * 60

var validate = validator.New()

// Config contains all claro configuration settings.
type Config struct {
	// Simulation contains the causal-model parameters for claro simulate.
	Simulation SimConfig `json:"simulation" yaml:"simulation"`

	// Features contains settings for claro build-features.
	Features FeatureConfig `json:"features" yaml:"features"`

	// Logging contains settings for operational and run-trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// LoggingConfig configures claro's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables run tracing to the output directory's runs.jsonl.
	Level string `json:"level" yaml:"level"`
}

// SimConfig is the immutable parameter bundle for one simulation run.
// Field names follow the causal diagram: X4 is the structural building
// factor, M1 the activation mediator, Y the energy output.
type SimConfig struct {
	// Seed initializes the single pseudorandom stream consumed across the
	// whole run. Identical seed, grid, and start give identical output.
	Seed int64 `json:"seed" yaml:"seed"`

	// FreqMinutes is the time grid resolution. Must divide a day evenly.
	FreqMinutes int `json:"freq_minutes" yaml:"freq_minutes" validate:"gt=0"`

	// NDays is the simulation horizon in whole days.
	NDays int `json:"n_days" yaml:"n_days" validate:"gte=1"`

	// BuildingFactorX4 shifts the baseline: >1 means a more demanding building.
	BuildingFactorX4 float64 `json:"building_factor_x4" yaml:"building_factor_x4" validate:"gt=0"`

	// Baseline consumption per interval, in kWh.
	BaseKWhWhenClosed float64 `json:"base_kwh_when_closed" yaml:"base_kwh_when_closed" validate:"gte=0"`
	BaseKWhWhenOpen   float64 `json:"base_kwh_when_open" yaml:"base_kwh_when_open" validate:"gte=0"`

	// How signals translate into activation (M1).
	OccToActivation    float64 `json:"occ_to_activation" yaml:"occ_to_activation" validate:"gte=0"`
	TempToActivation   float64 `json:"temp_to_activation" yaml:"temp_to_activation" validate:"gte=0"`
	RegimeToActivation float64 `json:"regime_to_activation" yaml:"regime_to_activation" validate:"gte=0"`

	// How activation and comfort pressure translate into kWh.
	ActivationToKWh float64 `json:"activation_to_kwh" yaml:"activation_to_kwh" validate:"gte=0"`
	DirectTempToKWh float64 `json:"direct_temp_to_kwh" yaml:"direct_temp_to_kwh" validate:"gte=0"`

	// InertiaPhi is the autoregressive memory coefficient:
	// 0 = no memory, 1 = full memory.
	InertiaPhi float64 `json:"inertia_phi" yaml:"inertia_phi" validate:"gte=0,lte=1"`

	// NoiseSigma is the standard deviation of the per-step output noise.
	NoiseSigma float64 `json:"noise_sigma" yaml:"noise_sigma" validate:"gte=0"`

	// AcademicIntensity is the C1 confounder proxy driving occupancy:
	// 0.6 vacation, 1.0 normal, 1.2 exams.
	AcademicIntensity float64 `json:"academic_intensity" yaml:"academic_intensity" validate:"gte=0"`
}

// FeatureConfig configures the feature-building transformation.
type FeatureConfig struct {
	// Freq is the resampling frequency of the analytical table.
	Freq Duration `json:"freq" yaml:"freq" validate:"gt=0"`

	// TZ is an optional IANA location name used when parsing naive input
	// timestamps. Empty means UTC.
	TZ string `json:"tz,omitempty" yaml:"tz,omitempty"`

	// Comfort band used to derive the comfort-pressure feature.
	ComfortLow  float64 `json:"comfort_low" yaml:"comfort_low"`
	ComfortHigh float64 `json:"comfort_high" yaml:"comfort_high"`

	// AddYLags controls whether lagged energy columns are appended.
	AddYLags bool `json:"add_y_lags" yaml:"add_y_lags"`

	// YLags lists the lag offsets, in resampled steps, for the Y_lag_<k>
	// columns. Tuned for hourly data by default.
	YLags []int `json:"y_lags" yaml:"y_lags" validate:"dive,gte=1"`
}

// Default returns a Config populated with the documented defaults.
func Default() *Config {
	return &Config{
		Simulation: DefaultSim(),
		Features:   DefaultFeatures(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultSim returns the default simulation parameter set.
func DefaultSim() SimConfig {
	return SimConfig{
		Seed:               123,
		FreqMinutes:        60,
		NDays:              60,
		BuildingFactorX4:   1.10,
		BaseKWhWhenClosed:  8.0,
		BaseKWhWhenOpen:    18.0,
		OccToActivation:    0.020,
		TempToActivation:   0.060,
		RegimeToActivation: 0.35,
		ActivationToKWh:    35.0,
		DirectTempToKWh:    0.50,
		InertiaPhi:         0.75,
		NoiseSigma:         2.5,
		AcademicIntensity:  1.0,
	}
}

// DefaultFeatures returns the default feature-building parameter set.
func DefaultFeatures() FeatureConfig {
	return FeatureConfig{
		Freq:        Duration(time.Hour),
		ComfortLow:  signals.DefaultComfortLow,
		ComfortHigh: signals.DefaultComfortHigh,
		AddYLags:    true,
		YLags:       []int{1, 24},
	}
}

// Load loads configuration from an optional YAML file and environment
// variables. Order: defaults -> file (if path is non-empty) -> CLARO_* env
// overrides. The result is not validated; callers validate the sections
// they are about to use.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file, layered over
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("CLARO_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Simulation.Seed = n
		}
	}

	if v := os.Getenv("CLARO_N_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.NDays = n
		}
	}

	if v := os.Getenv("CLARO_FREQ_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.FreqMinutes = n
		}
	}

	if v := os.Getenv("CLARO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// Validate checks the simulation parameters, failing fast on the first
// violated constraint.
func (c SimConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("simulation config: %w", err)
	}
	if minutesPerDay%c.FreqMinutes != 0 {
		return fmt.Errorf("simulation config: freq_minutes must divide a day evenly, got %d", c.FreqMinutes)
	}
	return nil
}

// StepsPerDay returns the number of grid points per simulated day.
func (c SimConfig) StepsPerDay() int {
	return minutesPerDay / c.FreqMinutes
}

// Validate checks the feature-building parameters.
func (c FeatureConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("features config: %w", err)
	}
	if c.ComfortHigh < c.ComfortLow {
		return fmt.Errorf("features config: comfort band inverted: low %.2f > high %.2f", c.ComfortLow, c.ComfortHigh)
	}
	if c.TZ != "" {
		if _, err := time.LoadLocation(c.TZ); err != nil {
			return fmt.Errorf("features config: invalid tz %q: %w", c.TZ, err)
		}
	}
	return nil
}

// Location resolves the configured timezone, defaulting to UTC.
// Call Validate first; an unloadable TZ falls back to UTC here.
func (c FeatureConfig) Location() *time.Location {
	if c.TZ == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks the logging level.
func (c LoggingConfig) Validate() error {
	validLevels := map[string]bool{"": true, "info": true, "debug": true, "trace": true}
	if !validLevels[c.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Level)
	}
	return nil
}
