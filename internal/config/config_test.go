package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Simulation.Validate(); err != nil {
		t.Errorf("default simulation config invalid: %v", err)
	}
	if err := cfg.Features.Validate(); err != nil {
		t.Errorf("default features config invalid: %v", err)
	}
	if err := cfg.Logging.Validate(); err != nil {
		t.Errorf("default logging config invalid: %v", err)
	}
}

func TestDefaultSimValues(t *testing.T) {
	sim := DefaultSim()
	if sim.Seed != 123 {
		t.Errorf("Seed = %d, want 123", sim.Seed)
	}
	if sim.FreqMinutes != 60 || sim.NDays != 60 {
		t.Errorf("grid defaults = %d min / %d days, want 60/60", sim.FreqMinutes, sim.NDays)
	}
	if sim.InertiaPhi != 0.75 {
		t.Errorf("InertiaPhi = %v, want 0.75", sim.InertiaPhi)
	}
	if sim.StepsPerDay() != 24 {
		t.Errorf("StepsPerDay() = %d, want 24", sim.StepsPerDay())
	}
}

func TestSimConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SimConfig)
		wantErr bool
	}{
		{"defaults pass", func(c *SimConfig) {}, false},
		{"inertia above one", func(c *SimConfig) { c.InertiaPhi = 1.2 }, true},
		{"inertia negative", func(c *SimConfig) { c.InertiaPhi = -0.1 }, true},
		{"inertia boundary zero", func(c *SimConfig) { c.InertiaPhi = 0 }, false},
		{"inertia boundary one", func(c *SimConfig) { c.InertiaPhi = 1 }, false},
		{"negative freq", func(c *SimConfig) { c.FreqMinutes = -60 }, true},
		{"zero freq", func(c *SimConfig) { c.FreqMinutes = 0 }, true},
		{"freq not dividing a day", func(c *SimConfig) { c.FreqMinutes = 7 }, true},
		{"fifteen minute grid", func(c *SimConfig) { c.FreqMinutes = 15 }, false},
		{"zero days", func(c *SimConfig) { c.NDays = 0 }, true},
		{"negative coefficient", func(c *SimConfig) { c.ActivationToKWh = -1 }, true},
		{"negative noise", func(c *SimConfig) { c.NoiseSigma = -0.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSim()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFeatureConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FeatureConfig)
		wantErr bool
	}{
		{"defaults pass", func(c *FeatureConfig) {}, false},
		{"inverted comfort band", func(c *FeatureConfig) { c.ComfortLow = 25; c.ComfortHigh = 20 }, true},
		{"zero freq", func(c *FeatureConfig) { c.Freq = 0 }, true},
		{"zero lag", func(c *FeatureConfig) { c.YLags = []int{0} }, true},
		{"negative lag", func(c *FeatureConfig) { c.YLags = []int{1, -24} }, true},
		{"valid tz", func(c *FeatureConfig) { c.TZ = "Europe/Madrid" }, false},
		{"invalid tz", func(c *FeatureConfig) { c.TZ = "Mars/Olympus" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultFeatures()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `simulation:
  seed: 7
  n_days: 3
  inertia_phi: 0.5
features:
  freq: 30m
  y_lags: [1, 48]
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Simulation.Seed != 7 || cfg.Simulation.NDays != 3 {
		t.Errorf("simulation overrides not applied: %+v", cfg.Simulation)
	}
	// Unset fields keep their defaults.
	if cfg.Simulation.FreqMinutes != 60 {
		t.Errorf("FreqMinutes = %d, want default 60", cfg.Simulation.FreqMinutes)
	}
	if cfg.Features.Freq.Std() != 30*time.Minute {
		t.Errorf("Freq = %v, want 30m", cfg.Features.Freq)
	}
	if len(cfg.Features.YLags) != 2 || cfg.Features.YLags[1] != 48 {
		t.Errorf("YLags = %v, want [1 48]", cfg.Features.YLags)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load with missing explicit file should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CLARO_SEED", "99")
	t.Setenv("CLARO_N_DAYS", "2")
	t.Setenv("CLARO_LOG_LEVEL", "trace")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.Seed != 99 {
		t.Errorf("Seed = %d, want 99", cfg.Simulation.Seed)
	}
	if cfg.Simulation.NDays != 2 {
		t.Errorf("NDays = %d, want 2", cfg.Simulation.NDays)
	}
	if cfg.Logging.Level != "trace" {
		t.Errorf("Level = %q, want trace", cfg.Logging.Level)
	}
}

func TestDurationUnmarshalMinutesForm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("features:\n  freq: 15\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Features.Freq.Std() != 15*time.Minute {
		t.Errorf("Freq = %v, want 15m", cfg.Features.Freq)
	}
}
