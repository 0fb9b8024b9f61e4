// Package engine implements the mechanistic recurrence at the core of the
// claro simulator. Each step threads the causal signals through a small
// nonlinear combination with autoregressive memory and noise:
//
//	C1 -> X1, X3
//	X1, X2, X3, X5 -> M1
//	M1, X2, X3, X4, X6 -> Y
//
// The recurrence is strictly sequential: every record depends on the
// previous record's energy output and on the position of a single shared
// pseudorandom stream, so there is no parallelism opportunity within a run.
package engine

import (
	"math/rand"
	"time"

	"github.com/claro-lab/claro/internal/config"
	"github.com/claro-lab/claro/internal/signals"
)

// DefaultStart is the grid origin used when the caller does not supply one.
var DefaultStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Record is one simulated timestep.
type Record struct {
	Timestamp      time.Time
	Occupancy      float64 // X1, in [0, 220]
	TempOut        float64 // X2, degrees C
	TempPressure   float64 // X2 pressure, >= 0
	Open           int     // X3, 0 or 1
	BuildingFactor float64 // X4, config echo
	Availability   float64 // X5, derived from X3 and X4
	Activation     float64 // M1, clamped to [0, 2]
	KWh            float64 // Y, >= 0
}

// NewTimeGrid returns nSteps strictly increasing timestamps starting at
// start, spaced stepMinutes apart.
func NewTimeGrid(start time.Time, nSteps, stepMinutes int) []time.Time {
	grid := make([]time.Time, nSteps)
	step := time.Duration(stepMinutes) * time.Minute
	for i := range grid {
		grid[i] = start.Add(time.Duration(i) * step)
	}
	return grid
}

// Simulate runs the recurrence over the configured grid and returns one
// record per timestep, in timestamp order. A zero start means DefaultStart.
//
// Determinism contract: for identical cfg (including Seed) and start, the
// returned sequence is reproducible field for field. Both random draws per
// step (occupancy, then output noise) come from one seeded stream that is
// never re-seeded; closed steps skip the occupancy draw, so the stream
// position at step N depends on the regime history before N.
//
// Simulate trusts cfg; callers run cfg.Validate() first.
func Simulate(cfg config.SimConfig, start time.Time) []Record {
	rng := rand.New(rand.NewSource(cfg.Seed))
	if start.IsZero() {
		start = DefaultStart
	}

	nSteps := cfg.NDays * cfg.StepsPerDay()
	grid := NewTimeGrid(start, nSteps, cfg.FreqMinutes)

	records := make([]Record, 0, nSteps)
	yPrev := cfg.BaseKWhWhenClosed

	for _, ts := range grid {
		// X3: regime.
		open := signals.OpenRegime(ts)

		// X2: environment.
		tempOut := signals.OutdoorTemp(ts)
		pressure := signals.TempPressure(tempOut, signals.DefaultComfortLow, signals.DefaultComfortHigh)

		// X1: human use, driven by the C1 proxy.
		occ := signals.Occupancy(ts, open, cfg.AcademicIntensity, rng)

		// X5: availability, driven by X3 and shifted by X4.
		availability := (0.7 + 0.3*float64(open)) * cfg.BuildingFactorX4

		// M1: activation mediator.
		activation := cfg.RegimeToActivation*float64(open) +
			cfg.OccToActivation*occ +
			cfg.TempToActivation*pressure
		activation = signals.Clamp(activation*availability, 0.0, 2.0)

		// Deterministic demand before inertia and noise.
		baseline := cfg.BaseKWhWhenClosed
		if open == 1 {
			baseline = cfg.BaseKWhWhenOpen
		}
		baseline *= cfg.BuildingFactorX4

		target := baseline + cfg.ActivationToKWh*activation + cfg.DirectTempToKWh*pressure

		// X6: inertia plus noise.
		noise := rng.NormFloat64() * cfg.NoiseSigma
		y := cfg.InertiaPhi*yPrev + (1.0-cfg.InertiaPhi)*target + noise
		if y < 0 {
			y = 0
		}

		records = append(records, Record{
			Timestamp:      ts,
			Occupancy:      occ,
			TempOut:        tempOut,
			TempPressure:   pressure,
			Open:           open,
			BuildingFactor: cfg.BuildingFactorX4,
			Availability:   availability,
			Activation:     activation,
			KWh:            y,
		})

		yPrev = y
	}

	return records
}
