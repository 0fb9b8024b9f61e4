// Package signals provides the pure signal generators behind the claro
// simulator: outdoor temperature, the open/closed operating regime,
// occupancy intensity, and comfort pressure.
//
// All functions are stateless. Occupancy consumes randomness from a
// caller-supplied source but keeps no state of its own; everything else is
// a deterministic function of the timestamp (and scalar parameters).
package signals

import (
	"math"
	"math/rand"
	"time"
)

// Default comfort band for the comfort-pressure signal, in degrees C.
// Both the simulator and the feature builder derive pressure from this
// band unless configured otherwise.
const (
	DefaultComfortLow  = 20.0
	DefaultComfortHigh = 23.0
)

// OccupancyCap bounds the occupancy signal from above.
const OccupancyCap = 220.0

// Outdoor temperature model parameters: a fixed annual baseline with a
// seasonal sinusoid and a smaller daily sinusoid phased so the trough
// lands near 05:00 and the peak near 15:00.
const (
	tempBaselineC = 8.0
	seasonalAmpC  = 9.0
	dailyAmpC     = 3.5
	dailyPhaseH   = 5.0
)

// Occupancy profile parameters: two Gaussian bumps (midday and late
// afternoon), a weekend damping multiplier, and a capacity scale that the
// academic-intensity confounder multiplies into.
const (
	occMiddayWeight  = 0.6
	occMiddayHour    = 13.0
	occMiddaySigma   = 3.5
	occEveningWeight = 0.4
	occEveningHour   = 18.0
	occEveningSigma  = 2.8
	occWeekendFactor = 0.65
	occBaseCapacity  = 180.0
	occNoiseSigma    = 8.0
)

// Clamp limits x to the closed interval [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// fractionalHour returns the hour-of-day including the minute fraction,
// e.g. 13.5 for 13:30.
func fractionalHour(ts time.Time) float64 {
	return float64(ts.Hour()) + float64(ts.Minute())/60.0
}

// isWeekday reports whether ts falls on Monday through Friday.
func isWeekday(ts time.Time) bool {
	wd := ts.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// OutdoorTemp returns the simulated outdoor temperature (X2) at ts:
// seasonal variation around the annual baseline plus a daily cycle that is
// coolest around 05:00 and warmest around 15:00.
func OutdoorTemp(ts time.Time) float64 {
	dayOfYear := float64(ts.YearDay())
	hour := fractionalHour(ts)

	seasonal := tempBaselineC + seasonalAmpC*math.Sin(2*math.Pi*dayOfYear/365.0)
	daily := dailyAmpC * math.Sin(2*math.Pi*(hour-dailyPhaseH)/24.0)

	return seasonal + daily
}

// OpenRegime returns the open/closed operating regime (X3) at ts:
// open on weekdays 08:00-22:00 and weekends 10:00-18:00, closed otherwise.
// Interval bounds are half-open, so 22:00 itself is closed.
func OpenRegime(ts time.Time) int {
	hour := fractionalHour(ts)

	if isWeekday(ts) {
		if hour >= 8.0 && hour < 22.0 {
			return 1
		}
		return 0
	}
	if hour >= 10.0 && hour < 18.0 {
		return 1
	}
	return 0
}

// Occupancy returns the occupancy intensity (X1) at ts, in [0, OccupancyCap].
//
// Closed steps return exactly 0 without consuming randomness; the caller's
// rng stream position is only advanced while the building is open. Open
// steps follow a bimodal daily profile scaled by academicIntensity and a
// weekend multiplier, with Gaussian noise drawn from rng.
func Occupancy(ts time.Time, open int, academicIntensity float64, rng *rand.Rand) float64 {
	if open == 0 {
		return 0.0
	}

	hour := fractionalHour(ts)
	profile := occMiddayWeight*gaussianBump(hour, occMiddayHour, occMiddaySigma) +
		occEveningWeight*gaussianBump(hour, occEveningHour, occEveningSigma)

	multiplier := occWeekendFactor
	if isWeekday(ts) {
		multiplier = 1.0
	}
	capacity := occBaseCapacity * academicIntensity

	noise := rng.NormFloat64() * occNoiseSigma
	occ := capacity*profile*multiplier + noise

	return Clamp(occ, 0.0, OccupancyCap)
}

// TempPressure converts an outdoor temperature into a comfort-pressure
// signal: the distance outside the [low, high] comfort band, zero inside it.
func TempPressure(tempOut, low, high float64) float64 {
	switch {
	case tempOut < low:
		return low - tempOut
	case tempOut > high:
		return tempOut - high
	default:
		return 0.0
	}
}

// gaussianBump is an unnormalized Gaussian centered at mu.
func gaussianBump(x, mu, sigma float64) float64 {
	d := x - mu
	return math.Exp(-(d * d) / (2 * sigma * sigma))
}
