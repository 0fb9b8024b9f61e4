package table

import (
	"strconv"

	"github.com/claro-lab/claro/internal/engine"
)

// TimestampLayout is the naive ISO-8601 form used in claro tables.
const TimestampLayout = "2006-01-02T15:04:05"

// RecordHeader is the simulator output schema, in serialization order.
var RecordHeader = []string{
	"timestamp",
	"X1_occupancy",
	"X2_temp_out",
	"X2_temp_pressure",
	"X3_open",
	"X4_building_factor",
	"X5_availability",
	"M1_activation",
	"Y_kwh",
}

// WriteRecords serializes a simulation run to path. Signals are rounded to
// 3 decimal places, activation and energy to 4; the rounding is purely for
// output readability, internal computation keeps full precision. The regime
// flag is rendered as 0.0/1.0.
//
// The schema is predetermined by RecordHeader, so zero records still
// produce a valid header-only file.
func WriteRecords(path string, recs []engine.Record) error {
	rows := make([][]string, len(recs))
	for i, r := range recs {
		rows[i] = []string{
			r.Timestamp.Format(TimestampLayout),
			formatFixed(r.Occupancy, 3),
			formatFixed(r.TempOut, 3),
			formatFixed(r.TempPressure, 3),
			formatFixed(float64(r.Open), 1),
			formatFixed(r.BuildingFactor, 3),
			formatFixed(r.Availability, 3),
			formatFixed(r.Activation, 4),
			formatFixed(r.KWh, 4),
		}
	}
	return Write(path, RecordHeader, rows)
}

func formatFixed(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
