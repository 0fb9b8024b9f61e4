// Package features turns a claro-shaped delimited file (simulated or real
// measurements) into a model-ready analytical table: timestamps parsed and
// validated, columns renamed, comfort pressure derived, values
// mean-resampled onto a contiguous grid, lag columns appended, and rows
// without full lag history dropped.
//
// The same transformation applies to simulator output and to future real
// inputs, so the only validation performed here is timestamp parsing.
package features

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/claro-lab/claro/internal/config"
	"github.com/claro-lab/claro/internal/signals"
	"github.com/claro-lab/claro/internal/table"
)

// Input columns the builder requires, by name.
const (
	colTimestamp = "timestamp"
	colYKWh      = "Y_kwh"
	colOccupancy = "X1_occupancy"
	colTempOut   = "X2_temp_out"
	colOpen      = "X3_open"
)

// Output column names of the analytical table, before lag columns.
var baseColumns = []string{
	"Y_kwh",
	"X1_occupancy_proxy",
	"X2_temp_out",
	"X2_temp_pressure",
	"X3_open",
}

// maxReportedBadRows bounds how many offending rows a timestamp error lists.
const maxReportedBadRows = 5

// timestampLayouts are tried in order when parsing input timestamps.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Table is a timestamp-indexed analytical table. Columns holds the column
// order; Values maps column name to one value per index entry.
type Table struct {
	Index   []time.Time
	Columns []string
	Values  map[string][]float64
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Index)
}

// Column returns the values of one column, or nil if absent.
func (t *Table) Column(name string) []float64 {
	return t.Values[name]
}

// Build reads the table at inPath, applies the feature transformation, and
// writes the result to outPath. It returns the built table. Any unparseable
// timestamp is fatal and the error reports the offending rows.
func Build(inPath, outPath string, cfg config.FeatureConfig) (*Table, error) {
	header, rows, err := table.Read(inPath)
	if err != nil {
		return nil, err
	}

	cols, err := requireColumns(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inPath, err)
	}

	index, raw, err := parseRows(rows, cols, cfg.Location())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inPath, err)
	}

	// Derive comfort pressure from the outdoor temperature with the
	// configured band. The input's own pressure column, if any, is ignored;
	// real measurement feeds will not carry one.
	for i := range raw.pressure {
		raw.pressure[i] = signals.TempPressure(raw.tempOut[i], cfg.ComfortLow, cfg.ComfortHigh)
	}

	out := resample(index, raw, cfg.Freq.Std())

	if cfg.AddYLags {
		addLags(out, cfg.YLags)
	}

	dropIncomplete(out)

	if err := write(outPath, out); err != nil {
		return nil, err
	}
	return out, nil
}

// columnIndex maps the required input columns to their positions.
type columnIndex struct {
	ts, y, occ, temp, open int
}

func requireColumns(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(name)] = i
	}

	idx := columnIndex{}
	required := []struct {
		name string
		dst  *int
	}{
		{colTimestamp, &idx.ts},
		{colYKWh, &idx.y},
		{colOccupancy, &idx.occ},
		{colTempOut, &idx.temp},
		{colOpen, &idx.open},
	}
	var missing []string
	for _, r := range required {
		i, ok := pos[r.name]
		if !ok {
			missing = append(missing, r.name)
			continue
		}
		*r.dst = i
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// rawSeries holds the parsed input columns before resampling.
type rawSeries struct {
	y, occ, tempOut, pressure, open []float64
}

// parseRows parses timestamps and numeric values. Unparseable timestamps
// are collected and reported together; row numbers are 1-based data rows
// (the header is row 0).
func parseRows(rows [][]string, cols columnIndex, loc *time.Location) ([]time.Time, rawSeries, error) {
	index := make([]time.Time, 0, len(rows))
	raw := rawSeries{
		y:        make([]float64, 0, len(rows)),
		occ:      make([]float64, 0, len(rows)),
		tempOut:  make([]float64, 0, len(rows)),
		pressure: make([]float64, len(rows)),
		open:     make([]float64, 0, len(rows)),
	}

	type badRow struct {
		line int
		raw  string
	}
	var bad []badRow

	for i, row := range rows {
		ts, err := parseTimestamp(row[cols.ts], loc)
		if err != nil {
			bad = append(bad, badRow{line: i + 1, raw: row[cols.ts]})
			continue
		}

		y, err := parseFloat(row[cols.y], colYKWh, i+1)
		if err != nil {
			return nil, raw, err
		}
		occ, err := parseFloat(row[cols.occ], colOccupancy, i+1)
		if err != nil {
			return nil, raw, err
		}
		temp, err := parseFloat(row[cols.temp], colTempOut, i+1)
		if err != nil {
			return nil, raw, err
		}
		open, err := parseFloat(row[cols.open], colOpen, i+1)
		if err != nil {
			return nil, raw, err
		}

		index = append(index, ts)
		raw.y = append(raw.y, y)
		raw.occ = append(raw.occ, occ)
		raw.tempOut = append(raw.tempOut, temp)
		raw.open = append(raw.open, open)
	}

	if len(bad) > 0 {
		examples := make([]string, 0, maxReportedBadRows)
		for i, b := range bad {
			if i == maxReportedBadRows {
				break
			}
			examples = append(examples, fmt.Sprintf("row %d: %q", b.line, b.raw))
		}
		return nil, raw, fmt.Errorf("unparseable timestamps in column %q (%d rows): %s",
			colTimestamp, len(bad), strings.Join(examples, "; "))
	}

	raw.pressure = raw.pressure[:len(index)]

	// Input order is not trusted; sort everything by timestamp.
	order := make([]int, len(index))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return index[order[a]].Before(index[order[b]]) })
	reorder(order, index, raw.y, raw.occ, raw.tempOut, raw.open)

	return index, raw, nil
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func parseFloat(s, col string, line int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("row %d: column %q: invalid number %q", line, col, s)
	}
	return v, nil
}

// reorder permutes the index and every series in place by order.
func reorder(order []int, index []time.Time, series ...[]float64) {
	tmpT := make([]time.Time, len(index))
	for i, j := range order {
		tmpT[i] = index[j]
	}
	copy(index, tmpT)

	tmp := make([]float64, len(index))
	for _, s := range series {
		for i, j := range order {
			tmp[i] = s[j]
		}
		copy(s, tmp)
	}
}

// resample averages every column into contiguous freq-sized buckets from
// the first to the last observation. Buckets without observations hold NaN
// and are removed later, so the lag shift always operates on a contiguous
// grid.
func resample(index []time.Time, raw rawSeries, freq time.Duration) *Table {
	out := &Table{
		Columns: append([]string(nil), baseColumns...),
		Values:  make(map[string][]float64, len(baseColumns)),
	}
	if len(index) == 0 {
		for _, c := range out.Columns {
			out.Values[c] = nil
		}
		return out
	}

	first := index[0].Truncate(freq)
	last := index[len(index)-1].Truncate(freq)
	nBuckets := int(last.Sub(first)/freq) + 1

	out.Index = make([]time.Time, nBuckets)
	for i := range out.Index {
		out.Index[i] = first.Add(time.Duration(i) * freq)
	}

	series := map[string][]float64{
		"Y_kwh":              raw.y,
		"X1_occupancy_proxy": raw.occ,
		"X2_temp_out":        raw.tempOut,
		"X2_temp_pressure":   raw.pressure,
		"X3_open":            raw.open,
	}

	counts := make([]int, nBuckets)
	bucketOf := make([]int, len(index))
	for i, ts := range index {
		b := int(ts.Truncate(freq).Sub(first) / freq)
		bucketOf[i] = b
		counts[b]++
	}

	for _, col := range out.Columns {
		src := series[col]
		sums := make([]float64, nBuckets)
		for i, v := range src {
			sums[bucketOf[i]] += v
		}
		vals := make([]float64, nBuckets)
		for b := range vals {
			if counts[b] == 0 {
				vals[b] = math.NaN()
				continue
			}
			vals[b] = sums[b] / float64(counts[b])
		}
		out.Values[col] = vals
	}

	return out
}

// addLags appends one Y_lag_<k> column per lag, shifting Y_kwh by k
// positions over the contiguous resampled grid. Positions without history
// hold NaN.
func addLags(t *Table, lags []int) {
	y := t.Values["Y_kwh"]
	for _, k := range lags {
		name := fmt.Sprintf("Y_lag_%d", k)
		vals := make([]float64, len(y))
		for i := range vals {
			if i < k {
				vals[i] = math.NaN()
				continue
			}
			vals[i] = y[i-k]
		}
		t.Columns = append(t.Columns, name)
		t.Values[name] = vals
	}
}

// dropIncomplete removes every row holding a NaN in any column.
func dropIncomplete(t *Table) {
	keep := make([]int, 0, len(t.Index))
	for i := range t.Index {
		complete := true
		for _, col := range t.Columns {
			if math.IsNaN(t.Values[col][i]) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}

	if len(keep) == len(t.Index) {
		return
	}

	newIndex := make([]time.Time, len(keep))
	for i, j := range keep {
		newIndex[i] = t.Index[j]
	}
	t.Index = newIndex

	for _, col := range t.Columns {
		src := t.Values[col]
		vals := make([]float64, len(keep))
		for i, j := range keep {
			vals[i] = src[j]
		}
		t.Values[col] = vals
	}
}

// write serializes the analytical table, timestamp index first, full float
// precision.
func write(path string, t *Table) error {
	header := append([]string{colTimestamp}, t.Columns...)
	rows := make([][]string, t.Len())
	for i := range rows {
		row := make([]string, 0, len(header))
		row = append(row, t.Index[i].Format(table.TimestampLayout))
		for _, col := range t.Columns {
			row = append(row, strconv.FormatFloat(t.Values[col][i], 'g', -1, 64))
		}
		rows[i] = row
	}
	return table.Write(path, header, rows)
}
