package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/claro-lab/claro/internal/config"
	"github.com/claro-lab/claro/internal/features"
	"github.com/claro-lab/claro/internal/logging"
)

func newBuildFeaturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build-features",
		Short: "Build a model-ready analytical table from a claro-shaped input",
		Long: `Transform a simulated or measured delimited file into an analytical
table: parse and validate timestamps, derive comfort pressure, resample to
the target frequency by averaging, append lag features, and drop rows
without full lag history.

The input needs at least the columns timestamp, Y_kwh, X1_occupancy,
X2_temp_out, and X3_open. Paths ending in .zst are handled compressed on
both sides.

Examples:
  claro build-features --in data/simulated.csv
  claro build-features --in data/metered.csv.zst --out data/features.csv --freq 30m --lags 1,48`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			feat := cfg.Features
			if cmd.Flags().Changed("freq") {
				s, _ := cmd.Flags().GetString("freq")
				d, perr := time.ParseDuration(s)
				if perr != nil {
					return fmt.Errorf("invalid --freq %q: %w", s, perr)
				}
				feat.Freq = config.Duration(d)
			}
			if cmd.Flags().Changed("tz") {
				feat.TZ, _ = cmd.Flags().GetString("tz")
			}
			if cmd.Flags().Changed("lags") {
				s, _ := cmd.Flags().GetString("lags")
				lags, perr := parseLags(s)
				if perr != nil {
					return perr
				}
				feat.YLags = lags
				feat.AddYLags = len(lags) > 0
			}
			if err := feat.Validate(); err != nil {
				return err
			}

			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")

			t0 := time.Now()
			built, err := features.Build(in, out, feat)
			if err != nil {
				return err
			}
			elapsed := time.Since(t0)

			log.Info("feature table built",
				"rows", built.Len(),
				"columns", len(built.Columns),
				"freq", feat.Freq.String(),
				"in", in,
				"out", out,
				"elapsed", elapsed.String(),
			)

			trace := logging.NewRunLogger(filepath.Dir(out), cfg.Logging.Level)
			defer trace.Close()
			trace.Log(map[string]any{
				"event":      "build-features",
				"rows":       built.Len(),
				"columns":    built.Columns,
				"freq":       feat.Freq.String(),
				"in":         in,
				"out":        out,
				"elapsed_ms": elapsed.Milliseconds(),
			})

			return nil
		},
	}

	cmd.Flags().String("in", "", "Input table path (required)")
	cmd.Flags().String("out", "data/features.csv", "Output table path (.zst for compressed)")
	cmd.Flags().String("freq", "", "Resampling frequency, e.g. 1h or 30m")
	cmd.Flags().String("lags", "", "Comma-separated lag offsets in resampled steps, e.g. 1,24 (empty string disables lags)")
	cmd.Flags().String("tz", "", "IANA location for parsing naive timestamps")
	cmd.MarkFlagRequired("in")

	return cmd
}

// parseLags parses a comma-separated lag list. An empty string means no
// lag columns at all.
func parseLags(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	lags := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid --lags entry %q: lags are positive integers", p)
		}
		lags = append(lags, n)
	}
	return lags, nil
}
