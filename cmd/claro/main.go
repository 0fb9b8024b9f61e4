package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/claro-lab/claro/internal/config"
	"github.com/claro-lab/claro/internal/logging"
)

var version = "0.1.0-dev"

func main() {
	// Optional .env next to the working directory; absence is fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "claro",
		Short: "Causal building-energy simulation and feature building",
		Long: `claro synthesizes plausible building-energy time series from a small
causal model (occupancy, outdoor temperature, open/closed regime, activation,
inertia) and turns simulated or measured tables into model-ready analytical
tables with derived comfort-pressure and lag features.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON where supported")
	rootCmd.PersistentFlags().String("config", "", "Path to a claro config file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "", "Log verbosity: info, debug, or trace")

	// Add subcommands
	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newBuildFeaturesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("claro version %s\n", version)
			}
		},
	}
}

// loadConfig resolves the effective configuration and logger for a command:
// defaults, then the --config file (if given), then CLARO_* environment
// overrides, then the --log-level flag on top.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, nil, err
	}

	log := logging.NewLogger(cfg.Logging.Level, os.Stderr)
	return cfg, log, nil
}
