package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	quiet      bool

	// Loaded before every subcommand runs.
	cfg Config
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "myspot",
	Short: "Data reduction for mySpot beamline scattering measurements",
	Long: `myspot reduces X-ray scattering data recorded at the mySpot beamline.

It reads SPEC scan logs, pyFAI calibration files and Eiger detector
frames, azimuthally integrates each frame into a 1D pattern and writes
per-run CSV tables and heatmaps. Detector frame stacks can also be
converted to TIFF for inspection.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		if quiet {
			level = zerolog.ErrorLevel
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.TimeOnly,
		}).Level(level).With().Timestamp().Logger()

		var err error
		cfg, err = loadConfig(configPath)
		if err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
}
