package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	myspot "github.com/hampusnasstrom/myspot-analysis"
)

var (
	flagPoints         int
	flagUnit           string
	flagWorkers        int
	flagHotPixelCutoff float64
	flagBaseline       bool
)

var integrateCmd = &cobra.Command{
	Use:   "integrate <root> <measurement>",
	Short: "Integrate every run of a measurement and save the results",
	Long: `Integrate reads <root>/<measurement>, azimuthally integrates the
detector frames of every run in the scan log and writes pattern CSVs,
metadata CSVs and heatmap PNGs into a fresh integrated_data directory.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, name := args[0], args[1]

		// Flags beat config file values.
		if cmd.Flags().Changed("points") {
			cfg.Points = flagPoints
		}
		if cmd.Flags().Changed("unit") {
			u, err := parseUnit(flagUnit)
			if err != nil {
				return err
			}
			cfg.Unit = u
		}
		if cmd.Flags().Changed("workers") {
			cfg.Workers = flagWorkers
		}
		if cmd.Flags().Changed("hot-pixel-cutoff") {
			cfg.HotPixelCutoff = flagHotPixelCutoff
		}
		if cmd.Flags().Changed("baseline") {
			cfg.Baseline = flagBaseline
		}

		m := myspot.Open(root, name).
			Points(cfg.Points).
			Unit(cfg.Unit).
			Workers(cfg.Workers).
			HotPixelCutoff(cfg.HotPixelCutoff)
		if cfg.Baseline {
			m = m.BaselineParams(cfg.BaselineSmoothness, cfg.BaselineAsymmetry)
		}
		if !quiet {
			m = m.Progress(progressBar(os.Stderr))
		}

		log.Info().Str("measurement", name).Msg("integrating")
		dir, err := m.SaveAll(cmd.Context())
		if err != nil {
			log.Error().Err(err).Msg("integration failed")
			return err
		}
		log.Info().Str("dir", dir).Msg("results written")
		return nil
	},
}

func init() {
	integrateCmd.Flags().IntVar(&flagPoints, "points", 0, "number of radial bins")
	integrateCmd.Flags().StringVar(&flagUnit, "unit", "", `radial unit ("q_nm^-1", "q_A^-1", "2th_deg")`)
	integrateCmd.Flags().IntVar(&flagWorkers, "workers", 0, "frames integrated concurrently")
	integrateCmd.Flags().Float64Var(&flagHotPixelCutoff, "hot-pixel-cutoff", 0, "zero pixels above this count")
	integrateCmd.Flags().BoolVar(&flagBaseline, "baseline", false, "subtract an ALS baseline from each pattern")
	rootCmd.AddCommand(integrateCmd)
}
