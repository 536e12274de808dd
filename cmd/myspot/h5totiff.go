package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	myspot "github.com/hampusnasstrom/myspot-analysis"
	"github.com/hampusnasstrom/myspot-analysis/frame"
)

var (
	tiffThreshold float64
	tiffAverage   bool
)

// thresholdMarker replaces pixels above the threshold so they stand
// out as negative in the written image.
const thresholdMarker = -2

var h5totiffCmd = &cobra.Command{
	Use:   "h5totiff <file>...",
	Short: "Convert detector frames to float TIFF",
	Long: `h5totiff reads detector frames and writes them as 32-bit float
TIFF. With --average all inputs are averaged into a single image named
after the first input; otherwise each input is written separately with
a _masked.tiff suffix. Pixels above --threshold are set to -2.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if tiffAverage {
			return averageToTIFF(args)
		}
		for _, path := range args {
			if err := convertToTIFF(path); err != nil {
				return err
			}
		}
		return nil
	},
}

func convertToTIFF(path string) error {
	f, err := myspot.OpenFrame(path)
	if err != nil {
		return err
	}
	applyThreshold(f)
	out := trimFrameExt(path) + "_masked.tiff"
	if err := frame.WriteFloatTIFF(out, f); err != nil {
		return err
	}
	log.Info().Str("file", out).Msg("written")
	return nil
}

func averageToTIFF(paths []string) error {
	stack := make([]*frame.Frame, 0, len(paths))
	for _, path := range paths {
		f, err := myspot.OpenFrame(path)
		if err != nil {
			return err
		}
		applyThreshold(f)
		stack = append(stack, f)
	}
	avg, err := frame.Average(stack)
	if err != nil {
		return fmt.Errorf("averaging: %w", err)
	}
	out := trimFrameSuffix(paths[0]) + "_averaged.tiff"
	if err := frame.WriteFloatTIFF(out, avg); err != nil {
		return err
	}
	log.Info().Str("file", out).Int("frames", len(stack)).Msg("written")
	return nil
}

func applyThreshold(f *frame.Frame) {
	if tiffThreshold > 0 {
		f.SetAbove(tiffThreshold, thresholdMarker)
	}
}

// Eiger file names end in _NNNNNN_data_NNNNNN.h5.
var frameSuffixRe = regexp.MustCompile(`_\d{6}_data_\d{6}\.h5$`)

// trimFrameSuffix strips the run and image numbering from an Eiger
// file name, falling back to stripping the extension.
func trimFrameSuffix(path string) string {
	if loc := frameSuffixRe.FindStringIndex(path); loc != nil {
		return path[:loc[0]]
	}
	return trimFrameExt(path)
}

func trimFrameExt(path string) string {
	for _, ext := range []string{".h5", ".hdf5", ".nxs", ".edf", ".tif", ".tiff"} {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}

func init() {
	h5totiffCmd.Flags().Float64Var(&tiffThreshold, "threshold", 0, "set pixels above this count to -2 (0 disables)")
	h5totiffCmd.Flags().BoolVar(&tiffAverage, "average", false, "average all inputs into one image")
	rootCmd.AddCommand(h5totiffCmd)
}
