package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hampusnasstrom/myspot-analysis/specfile"
)

var specCmd = &cobra.Command{
	Use:   "spec <file>",
	Short: "Dump a SPEC scan log as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := specfile.Load(args[0])
		if err != nil {
			return err
		}

		out := specJSON{
			Name:     f.Name,
			Epoch:    f.Epoch,
			Datetime: f.Datetime.Format(time.RFC3339),
			Motors:   f.Motors,
			Comments: f.Comments,
		}
		for _, s := range f.Scans {
			out.Scans = append(out.Scans, scanJSON{
				Number:         s.Number,
				Command:        s.Command,
				Datetime:       s.Datetime.Format(time.RFC3339),
				MotorPositions: s.MotorPositions,
				Comments:       s.Comments,
				Columns:        s.Columns,
				Rows:           s.Rows,
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

type specJSON struct {
	Name     string     `json:"name"`
	Epoch    int64      `json:"epoch"`
	Datetime string     `json:"datetime"`
	Motors   []string   `json:"motors,omitempty"`
	Comments []string   `json:"comments,omitempty"`
	Scans    []scanJSON `json:"scans"`
}

type scanJSON struct {
	Number         int        `json:"number"`
	Command        string     `json:"command"`
	Datetime       string     `json:"datetime"`
	MotorPositions []float64  `json:"motor_positions,omitempty"`
	Comments       []string   `json:"comments,omitempty"`
	Columns        []string   `json:"columns"`
	Rows           [][]string `json:"rows"`
}

func init() {
	rootCmd.AddCommand(specCmd)
}
