package main

import (
	"fmt"
	"image/png"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/autovod/internal/calibration"
)

var (
	calibrationList      bool
	calibrationReference string
)

var calibrationCmd = &cobra.Command{
	Use:   "calibration",
	Short: "Print the active calibration table",
	Long: `Print probes, name boxes and vocabulary of the calibration table.

With --reference, also write a PNG that paints every probe in its expected
color; it classifies as the load-in screen and is a starting point for
checking a new capture setup.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if calibrationList {
			for _, n := range calibration.Names() {
				fmt.Fprintln(out, n)
			}
			return nil
		}

		t, err := calibration.Load(cfg.Calibration)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  %dx%d  threshold=%.2f  match<%d\n", t.Name, t.Width, t.Height, t.Threshold, t.MatchLimit)
		fmt.Fprintln(out, "probes:")
		for _, p := range t.Probes {
			fmt.Fprintf(out, "  %-24s #%02X%02X%02X%02X ±%-3d %s\n",
				p.Label, p.Color[0], p.Color[1], p.Color[2], p.Color[3], p.Tolerance, p.Rect)
		}
		fmt.Fprintln(out, "name boxes:")
		for i, b := range t.NameBoxes {
			fmt.Fprintf(out, "  %d  %s\n", i, b.Resolve(t.Width, t.Height))
		}
		fmt.Fprintf(out, "vocabulary (%d): %s\n", len(t.Vocabulary), strings.Join(t.Vocabulary, ", "))

		if calibrationReference != "" {
			if err := writeReference(t, calibrationReference); err != nil {
				return err
			}
			fmt.Fprintf(out, "reference frame written to %s\n", calibrationReference)
		}
		return nil
	},
}

func init() {
	calibrationCmd.Flags().BoolVar(&calibrationList, "list", false, "list known calibration tables")
	calibrationCmd.Flags().StringVar(&calibrationReference, "reference", "", "write a reference PNG to this path")
}

func writeReference(t *calibration.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, t.Reference().Image()); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode reference: %w", err)
	}
	return f.Close()
}
