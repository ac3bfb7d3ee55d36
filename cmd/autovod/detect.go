package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/autovod/internal/calibration"
	"github.com/GriffinCanCode/autovod/internal/detect"
	"github.com/GriffinCanCode/autovod/internal/diag"
	"github.com/GriffinCanCode/autovod/internal/fuzzy"
	"github.com/GriffinCanCode/autovod/internal/orchestrator/screen"
	"github.com/GriffinCanCode/autovod/internal/source"
)

var (
	detectNoOCR bool
	detectJSON  bool
	detectOut   string
)

// detectResult is one line of detect output.
type detectResult struct {
	Path     string          `json:"path"`
	Score    float64         `json:"score"`
	Detected bool            `json:"detected"`
	Error    string          `json:"error,omitempty"`
	Capture  *screen.Capture `json:"capture,omitempty"`
}

var detectCmd = &cobra.Command{
	Use:   "detect <image>...",
	Short: "Classify screenshots and read names from load-in screens",
	Long: `Score PNG or JPEG screenshots against the calibration table. For every
image classified as the load-in screen, both name boxes are read and matched.

Use it to re-check thresholds and probe colors against real capture footage.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := calibration.Load(cfg.Calibration)
		if err != nil {
			return err
		}
		classifier := detect.NewClassifier(table)

		var (
			recognizer screen.Recognizer
			matcher    *fuzzy.Matcher
		)
		if !detectNoOCR {
			adapter := openOCR()
			defer func() { _ = adapter.Close() }()
			recognizer = adapter
			matcher = fuzzy.NewMatcher(table.Vocabulary, cfg.MatchThreshold)
		}

		out := cmd.OutOrStdout()
		dirs := dumpDirs(detectOut, args)
		for i, path := range args {
			res := detectResult{Path: path}
			f, err := source.DecodeFile(path)
			switch {
			case err != nil:
				res.Error = err.Error()
			case !classifier.Fits(f):
				res.Error = fmt.Sprintf("frame is %dx%d, calibration %s expects %dx%d",
					f.Width, f.Height, table.Name, table.Width, table.Height)
			default:
				res.Score = classifier.Score(f)
				res.Detected = classifier.Detect(f)
				if res.Detected && recognizer != nil {
					proc := screen.NewProcessor(table, recognizer, matcher, diag.New(dirs[i], false))
					c, err := proc.Process(cmd.Context(), f)
					if err != nil {
						res.Error = err.Error()
					} else {
						res.Capture = &c
					}
				}
			}
			if err := printResult(out, res); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().BoolVar(&detectNoOCR, "no-ocr", false, "classify only, skip name recognition")
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "print one JSON object per image")
	detectCmd.Flags().StringVar(&detectOut, "out", "", "write name boxes and frame as PNG under a per-image subdirectory here")
}

// dumpDirs gives every image its own dump directory under out, named after the
// image file. Repeated names get a numeric suffix. An empty out disables dumps.
func dumpDirs(out string, paths []string) []string {
	dirs := make([]string, len(paths))
	if out == "" {
		return dirs
	}
	seen := make(map[string]int, len(paths))
	for i, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if name == "" || name == "." {
			name = "image"
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}
		dirs[i] = filepath.Join(out, name)
	}
	return dirs
}

func printResult(w io.Writer, r detectResult) error {
	if detectJSON {
		return json.NewEncoder(w).Encode(r)
	}
	if r.Error != "" {
		_, err := fmt.Fprintf(w, "%s: error: %s\n", r.Path, r.Error)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s: score=%.3f detected=%t\n", r.Path, r.Score, r.Detected); err != nil {
		return err
	}
	if r.Capture == nil {
		return nil
	}
	for i, p := range r.Capture.Players {
		name := "(no match)"
		if p.Matched {
			name = p.Name
		}
		if _, err := fmt.Fprintf(w, "  player %d: %-16s raw=%q\n", i+1, name, p.Raw); err != nil {
			return err
		}
	}
	return nil
}
