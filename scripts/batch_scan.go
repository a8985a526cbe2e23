// Command batch_scan walks directory trees for IVF files, analyzes each one
// and writes the per-file level decisions as a JSON report. Useful for
// sweeping an encode library before deciding what to re-mux.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/autobrr/go-av1level/pkg/av1level"
)

type scanResult struct {
	Path        string  `json:"path"`
	Width       uint32  `json:"width,omitempty"`
	Height      uint32  `json:"height,omitempty"`
	SeqLevel    string  `json:"seqLevel,omitempty"`
	SeqTier     string  `json:"seqTier,omitempty"`
	Level       string  `json:"level,omitempty"`
	Tier        string  `json:"tier,omitempty"`
	Mbps        float64 `json:"mbps,omitempty"`
	Overdeclare bool    `json:"overdeclared,omitempty"`
	Error       string  `json:"error,omitempty"`
}

type report struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Scanned     int          `json:"scanned"`
	Failed      int          `json:"failed"`
	Results     []scanResult `json:"results"`
}

func main() {
	outputPath := flag.String("out", "av1level_scan.json", "report output path")
	verbose := flag.Bool("v", false, "log every file while scanning")
	flag.Parse()

	roots := flag.Args()
	if len(roots) == 0 {
		fmt.Fprintln(os.Stderr, "usage: batch_scan [-out report.json] [-v] DIR [DIR...]")
		os.Exit(2)
	}

	rep := report{GeneratedAt: time.Now().UTC()}
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".ivf") {
				return nil
			}
			res := scanFile(path)
			if res.Error != "" {
				rep.Failed++
			}
			rep.Scanned++
			rep.Results = append(rep.Results, res)
			if *verbose {
				if res.Error != "" {
					fmt.Fprintf(os.Stderr, "%s: %s\n", path, res.Error)
				} else {
					fmt.Fprintf(os.Stderr, "%s: %s %s (declared %s)\n", path, res.Level, res.Tier, res.SeqLevel)
				}
			}
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "walk %s: %v\n", root, err)
			os.Exit(1)
		}
	}

	sort.Slice(rep.Results, func(i, j int) bool {
		return rep.Results[i].Path < rep.Results[j].Path
	})

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outputPath, append(data, '\n'), 0644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("scanned %d files (%d failed), report written to %s\n", rep.Scanned, rep.Failed, *outputPath)
}

func scanFile(path string) scanResult {
	res := scanResult{Path: path}
	analyzed, err := av1level.AnalyzeFile(path, av1level.Options{})
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Width = analyzed.Stats.PicWidth
	res.Height = analyzed.Stats.PicHeight
	res.SeqLevel = analyzed.Sequence.Level.String()
	res.SeqTier = analyzed.Sequence.Tier.String()
	res.Level = analyzed.Level.String()
	res.Tier = analyzed.Tier.String()
	res.Mbps = analyzed.Stats.Mbps
	res.Overdeclare = analyzed.Sequence.Level != analyzed.Level || analyzed.Sequence.Tier != analyzed.Tier
	return res
}
