// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/beaconloc/pkg/types"
)

// FormatTable writes the best-parameter table and a per-algorithm summary
// of the surface to w. A best row taken from an unreliable cell is marked
// with an asterisk.
func FormatTable(r *Report, w io.Writer) {
	if len(r.Best) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}

	fmt.Fprintf(w, "%-18s  %-6s  %-6s  %-10s  %-7s  %-10s  %s\n",
		"Algorithm", "Rho0", "Alpha", "MeanErr(m)", "Samples", "UnrelCells", "Cells")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, b := range r.Best {
		cells, unreliable := 0, 0
		for _, s := range r.Surfaces {
			if s.Algorithm != b.Algorithm {
				continue
			}
			cells++
			if s.Unreliable {
				unreliable++
			}
		}
		name := string(b.Algorithm)
		if b.Unreliable {
			name += " *"
		}
		fmt.Fprintf(w, "%-18s  %-6.1f  %-6.2f  %-10.3f  %-7d  %-10d  %d\n",
			name, b.Params.Rho0, b.Params.Alpha, b.MeanError, b.Samples, unreliable, cells)
	}
	for _, b := range r.Best {
		if b.Unreliable {
			fmt.Fprintln(w, "* no reliable parameter cell; best row comes from an unreliable cell")
			break
		}
	}

	fmt.Fprintf(w, "\n%d anchors, %d measurements, %d error records\n",
		r.Anchors, r.Measurements, len(r.Records))
}

// FormatEstimates writes position estimates as a table to w.
func FormatEstimates(ests []types.PositionEstimate, w io.Writer) {
	if len(ests) == 0 {
		fmt.Fprintln(w, "No estimates.")
		return
	}
	fmt.Fprintf(w, "%-12s  %-18s  %-9s  %-9s  %-10s  %s\n",
		"Measurement", "Algorithm", "X", "Y", "Objective", "Flags")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, e := range ests {
		var flags []string
		if e.Provenance.Fallback {
			flags = append(flags, "fallback")
		}
		if e.Provenance.Degenerate {
			flags = append(flags, "degenerate")
		}
		fmt.Fprintf(w, "%-12s  %-18s  %-9.3f  %-9.3f  %-10.4g  %s\n",
			truncate(e.MeasurementID, 12), e.Algorithm, e.Position.X, e.Position.Y,
			e.Objective, strings.Join(flags, ","))
	}
}

// FormatJSON writes v as indented JSON to w.
func FormatJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
