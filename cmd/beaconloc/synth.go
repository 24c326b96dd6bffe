// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/beaconloc/internal/dataset"
	"github.com/pdiddy/beaconloc/internal/geometry"
	"github.com/pdiddy/beaconloc/pkg/types"
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Write a synthetic dataset",
	Long: `Synth places a device on a lattice of points and records the signal
the propagation model predicts at each anchor, plus optional Gaussian
noise. Anchors come from an anchor CSV, or default to the four corners
of a square of the given size.`,
	RunE: runSynth,
}

func init() {
	synthCmd.Flags().String("anchors", "", "anchor CSV (AP,x,y); default: corners of a --size square")
	synthCmd.Flags().Float64("size", 10, "side of the default anchor square in metres")
	synthCmd.Flags().Float64("step", 1, "lattice spacing in metres")
	synthCmd.Flags().Float64("inset", 1, "distance between the lattice and the anchor bounding box")
	synthCmd.Flags().Float64("rho0", 60, "true rho0")
	synthCmd.Flags().Float64("alpha", 2, "true alpha")
	synthCmd.Flags().Float64("noise", 0, "noise standard deviation in dB")
	synthCmd.Flags().Uint64("seed", 1, "noise seed")
	synthCmd.Flags().Float64("height", 0, "vertical offset between anchors and devices in metres")
	synthCmd.Flags().String("out", "data/synthetic.yaml", "output dataset file")

	rootCmd.AddCommand(synthCmd)
}

func runSynth(cmd *cobra.Command, args []string) error {
	anchorsPath, _ := cmd.Flags().GetString("anchors")
	size, _ := cmd.Flags().GetFloat64("size")
	step, _ := cmd.Flags().GetFloat64("step")
	inset, _ := cmd.Flags().GetFloat64("inset")
	rho0, _ := cmd.Flags().GetFloat64("rho0")
	alpha, _ := cmd.Flags().GetFloat64("alpha")
	noise, _ := cmd.Flags().GetFloat64("noise")
	seed, _ := cmd.Flags().GetUint64("seed")
	height, _ := cmd.Flags().GetFloat64("height")
	out, _ := cmd.Flags().GetString("out")

	var anchors []types.Anchor
	if anchorsPath != "" {
		f, err := os.Open(anchorsPath)
		if err != nil {
			return fmt.Errorf("opening anchors: %w", err)
		}
		anchors, err = dataset.ReadAnchorCSV(f)
		f.Close()
		if err != nil {
			return err
		}
	} else {
		anchors = []types.Anchor{
			{ID: "A1", X: 0, Y: 0},
			{ID: "A2", X: size, Y: 0},
			{ID: "A3", X: 0, Y: size},
			{ID: "A4", X: size, Y: size},
		}
	}

	pts, err := insetLattice(anchors, inset, step)
	if err != nil {
		return err
	}

	ms, err := dataset.Synthesize(anchors, pts, types.GlobalParameters(rho0, alpha), dataset.SynthOptions{
		Geometry:    types.GeometryConfig{HeightOffset: height},
		NoiseStdDev: noise,
		Seed:        seed,
		Device:      "synthetic",
	})
	if err != nil {
		return err
	}

	ds := &types.Dataset{Anchors: anchors, Measurements: ms}
	if err := dataset.WriteFile(out, ds); err != nil {
		return err
	}
	fmt.Printf("wrote %d measurements from %d anchors to %s\n", len(ms), len(anchors), out)
	return nil
}

// insetLattice returns lattice points spaced step apart inside the anchor
// bounding box shrunk by inset on every side.
func insetLattice(anchors []types.Anchor, inset, step float64) ([]types.Point, error) {
	space, err := geometry.NewSpace(anchors, types.GeometryConfig{})
	if err != nil {
		return nil, err
	}
	pts, err := dataset.Lattice(geometry.FromBound(space.Bound(-inset)), step)
	if err != nil {
		return nil, fmt.Errorf("inset %g: %w", inset, err)
	}
	return pts, nil
}
