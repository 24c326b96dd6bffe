// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Point is a planar coordinate in metres.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Anchor is a fixed beacon with a known position. Anchors are loaded once
// and shared read-only by every solver.
type Anchor struct {
	// ID is the anchor identifier used as the key of Measurement.Signals
	// (e.g. "WAP001").
	ID string `json:"id" yaml:"id"`

	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Position returns the anchor coordinate as a Point.
func (a Anchor) Position() Point {
	return Point{X: a.X, Y: a.Y}
}

// Measurement is one observed record: the signal strengths a device saw
// from the anchors it heard. Anchors absent from Signals were not heard.
type Measurement struct {
	// ID uniquely identifies the record within a dataset.
	ID string `json:"id" yaml:"id"`

	// Label is the survey point label, when the capture tool recorded one.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// Device identifies the receiving device.
	Device string `json:"device,omitempty" yaml:"device,omitempty"`

	// Signals maps anchor ID to observed RSSI in dBm.
	Signals map[string]float64 `json:"signals" yaml:"signals"`

	// Truth is the known device position. Required for evaluation,
	// absent in production use.
	Truth *Point `json:"truth,omitempty" yaml:"truth,omitempty"`
}

// Dataset is an anchor table plus the measurements recorded against it.
type Dataset struct {
	Anchors      []Anchor      `json:"anchors" yaml:"anchors"`
	Measurements []Measurement `json:"measurements" yaml:"measurements"`
}
