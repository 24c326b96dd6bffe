// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/beaconloc/pkg/types"
)

// UnheardRSSI is the capture tool's code for an anchor that was not heard.
const UnheardRSSI = 100

const anchorColumnPrefix = "WAP"

// LoadCSV reads an anchor table (columns AP, x, y) and a measurement table
// (columns LABEL, DEVICE, X, Y and one WAP* column per anchor). Cells that
// are empty or hold UnheardRSSI are treated as unheard. WAP columns with no
// matching anchor are ignored, as are rows in which no known anchor was heard.
func LoadCSV(anchorsPath, measurementsPath string, log *logrus.Logger) (*types.Dataset, error) {
	anchors, err := readAnchorCSV(anchorsPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(measurementsPath)
	if err != nil {
		return nil, fmt.Errorf("opening measurements: %w", err)
	}
	defer f.Close()

	ms, skipped, err := ReadMeasurementCSV(f, anchors)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", measurementsPath, err)
	}
	if skipped > 0 && log != nil {
		log.WithField("rows", skipped).Warn("skipped measurement rows with no heard anchor")
	}
	return &types.Dataset{Anchors: anchors, Measurements: ms}, nil
}

func readAnchorCSV(path string) ([]types.Anchor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening anchors: %w", err)
	}
	defer f.Close()
	anchors, err := ReadAnchorCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return anchors, nil
}

// ReadAnchorCSV parses an anchor table with a header row naming AP, x and y.
func ReadAnchorCSV(r io.Reader) ([]types.Anchor, error) {
	rows, cols, err := readTable(r)
	if err != nil {
		return nil, err
	}
	ap, ok1 := cols["AP"]
	x, ok2 := cols["X"]
	y, ok3 := cols["Y"]
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("anchor table needs AP, x and y columns")
	}

	anchors := make([]types.Anchor, 0, len(rows))
	for i, row := range rows {
		xv, err := parseFloat(row[x])
		if err != nil {
			return nil, fmt.Errorf("row %d: x: %w", i+2, err)
		}
		yv, err := parseFloat(row[y])
		if err != nil {
			return nil, fmt.Errorf("row %d: y: %w", i+2, err)
		}
		anchors = append(anchors, types.Anchor{ID: strings.TrimSpace(row[ap]), X: xv, Y: yv})
	}
	return anchors, nil
}

// ReadMeasurementCSV parses a WAP-column measurement table. It returns the
// measurements and the number of rows skipped for having no heard anchor.
// Ground truth is attached when both X and Y are present and non-empty.
func ReadMeasurementCSV(r io.Reader, anchors []types.Anchor) ([]types.Measurement, int, error) {
	rows, cols, err := readTable(r)
	if err != nil {
		return nil, 0, err
	}

	known := make(map[string]bool, len(anchors))
	for _, a := range anchors {
		known[a.ID] = true
	}

	type wapCol struct {
		id  string
		idx int
	}
	var waps []wapCol
	for name, idx := range cols {
		if strings.HasPrefix(name, anchorColumnPrefix) && known[name] {
			waps = append(waps, wapCol{id: name, idx: idx})
		}
	}

	labelCol, hasLabel := cols["LABEL"]
	deviceCol, hasDevice := cols["DEVICE"]
	xCol, hasX := cols["X"]
	yCol, hasY := cols["Y"]

	var out []types.Measurement
	skipped := 0
	for i, row := range rows {
		line := i + 2
		m := types.Measurement{
			ID:      strconv.Itoa(line - 1),
			Signals: make(map[string]float64),
		}
		if hasLabel {
			m.Label = strings.TrimSpace(row[labelCol])
		}
		if hasDevice {
			m.Device = strings.TrimSpace(row[deviceCol])
		}

		for _, w := range waps {
			cell := strings.TrimSpace(row[w.idx])
			if cell == "" {
				continue
			}
			v, err := parseFloat(cell)
			if err != nil {
				return nil, 0, fmt.Errorf("row %d: %s: %w", line, w.id, err)
			}
			if v == UnheardRSSI {
				continue
			}
			m.Signals[w.id] = v
		}
		if len(m.Signals) == 0 {
			skipped++
			continue
		}

		if hasX && hasY && strings.TrimSpace(row[xCol]) != "" && strings.TrimSpace(row[yCol]) != "" {
			xv, err := parseFloat(row[xCol])
			if err != nil {
				return nil, 0, fmt.Errorf("row %d: X: %w", line, err)
			}
			yv, err := parseFloat(row[yCol])
			if err != nil {
				return nil, 0, fmt.Errorf("row %d: Y: %w", line, err)
			}
			m.Truth = &types.Point{X: xv, Y: yv}
		}
		out = append(out, m)
	}
	return out, skipped, nil
}

// readTable returns the data rows and a map from upper-cased header name to
// column index. Anchor ids keep their case: WAP columns are matched on the
// upper-cased name, so ids are expected in upper case as the capture tool
// writes them.
func readTable(r io.Reader) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty table")
	}
	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	return records[1:], cols, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
