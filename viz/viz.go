// Package viz renders the per-generation results of an optimization run.
package viz

import (
	"encoding/csv"
	"image/color"
	"io"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var orange = color.RGBA{R: 255, G: 165, A: 255}

// NewPlot draws results against their generation index.
func NewPlot(results []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "FABSO results"
	p.X.Label.Text = "Generations"
	p.Y.Label.Text = "Objective value"

	pts := make(plotter.XYs, len(results))
	for i, v := range results {
		pts[i].X = float64(i)
		pts[i].Y = v
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = orange
	p.Add(line)
	return p, nil
}

// Plot saves the results plot to path.  The image format follows the file
// extension.
func Plot(results []float64, path string) error {
	p, err := NewPlot(results)
	if err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// WriteCSV writes one "generation,value" row per result after a header.
func WriteCSV(w io.Writer, results []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"generation", "value"}); err != nil {
		return err
	}
	for i, v := range results {
		rec := []string{strconv.Itoa(i), strconv.FormatFloat(v, 'g', -1, 64)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
