package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	m "stockforecast/models"
)

const (
	ChartWidth  = 10 * vg.Inch
	ChartHeight = 6 * vg.Inch
)

// RenderChart writes a png of the close price and the forecast against date
func RenderChart(w io.Writer, frame *m.Frame, title string) error {
	p, err := buildPlot(frame, title)
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(ChartWidth, ChartHeight, "png")
	if err != nil {
		return fmt.Errorf("error making chart writer: %w", err)
	}

	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("error writing chart: %w", err)
	}
	return nil
}

// SaveChart renders the chart into path, creating the directory when needed
func SaveChart(frame *m.Frame, title, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating chart directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating chart file: %w", err)
	}
	defer f.Close()

	return RenderChart(f, frame, title)
}

func buildPlot(frame *m.Frame, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Price"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Legend.Top = false
	p.Legend.Left = false
	p.Add(plotter.NewGrid())

	closes := plotter.XYs(lo.FilterMap(frame.Rows, func(row *m.FrameRow, _ int) (plotter.XY, bool) {
		return plotter.XY{X: float64(row.Date.Unix()), Y: row.Close.Float64}, row.Close.Valid
	}))
	forecasts := plotter.XYs(lo.FilterMap(frame.Rows, func(row *m.FrameRow, _ int) (plotter.XY, bool) {
		return plotter.XY{X: float64(row.Date.Unix()), Y: row.Forecast.Float64}, row.Forecast.Valid
	}))

	var lines []any
	if len(closes) > 0 {
		lines = append(lines, "Close", closes)
	}
	if len(forecasts) > 0 {
		lines = append(lines, "Forecast", forecasts)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("nothing to chart for %s: %w", frame.Symbol, ErrEmptySeries)
	}

	if err := plotutil.AddLines(p, lines...); err != nil {
		return nil, fmt.Errorf("error adding chart lines: %w", err)
	}

	return p, nil
}
