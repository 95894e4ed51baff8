package core

import (
	"fmt"
	"math"
	"slices"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/mat"

	ex "stockforecast/extensions"
	m "stockforecast/models"
)

// MissingValue replaces missing features so rows are kept and treated as outliers
const MissingValue = -99999.0

// FeatureColumns is the column order of FeatureMatrix
var FeatureColumns = []string{"Close", "HL_PCT", "PCT_change", "Volume"}

// BuildFrame turns provider rows into an ascending frame of adjusted prices
func BuildFrame(symbol string, series []*m.TimeSeriesData) (*m.Frame, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrEmptySeries)
	}

	sorted := slices.Clone(series)
	slices.SortFunc(sorted, func(a, b *m.TimeSeriesData) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	frame := &m.Frame{
		Symbol: symbol,
		Rows:   make([]*m.FrameRow, 0, len(sorted)),
	}

	for i, tsd := range sorted {
		if i > 0 && !sorted[i-1].Timestamp.Before(tsd.Timestamp) {
			return nil, fmt.Errorf("%s on %s: %w", symbol, ex.FmtShort(tsd.Timestamp), ErrDuplicateDate)
		}

		ohlcv := tsd.Adjusted()
		frame.Rows = append(frame.Rows, &m.FrameRow{
			Date:   tsd.Timestamp,
			Open:   ohlcv.Open,
			High:   ohlcv.High,
			Low:    ohlcv.Low,
			Close:  ohlcv.Close,
			Volume: ohlcv.Volume,
		})
	}

	return frame, nil
}

// DeriveFeatures computes the high/low spread and the intraday change, both in percent of price
func DeriveFeatures(frame *m.Frame) {
	for _, row := range frame.Rows {
		if row.High.Valid && row.Low.Valid && row.Close.Valid && row.Close.Float64 != 0 {
			row.HighLowPct.SetValid((row.High.Float64 - row.Low.Float64) / row.Close.Float64 * 100.0)
		}
		if row.Close.Valid && row.Open.Valid && row.Open.Float64 != 0 {
			row.PctChange.SetValid((row.Close.Float64 - row.Open.Float64) / row.Open.Float64 * 100.0)
		}
	}
}

// Horizon is ceil(fraction * n), the tolerance keeps 0.01 * 700 from rounding up to 8
func Horizon(n int, fraction float64) int {
	if n <= 0 || fraction <= 0 {
		return 0
	}
	return int(math.Ceil(fraction*float64(n) - 1e-9))
}

// AddLabels sets each row's label to the close horizon rows later.
// Returns the number of rows left without a label, which is min(horizon, rows).
func AddLabels(frame *m.Frame, horizon int) int {
	n := frame.Len()
	unlabeled := 0
	for i, row := range frame.Rows {
		if i+horizon >= n {
			row.Label.Valid = false
			unlabeled++
			continue
		}
		row.Label.SetValid(filled(frame.Rows[i+horizon].Close))
	}
	return unlabeled
}

// FeatureMatrix is one row per frame row with FeatureColumns, missing values filled with MissingValue
func FeatureMatrix(frame *m.Frame) *mat.Dense {
	res := mat.NewDense(frame.Len(), len(FeatureColumns), nil)
	for i, row := range frame.Rows {
		res.SetRow(i, []float64{
			filled(row.Close),
			filled(row.HighLowPct),
			filled(row.PctChange),
			filled(row.Volume),
		})
	}
	return res
}

// Labels returns the labels of the first n rows, missing labels are filled
func Labels(frame *m.Frame, n int) []float64 {
	res := make([]float64, n)
	for i := range n {
		res[i] = filled(frame.Rows[i].Label)
	}
	return res
}

func filled(v null.Float) float64 {
	if !v.Valid || math.IsNaN(v.Float64) {
		return MissingValue
	}
	return v.Float64
}
