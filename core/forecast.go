package core

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog/log"

	m "stockforecast/models"
)

// ExtendForecast appends one row per value, each a calendar day after the previous, carrying only the forecast
func ExtendForecast(frame *m.Frame, values []float64) ([]m.ForecastPoint, error) {
	last := frame.Last()
	if last == nil {
		return nil, ErrEmptySeries
	}
	if last.Forecast.Valid {
		return nil, errors.New("frame has already been extended")
	}

	points := make([]m.ForecastPoint, len(values))
	for i, v := range values {
		row := &m.FrameRow{Date: last.Date.AddDate(0, 0, i+1)}
		row.Forecast.SetValid(v)
		frame.Rows = append(frame.Rows, row)
		points[i] = m.ForecastPoint{Date: row.Date, Value: v}
	}

	return points, nil
}

// Forecast runs the pipeline over a daily series: features, labels, scaling, split, fit, score and extension
func Forecast(symbol string, series []*m.TimeSeriesData, settings m.ForecastSettings) (*m.ForecastResult, error) {
	frame, err := BuildFrame(symbol, series)
	if err != nil {
		return nil, err
	}
	DeriveFeatures(frame)

	n := frame.Len()
	h := Horizon(n, settings.HorizonFraction)
	if h < 1 {
		return nil, fmt.Errorf("horizon fraction %v must be positive", settings.HorizonFraction)
	}
	AddLabels(frame, h)

	x := Scale(FeatureMatrix(frame))
	labelled := n - h
	if labelled < 1 {
		return nil, fmt.Errorf("%s has %d rows for a horizon of %d: %w", symbol, n, h, ErrInsufficientRows)
	}
	xLabelled := x.Slice(0, labelled, 0, len(FeatureColumns))
	xFuture := x.Slice(labelled, n, 0, len(FeatureColumns))

	seed := settings.Seed
	for seed == 0 {
		seed = rand.Uint64()
	}

	split, err := TrainTestSplit(xLabelled, Labels(frame, labelled), settings.TestSize, seed)
	if err != nil {
		return nil, fmt.Errorf("error splitting %s: %w", symbol, err)
	}

	model, err := FitLinearRegression(split.XTrain, split.YTrain)
	if err != nil {
		return nil, fmt.Errorf("error fitting %s: %w", symbol, err)
	}

	score, err := model.Score(split.XTest, split.YTest)
	if err != nil {
		return nil, fmt.Errorf("error scoring %s: %w", symbol, err)
	}

	predictions, err := model.Predict(xFuture)
	if err != nil {
		return nil, fmt.Errorf("error predicting %s: %w", symbol, err)
	}

	points, err := ExtendForecast(frame, predictions)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("symbol", symbol).
		Int("rows", n).
		Int("horizon", h).
		Int("train", len(split.YTrain)).
		Int("test", len(split.YTest)).
		Float64("score", score).
		Msg("forecast pipeline finished")

	return &m.ForecastResult{
		Symbol:       symbol,
		Score:        score,
		Horizon:      h,
		TrainSize:    len(split.YTrain),
		TestSize:     len(split.YTest),
		Seed:         seed,
		Coefficients: model.Coefficients,
		Intercept:    model.Intercept,
		Forecast:     points,
		Frame:        frame,
	}, nil
}
