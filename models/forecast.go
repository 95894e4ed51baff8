package models

import (
	"math"
	"time"

	"github.com/guregu/null/v6"
)

const (
	DefaultHorizonFraction = 0.01
	DefaultTestSize        = 0.2

	// MaxSeed keeps seeds inside the run history bigint column
	MaxSeed = math.MaxInt64
)

// ForecastSettings are the knobs of a single pipeline run.
// A zero seed means a random one is drawn and reported back on the result.
type ForecastSettings struct {
	HorizonFraction float64 `json:"horizon" yaml:"horizon" default:"0.01" validate:"gt=0,lt=1"`
	TestSize        float64 `json:"testSize" yaml:"test_size" default:"0.2" validate:"gt=0,lt=1"`
	Seed            uint64  `json:"seed" yaml:"seed" validate:"lte=9223372036854775807"`
}

type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

type ForecastResult struct {
	Symbol       string          `json:"symbol"`
	Score        float64         `json:"score"`
	Horizon      int             `json:"horizon"`
	TrainSize    int             `json:"trainSize"`
	TestSize     int             `json:"testSize"`
	Seed         uint64          `json:"seed"`
	Coefficients []float64       `json:"coefficients"`
	Intercept    float64         `json:"intercept"`
	Forecast     []ForecastPoint `json:"forecast"`
	Frame        *Frame          `json:"-"`
}

// ForecastRunHistory is a row of the forecast run history table
type ForecastRunHistory struct {
	Id              int32       `db:"id" json:"id"`
	Symbol          string      `db:"symbol" json:"symbol"`
	Source          string      `db:"source" json:"source"`
	HorizonFraction float64     `db:"horizon_fraction" json:"horizonFraction"`
	TestSize        float64     `db:"test_size" json:"testSize"`
	Seed            int64       `db:"seed" json:"seed"`
	Score           null.Float  `db:"score" json:"score"`
	Horizon         *int32      `db:"horizon" json:"horizon"`
	ErrorMessage    null.String `db:"error_message" json:"errorMessage"`
	StartedAt       time.Time   `db:"started_at" json:"startedAt"`
	CompletedAt     null.Time   `db:"completed_at" json:"completedAt"`
}

// ForecastRequest is bound from the forecast endpoint query string
type ForecastRequest struct {
	Symbol          string  `validate:"required,max=32"`
	HorizonFraction float64 `default:"0.01" validate:"gt=0,lt=1"`
	TestSize        float64 `default:"0.2" validate:"gt=0,lt=1"`
	Seed            uint64  `validate:"lte=9223372036854775807"`
}

// ForecastRunsRequest is bound from the run history endpoint query string
type ForecastRunsRequest struct {
	Symbol string `validate:"required,max=32"`
	Limit  int    `default:"20" validate:"gte=1,lte=500"`
}

func (fr ForecastRequest) Settings() ForecastSettings {
	return ForecastSettings{
		HorizonFraction: fr.HorizonFraction,
		TestSize:        fr.TestSize,
		Seed:            fr.Seed,
	}
}

type ForecastResponse struct {
	Symbol    string          `json:"symbol"`
	Score     float64         `json:"score"`
	Horizon   int             `json:"horizon"`
	TrainSize int             `json:"trainSize"`
	TestSize  int             `json:"testSize"`
	Seed      uint64          `json:"seed"`
	Forecast  []ForecastPoint `json:"forecast"`
}

func MapForecastResultToResponse(res *ForecastResult) ForecastResponse {
	return ForecastResponse{
		Symbol:    res.Symbol,
		Score:     res.Score,
		Horizon:   res.Horizon,
		TrainSize: res.TrainSize,
		TestSize:  res.TestSize,
		Seed:      res.Seed,
		Forecast:  res.Forecast,
	}
}
