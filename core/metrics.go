package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	forecastRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockforecast_forecast_runs_total",
			Help: "Total number of forecast runs by source and outcome",
		},
		[]string{"source", "status"},
	)
	forecastScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stockforecast_forecast_score",
			Help: "Coefficient of determination of the latest forecast for a symbol",
		},
		[]string{"symbol"},
	)
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockforecast_stage_duration_seconds",
			Help:    "Duration of forecast stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	syncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockforecast_sync_runs_total",
			Help: "Total number of symbol syncs by outcome",
		},
		[]string{"status"},
	)
	syncRowsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockforecast_sync_rows_inserted_total",
			Help: "Total number of time series rows inserted by sync",
		},
		[]string{"symbol"},
	)
)
