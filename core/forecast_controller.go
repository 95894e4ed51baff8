package core

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	ex "stockforecast/extensions"
	m "stockforecast/models"
)

// RunForecast loads the symbol, runs the pipeline and records the run
func (sc *ServiceContext) RunForecast(symbol string, settings m.ForecastSettings) (*m.ForecastResult, error) {
	start := time.Now()
	if settings.Seed > m.MaxSeed {
		return nil, fmt.Errorf("seed %d is larger than %d", settings.Seed, uint64(m.MaxSeed))
	}
	if settings.Seed == 0 {
		settings.Seed = uint64(rand.Int64N(math.MaxInt64)) + 1
	}

	runId, hasRun := sc.startRun(symbol, settings)

	data, err := sc.LoadTimeSeries(symbol)
	acquired := time.Now()
	stageDuration.WithLabelValues("acquire").Observe(acquired.Sub(start).Seconds())
	if err != nil {
		return nil, sc.failRun(runId, hasRun, symbol, err)
	}

	res, err := Forecast(symbol, data, settings)
	finished := time.Now()
	stageDuration.WithLabelValues("pipeline").Observe(finished.Sub(acquired).Seconds())
	if err != nil {
		return nil, sc.failRun(runId, hasRun, symbol, err)
	}

	if hasRun {
		if err := sc.PostgresConnection.UpdateForecastRunAsSuccess(sc.Context, runId, res.Score, int32(res.Horizon)); err != nil {
			log.Error().Err(err).Int32("run", runId).Msg("error marking forecast run as success")
		}
	}

	forecastRuns.WithLabelValues(sc.Source.Name(), "success").Inc()
	forecastScore.WithLabelValues(symbol).Set(res.Score)
	stageDuration.WithLabelValues("total").Observe(finished.Sub(start).Seconds())

	log.Info().
		Str("symbol", symbol).
		Str("source", sc.Source.Name()).
		Float64("score", res.Score).
		Int("horizon", res.Horizon).
		Uint64("seed", res.Seed).
		Dur("acquire", acquired.Sub(start)).
		Dur("pipeline", finished.Sub(acquired)).
		Msg("forecast complete")

	return res, nil
}

// RunForecasts runs each symbol on a bounded pool, results keep the order of symbols.
// The first failure cancels the remaining runs.
func (sc *ServiceContext) RunForecasts(symbols []string, settings m.ForecastSettings) ([]*m.ForecastResult, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	g, ctx := errgroup.WithContext(sc.Context)
	g.SetLimit(ex.Min(sc.workers(), len(symbols)))

	results := make([]*m.ForecastResult, len(symbols))
	for i, symbol := range symbols {
		g.Go(func() error {
			worker := sc.WithContext(ctx)
			res, err := worker.RunForecast(symbol, settings)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (sc *ServiceContext) startRun(symbol string, settings m.ForecastSettings) (int32, bool) {
	if !sc.HasDatabase() {
		return 0, false
	}

	runId, err := sc.PostgresConnection.InsertForecastRun(sc.Context, &m.ForecastRunHistory{
		Symbol:          symbol,
		Source:          sc.Source.Name(),
		HorizonFraction: settings.HorizonFraction,
		TestSize:        settings.TestSize,
		Seed:            int64(settings.Seed),
	})
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("error recording forecast run")
		return 0, false
	}
	return runId, true
}

func (sc *ServiceContext) failRun(runId int32, hasRun bool, symbol string, err error) error {
	forecastRuns.WithLabelValues(sc.Source.Name(), "failure").Inc()
	log.Error().Err(err).Str("symbol", symbol).Msg("forecast failed")

	if hasRun {
		if uerr := sc.PostgresConnection.UpdateForecastRunAsFailure(sc.Context, runId, err.Error()); uerr != nil {
			log.Error().Err(uerr).Int32("run", runId).Msg("error marking forecast run as failure")
		}
	}
	return fmt.Errorf("error forecasting %s: %w", symbol, err)
}
