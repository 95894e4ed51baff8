package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	ex "stockforecast/extensions"
	m "stockforecast/models"
)

// syncs of the same symbol share one provider call and one transaction
var syncGroup singleflight.Group

// SyncSymbolTimeSeriesData pulls the symbol from the source and upserts every row it returns.
// Returns the refresh time, or ErrSyncNotNeeded with the previous refresh time when synced recently.
func (sc *ServiceContext) SyncSymbolTimeSeriesData(symbol string) (time.Time, error) {
	if !sc.HasDatabase() {
		return time.Time{}, ErrNoDatabase
	}

	res, err, shared := syncGroup.Do(sc.Source.Name()+":"+symbol, func() (any, error) {
		return sc.syncSymbol(symbol)
	})
	if shared {
		log.Debug().Str("symbol", symbol).Msg("joined in-flight sync")
	}

	refreshed, _ := res.(time.Time)
	return refreshed, err
}

func (sc *ServiceContext) syncSymbol(symbol string) (time.Time, error) {
	md, err := sc.PostgresConnection.GetMetaDataBySymbol(sc.Context, symbol)
	if err != nil {
		return time.Time{}, fmt.Errorf("error determining if meta data exists in sync data: %w", err)
	}

	if md == nil {
		log.Info().Str("symbol", symbol).Msg("adding new symbol to db")
		md = &m.TimeSeriesMetadata{
			Symbol:        symbol,
			LastRefreshed: time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		// another process may have added it since the lookup, the stored row wins
		if err := sc.PostgresConnection.InsertNewMetaData(sc.Context, md, nil); err != nil {
			return time.Time{}, fmt.Errorf("error adding %s to db: %w", symbol, err)
		}
	}

	cutoff := time.Now().Add(-sc.minSyncInterval())
	if md.LastRefreshed.After(cutoff) {
		syncRuns.WithLabelValues("skipped").Inc()
		return md.LastRefreshed, fmt.Errorf("%s was refreshed at %s: %w", symbol, ex.FmtLong(md.LastRefreshed), ErrSyncNotNeeded)
	}

	mrd, err := sc.PostgresConnection.GetMostRecentTimestampForSymbol(sc.Context, symbol)
	if err != nil {
		return time.Time{}, fmt.Errorf("error getting most recent time series date for symbol %s: %w", symbol, err)
	}

	tsr, err := sc.Source.GetDailyPrices(sc.Context, symbol)
	if err != nil {
		syncRuns.WithLabelValues("failed").Inc()
		return time.Time{}, fmt.Errorf("error getting %s from %s: %w", symbol, sc.Source.Name(), err)
	}

	newRows := ex.FilterMultiplePtr(tsr.TimeSeries, func(t *m.TimeSeriesData) bool {
		return mrd == nil || t.Timestamp.After(*mrd)
	})

	tx, err := sc.PostgresConnection.GetTransaction(sc.Context)
	if err != nil {
		return time.Time{}, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(sc.Context) // no-op once committed

	var ra int64
	if len(tsr.TimeSeries) > 0 {
		ra, err = sc.PostgresConnection.UpsertTimeSeriesData(sc.Context, tsr.TimeSeries, md.Id, tx)
		if err != nil {
			return time.Time{}, fmt.Errorf("error upserting time series data: %w", err)
		}
	}

	refreshed := time.Now().UTC()
	if err := sc.PostgresConnection.UpdateLastRefreshedDate(sc.Context, symbol, refreshed, tx); err != nil {
		return time.Time{}, err
	}

	if err := tx.Commit(sc.Context); err != nil {
		return time.Time{}, fmt.Errorf("error committing sync of symbol %s: %w", symbol, err)
	}

	syncRuns.WithLabelValues("synced").Inc()
	syncRowsInserted.WithLabelValues(symbol).Add(float64(len(newRows)))
	log.Info().
		Str("symbol", symbol).
		Str("source", sc.Source.Name()).
		Int("received", len(tsr.TimeSeries)).
		Int("new", len(newRows)).
		Int64("written", ra).
		Msg("synced time series")

	return refreshed, nil
}

// LoadTimeSeries returns the daily series, through the database when one is configured
func (sc *ServiceContext) LoadTimeSeries(symbol string) ([]*m.TimeSeriesData, error) {
	if !sc.HasDatabase() {
		tsr, err := sc.Source.GetDailyPrices(sc.Context, symbol)
		if err != nil {
			return nil, fmt.Errorf("error getting %s from %s: %w", symbol, sc.Source.Name(), err)
		}
		return tsr.TimeSeries, nil
	}

	if _, err := sc.SyncSymbolTimeSeriesData(symbol); err != nil && !errors.Is(err, ErrSyncNotNeeded) {
		return nil, err
	}

	data, err := sc.PostgresConnection.GetTimeSeriesData(sc.Context, symbol)
	if err != nil {
		return nil, fmt.Errorf("error reading %s from db: %w", symbol, err)
	}
	return data, nil
}
