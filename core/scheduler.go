package core

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// StartSyncSchedule resyncs the watchlist into postgres on the cron spec, seconds field included.
// Stop the returned cron to end the schedule.
func StartSyncSchedule(sc ServiceContext, spec string, symbols []string) (*cron.Cron, error) {
	if !sc.HasDatabase() {
		return nil, ErrNoDatabase
	}

	scheduler := cron.New(cron.WithSeconds())
	if _, err := scheduler.AddFunc(spec, func() { syncWatchlist(sc, symbols) }); err != nil {
		return nil, fmt.Errorf("register sync task: %w", err)
	}

	scheduler.Start()
	log.Info().Str("spec", spec).Strs("symbols", symbols).Msg("sync scheduler started")
	return scheduler, nil
}

func syncWatchlist(sc ServiceContext, symbols []string) {
	for _, symbol := range symbols {
		if sc.Context.Err() != nil {
			return
		}

		refreshed, err := sc.SyncSymbolTimeSeriesData(symbol)
		switch {
		case errors.Is(err, ErrSyncNotNeeded):
			log.Debug().Str("symbol", symbol).Time("lastRefreshed", refreshed).Msg("sync not needed")
		case err != nil:
			log.Error().Err(err).Str("symbol", symbol).Msg("scheduled sync failed")
		}
	}
}
