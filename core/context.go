package core

import (
	"context"
	"time"

	m "stockforecast/models"
	r "stockforecast/repos"
)

const (
	DefaultMinSyncInterval = 24 * time.Hour
	DefaultWorkers         = 4
)

// PriceSource is a daily price provider, alpha vantage or quandl
type PriceSource interface {
	Name() string
	GetDailyPrices(ctx context.Context, symbol string) (*m.TimeSeriesResult, error)
}

type ServiceContext struct {
	Context            context.Context
	PostgresConnection *r.Postgres // optional, prices come straight from the source when nil
	Source             PriceSource
	MinSyncInterval    time.Duration
	Workers            int
}

// WithContext returns a copy bound to ctx, used per request and per worker
func (sc ServiceContext) WithContext(ctx context.Context) ServiceContext {
	sc.Context = ctx
	return sc
}

func (sc ServiceContext) HasDatabase() bool {
	return sc.PostgresConnection != nil
}

func (sc ServiceContext) minSyncInterval() time.Duration {
	if sc.MinSyncInterval <= 0 {
		return DefaultMinSyncInterval
	}
	return sc.MinSyncInterval
}

func (sc ServiceContext) workers() int {
	if sc.Workers <= 0 {
		return DefaultWorkers
	}
	return sc.Workers
}
