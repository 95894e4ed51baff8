package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	m "stockforecast/models"
	q "stockforecast/queries"
)

// GetTimeSeriesData returns the stored rows for a symbol in ascending order
func (pg *Postgres) GetTimeSeriesData(ctx context.Context, symbol string) ([]*m.TimeSeriesData, error) {
	args := pgx.NamedArgs{
		"symbol": symbol,
	}

	res, err := Query[m.TimeSeriesData](ctx, pg.db, q.Get(q.QueryHelper.Select.TimeSeriesData), args)
	if err != nil {
		return nil, fmt.Errorf("unable to query data by symbol (%s): %w", symbol, err)
	}
	return res, nil
}

// GetMostRecentTimestampForSymbol returns nil when nothing is stored for the symbol
func (pg *Postgres) GetMostRecentTimestampForSymbol(ctx context.Context, symbol string) (*time.Time, error) {
	args := pgx.NamedArgs{
		"symbol": symbol,
	}

	var res *time.Time
	if err := pg.db.QueryRow(ctx, q.Get(q.QueryHelper.Select.MostRecentTimestampBySymbol), args).Scan(&res); err != nil {
		return nil, fmt.Errorf("unable to query most recent timestamp by symbol (%s): %w", symbol, err)
	}
	return res, nil
}

var timeSeriesDataColumns = []string{
	"source_id", "timestamp", "open", "high", "low",
	"close", "volume", "adjusted_close", "dividend_amount", "split_coefficient",
}

func (pg *Postgres) InsertTimeSeriesData(ctx context.Context, data []*m.TimeSeriesData, sourceId int32, tx pgx.Tx) (int64, error) {
	return pg.conn(tx).CopyFrom(ctx, pgx.Identifier{"time_series_data"}, timeSeriesDataColumns, timeSeriesDataRows(data, sourceId))
}

// UpsertTimeSeriesData copies the rows into a staging table and merges them, existing dates are overwritten
// so re-based adjusted history replaces what is stored. Call once per transaction, the staging table is dropped on commit.
func (pg *Postgres) UpsertTimeSeriesData(ctx context.Context, data []*m.TimeSeriesData, sourceId int32, tx pgx.Tx) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("upserting time series data requires a transaction")
	}

	if _, err := tx.Exec(ctx, q.Get(q.QueryHelper.Create.TimeSeriesDataStaging)); err != nil {
		return 0, fmt.Errorf("error creating time series staging table: %w", err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"time_series_data_staging"}, timeSeriesDataColumns, timeSeriesDataRows(data, sourceId)); err != nil {
		return 0, fmt.Errorf("error copying time series data to staging: %w", err)
	}

	tag, err := tx.Exec(ctx, q.Get(q.QueryHelper.Insert.TimeSeriesDataUpsert))
	if err != nil {
		return 0, fmt.Errorf("error merging staged time series data: %w", err)
	}

	return tag.RowsAffected(), nil
}

func timeSeriesDataRows(data []*m.TimeSeriesData, sourceId int32) pgx.CopyFromSource {
	entries := make([][]any, len(data))
	for i, ent := range data {
		entries[i] = []any{
			sourceId, ent.Timestamp, ent.Open, ent.High, ent.Low,
			ent.Close, ent.Volume, ent.AdjustedClose, ent.DividendAmount, ent.SplitCoefficient,
		}
	}
	return pgx.CopyFromRows(entries)
}
