package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	m "stockforecast/models"
	q "stockforecast/queries"
)

// GetMetaDataBySymbol returns nil without an error when the symbol is unknown
func (pg *Postgres) GetMetaDataBySymbol(ctx context.Context, symbol string) (*m.TimeSeriesMetadata, error) {
	args := pgx.NamedArgs{
		"symbol": symbol,
	}

	res, err := Query[m.TimeSeriesMetadata](ctx, pg.db, q.Get(q.QueryHelper.Select.MetaDataBySymbol), args)
	if err != nil {
		return nil, fmt.Errorf("unable to query metadata by symbol (%s): %w", symbol, err)
	}

	if len(res) == 0 {
		return nil, nil
	}

	return res[0], nil
}

// InsertNewMetaData adds the symbol, or picks up the id and last refreshed of a row inserted concurrently
func (pg *Postgres) InsertNewMetaData(ctx context.Context, metadata *m.TimeSeriesMetadata, tx pgx.Tx) error {
	args := pgx.NamedArgs{
		"symbol":         metadata.Symbol,
		"last_refreshed": metadata.LastRefreshed,
	}

	err := pg.conn(tx).QueryRow(ctx, q.Get(q.QueryHelper.Insert.Metadata), args).Scan(&metadata.Id, &metadata.LastRefreshed)
	if err != nil {
		return fmt.Errorf("error inserting new metadata: %w", err)
	}

	return nil
}

func (pg *Postgres) UpdateLastRefreshedDate(ctx context.Context, symbol string, lastRefreshed time.Time, tx pgx.Tx) error {
	args := pgx.NamedArgs{
		"last_refreshed": lastRefreshed,
		"symbol":         symbol,
	}

	if _, err := pg.conn(tx).Exec(ctx, q.Get(q.QueryHelper.Update.LastRefreshedDate), args); err != nil {
		return fmt.Errorf("error updating last refreshed date for %s: %w", symbol, err)
	}

	return nil
}

// DeleteMetaData removes a symbol, its time series rows cascade
func (pg *Postgres) DeleteMetaData(ctx context.Context, id int32) error {
	args := pgx.NamedArgs{"source_id": id}
	if _, err := pg.db.Exec(ctx, q.Get(q.QueryHelper.Delete.TimeSeriesMetadata), args); err != nil {
		return fmt.Errorf("error deleting metadata %d: %w", id, err)
	}
	return nil
}
