package repos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	m "stockforecast/models"
	q "stockforecast/queries"
)

func (pg *Postgres) InsertForecastRun(ctx context.Context, run *m.ForecastRunHistory) (int32, error) {
	args := pgx.NamedArgs{
		"symbol":           run.Symbol,
		"source":           run.Source,
		"horizon_fraction": run.HorizonFraction,
		"test_size":        run.TestSize,
		"seed":             run.Seed,
	}

	var runId int32
	if err := pg.db.QueryRow(ctx, q.Get(q.QueryHelper.Insert.ForecastRun), args).Scan(&runId); err != nil {
		return 0, fmt.Errorf("error inserting forecast run history: %w", err)
	}

	run.Id = runId
	return runId, nil
}

func (pg *Postgres) UpdateForecastRunAsSuccess(ctx context.Context, runId int32, score float64, horizon int32) error {
	return pg.updateForecastRun(ctx, pgx.NamedArgs{
		"id":            runId,
		"score":         score,
		"horizon":       horizon,
		"error_message": nil,
	})
}

func (pg *Postgres) UpdateForecastRunAsFailure(ctx context.Context, runId int32, errorMessage string) error {
	cleanErrorMessage := strings.TrimSpace(errorMessage)
	if cleanErrorMessage == "" {
		return fmt.Errorf("error message is required if forecast run is failing, occured in %d", runId)
	}

	return pg.updateForecastRun(ctx, pgx.NamedArgs{
		"id":            runId,
		"score":         nil,
		"horizon":       nil,
		"error_message": cleanErrorMessage,
	})
}

func (pg *Postgres) GetForecastRunsBySymbol(ctx context.Context, symbol string, limit int) ([]*m.ForecastRunHistory, error) {
	args := pgx.NamedArgs{
		"symbol": symbol,
		"limit":  limit,
	}

	res, err := Query[m.ForecastRunHistory](ctx, pg.db, q.Get(q.QueryHelper.Select.ForecastRunsBySymbol), args)
	if err != nil {
		return nil, fmt.Errorf("unable to query forecast runs by symbol (%s): %w", symbol, err)
	}
	return res, nil
}

func (pg *Postgres) updateForecastRun(ctx context.Context, args pgx.NamedArgs) error {
	if _, err := pg.db.Exec(ctx, q.Get(q.QueryHelper.Update.ForecastRun), args); err != nil {
		return fmt.Errorf("error updating forecast run: %w", err)
	}
	return nil
}
