package core

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/joho/godotenv"

	ex "stockforecast/extensions"
	r "stockforecast/repos"
)

func Test_SyncSymbolTimeSeriesData_InsertsThenSkips(t *testing.T) {
	ctx := context.Background()
	pg := getPostgres(t, ctx)
	symbol := "_SYNCTEST"

	source := newFakeSource(map[string]int{symbol: 30})
	sc := ServiceContext{Context: ctx, PostgresConnection: pg, Source: source, MinSyncInterval: time.Hour}

	t.Cleanup(func() {
		if md, err := pg.GetMetaDataBySymbol(ctx, symbol); err == nil && md != nil {
			pg.DeleteMetaData(ctx, md.Id)
		}
	})

	refreshed, err := sc.SyncSymbolTimeSeriesData(symbol)
	if err != nil {
		t.Fatalf("error syncing: %v", err)
	}
	ex.AssertAreEqual(t, "refreshed recently", true, time.Since(refreshed) < time.Minute)

	data, err := pg.GetTimeSeriesData(ctx, symbol)
	if err != nil {
		t.Fatalf("error reading synced data: %v", err)
	}
	ex.AssertAreEqual(t, "rows stored", 30, len(data))

	if _, err := sc.SyncSymbolTimeSeriesData(symbol); !errors.Is(err, ErrSyncNotNeeded) {
		t.Fatalf("expected sync to be skipped, got %v", err)
	}
	ex.AssertAreEqual(t, "provider calls", int32(1), source.calls.Load())

	loaded, err := sc.LoadTimeSeries(symbol)
	if err != nil {
		t.Fatalf("error loading: %v", err)
	}
	ex.AssertAreEqual(t, "rows loaded", 30, len(loaded))
	ex.AssertAreEqual(t, "provider calls after load", int32(1), source.calls.Load())

	res, err := sc.RunForecast(symbol, testSettings)
	if err != nil {
		t.Fatalf("error forecasting from db: %v", err)
	}

	runs, err := pg.GetForecastRunsBySymbol(ctx, symbol, 5)
	if err != nil {
		t.Fatalf("error reading run history: %v", err)
	}
	if len(runs) == 0 {
		t.Fatalf("expected the forecast run to be recorded")
	}
	ex.AssertAreEqual(t, "run score", res.Score, runs[0].Score.Float64)
}

func Test_SyncSymbolTimeSeriesData_RewritesRebasedHistory(t *testing.T) {
	ctx := context.Background()
	pg := getPostgres(t, ctx)
	symbol := "_REBASETEST"

	source := newFakeSource(map[string]int{symbol: 20})
	for _, row := range source.series[symbol] {
		row.AdjustedClose = row.Close
	}
	sc := ServiceContext{Context: ctx, PostgresConnection: pg, Source: source, MinSyncInterval: time.Nanosecond}
	cleanupSymbol(t, pg, symbol)

	if _, err := sc.SyncSymbolTimeSeriesData(symbol); err != nil {
		t.Fatalf("error syncing: %v", err)
	}

	// a split re-bases every adjusted close, including dates already stored
	for _, row := range source.series[symbol] {
		row.AdjustedClose = null.FloatFrom(row.Close.Float64 / 2)
	}
	if _, err := sc.SyncSymbolTimeSeriesData(symbol); err != nil {
		t.Fatalf("error re-syncing: %v", err)
	}
	ex.AssertAreEqual(t, "provider calls", int32(2), source.calls.Load())

	data, err := pg.GetTimeSeriesData(ctx, symbol)
	if err != nil {
		t.Fatalf("error reading synced data: %v", err)
	}
	ex.AssertAreEqual(t, "rows stored", 20, len(data))
	for _, row := range data {
		ex.AssertIsClose(t, "adjusted close", row.Close.Float64/2, row.AdjustedClose.Float64, 1e-9)
	}
}

func Test_SyncSymbolTimeSeriesData_ConcurrentSyncsOfOneSymbol(t *testing.T) {
	ctx := context.Background()
	pg := getPostgres(t, ctx)
	symbol := "_RACETEST"

	source := newFakeSource(map[string]int{symbol: 25})
	sc := ServiceContext{Context: ctx, PostgresConnection: pg, Source: source, MinSyncInterval: time.Nanosecond}
	cleanupSymbol(t, pg, symbol)

	// the shared entry point, then the unshared path so both writers reach the database
	for _, tc := range []struct {
		name string
		sync func(string) (time.Time, error)
	}{
		{"shared", sc.SyncSymbolTimeSeriesData},
		{"unshared", sc.syncSymbol},
	} {
		name := tc.name
		errs := runConcurrently(4, func() error {
			_, err := tc.sync(symbol)
			return err
		})
		for _, err := range errs {
			if err != nil && !errors.Is(err, ErrSyncNotNeeded) {
				t.Fatalf("%s: concurrent sync failed: %v", name, err)
			}
		}

		data, err := pg.GetTimeSeriesData(ctx, symbol)
		if err != nil {
			t.Fatalf("error reading synced data: %v", err)
		}
		ex.AssertAreEqual(t, name+" rows stored", 25, len(data))
	}

	md, err := pg.GetMetaDataBySymbol(ctx, symbol)
	if err != nil {
		t.Fatalf("error reading metadata: %v", err)
	}
	ex.AssertNillability(t, "metadata", false, md)
}

func runConcurrently(n int, fn func() error) []error {
	errs := make([]error, n)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = fn()
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

func cleanupSymbol(t *testing.T, pg *r.Postgres, symbol string) {
	t.Helper()
	ctx := context.Background()
	if md, err := pg.GetMetaDataBySymbol(ctx, symbol); err == nil && md != nil {
		pg.DeleteMetaData(ctx, md.Id)
	}
	t.Cleanup(func() {
		if md, err := pg.GetMetaDataBySymbol(ctx, symbol); err == nil && md != nil {
			pg.DeleteMetaData(ctx, md.Id)
		}
	})
}

func getPostgres(t *testing.T, ctx context.Context) *r.Postgres {
	t.Helper()
	_ = godotenv.Load("../.env")

	connectionString := os.Getenv("DATABASE_URL")
	if connectionString == "" {
		t.Skip("DATABASE_URL is not set, skipping postgres tests")
	}

	pg, err := r.GetPostgresConnection(ctx, connectionString)
	if err != nil {
		t.Fatalf("error getting postgres connection: %s", err)
	}
	t.Cleanup(pg.Close)

	if err := pg.EnsureSchema(ctx); err != nil {
		t.Fatalf("error ensuring schema: %s", err)
	}
	return pg
}
