package core

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	ex "stockforecast/extensions"
	m "stockforecast/models"
)

var testSettings = m.ForecastSettings{HorizonFraction: 0.01, TestSize: 0.2, Seed: 17}

func Test_RunForecast_WithoutDatabase(t *testing.T) {
	source := newFakeSource(map[string]int{"IBM": 200})
	sc := ServiceContext{Context: context.Background(), Source: source}

	res, err := sc.RunForecast("IBM", testSettings)
	if err != nil {
		t.Fatalf("error running forecast: %v", err)
	}

	ex.AssertAreEqual(t, "symbol", "IBM", res.Symbol)
	ex.AssertAreEqual(t, "horizon", 2, res.Horizon)
	ex.AssertAreEqual(t, "seed", uint64(17), res.Seed)
	ex.AssertAreEqual(t, "provider calls", int32(1), source.calls.Load())
}

func Test_RunForecast_DrawsSeedInsideBigintRange(t *testing.T) {
	sc := ServiceContext{Context: context.Background(), Source: newFakeSource(map[string]int{"IBM": 200})}

	res, err := sc.RunForecast("IBM", m.ForecastSettings{HorizonFraction: 0.01, TestSize: 0.2})
	if err != nil {
		t.Fatalf("error running forecast: %v", err)
	}
	ex.AssertAreEqual(t, "seed drawn", true, res.Seed != 0)
	ex.AssertAreEqual(t, "seed fits bigint", true, res.Seed <= math.MaxInt64)
}

func Test_RunForecast_RejectsSeedAboveBigint(t *testing.T) {
	source := newFakeSource(map[string]int{"IBM": 200})
	sc := ServiceContext{Context: context.Background(), Source: source}

	settings := testSettings
	settings.Seed = math.MaxUint64
	if _, err := sc.RunForecast("IBM", settings); err == nil {
		t.Fatalf("expected a seed above MaxInt64 to be rejected")
	}
	ex.AssertAreEqual(t, "provider calls", int32(0), source.calls.Load())

	settings.Seed = math.MaxInt64
	res, err := sc.RunForecast("IBM", settings)
	if err != nil {
		t.Fatalf("error running forecast with the largest seed: %v", err)
	}
	ex.AssertAreEqual(t, "largest seed", uint64(math.MaxInt64), res.Seed)
}

func Test_RunForecast_WrapsSourceErrors(t *testing.T) {
	source := newFakeSource(nil)
	source.err = errors.New("boom")
	sc := ServiceContext{Context: context.Background(), Source: source}

	_, err := sc.RunForecast("IBM", testSettings)
	if err == nil {
		t.Fatalf("expected the source error")
	}
	ex.AssertAreEqual(t, "source message", true, strings.Contains(err.Error(), "boom"))
	ex.AssertAreEqual(t, "symbol in message", true, strings.Contains(err.Error(), "IBM"))
}

func Test_RunForecasts_KeepsSymbolOrder(t *testing.T) {
	symbols := []string{"IBM", "MSFT", "AAPL", "GOOGL", "AMZN", "NVDA", "META", "TSLA"}
	sizes := map[string]int{}
	for i, symbol := range symbols {
		sizes[symbol] = 120 + 30*i
	}

	for _, workers := range []int{1, 4} {
		source := newFakeSource(sizes)
		sc := ServiceContext{Context: context.Background(), Source: source, Workers: workers}

		results, err := sc.RunForecasts(symbols, testSettings)
		if err != nil {
			t.Fatalf("error running forecasts with %d workers: %v", workers, err)
		}
		ex.AssertAreEqual(t, "results", len(symbols), len(results))
		ex.AssertAreEqual(t, "provider calls", int32(len(symbols)), source.calls.Load())

		for i, res := range results {
			ex.AssertAreEqual(t, "symbol order", symbols[i], res.Symbol)
			ex.AssertAreEqual(t, "rows", sizes[symbols[i]], len(res.Frame.Historical()))
		}
	}
}

func Test_RunForecasts_ReturnsFirstError(t *testing.T) {
	sc := ServiceContext{Context: context.Background(), Source: newFakeSource(map[string]int{"IBM": 100, "MSFT": 120, "TINY": 2}), Workers: 4}

	_, err := sc.RunForecasts([]string{"IBM", "TINY", "MSFT"}, testSettings)
	ex.AssertAreEqual(t, "insufficient rows", true, errors.Is(err, ErrInsufficientRows))

	results, err := sc.RunForecasts(nil, testSettings)
	if err != nil {
		t.Fatalf("unexpected error for no symbols: %v", err)
	}
	ex.AssertAreEqual(t, "no results", 0, len(results))
}

func Test_Sync_RequiresDatabase(t *testing.T) {
	sc := ServiceContext{Context: context.Background(), Source: newFakeSource(nil)}

	_, err := sc.SyncSymbolTimeSeriesData("IBM")
	ex.AssertAreEqual(t, "sync", true, errors.Is(err, ErrNoDatabase))

	_, err = StartSyncSchedule(sc, "0 0 22 * * 1-5", []string{"IBM"})
	ex.AssertAreEqual(t, "schedule", true, errors.Is(err, ErrNoDatabase))
}
