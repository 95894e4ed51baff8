package core

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guregu/null/v6"

	m "stockforecast/models"
)

var seriesStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// makeSeries builds n daily rows with a trend, a wobble and a steady volume ramp
func makeSeries(n int) []*m.TimeSeriesData {
	res := make([]*m.TimeSeriesData, n)
	for i := range n {
		price := 100 + float64(i)*0.5 + 2*math.Sin(float64(i))
		res[i] = &m.TimeSeriesData{
			Timestamp: seriesStart.AddDate(0, 0, i),
			TimeSeriesOHLCV: m.TimeSeriesOHLCV{
				Open:   null.FloatFrom(price - 0.3*math.Cos(float64(i))),
				High:   null.FloatFrom(price + 1 + 0.1*float64(i%5)),
				Low:    null.FloatFrom(price - 1 - 0.1*float64(i%3)),
				Close:  null.FloatFrom(price),
				Volume: null.FloatFrom(1e6 + float64(i)*1000 + float64(i%7)*250),
			},
		}
	}
	return res
}

type fakeSource struct {
	series map[string][]*m.TimeSeriesData
	err    error
	calls  atomic.Int32
}

func newFakeSource(symbols map[string]int) *fakeSource {
	fs := &fakeSource{series: map[string][]*m.TimeSeriesData{}}
	for symbol, n := range symbols {
		fs.series[symbol] = makeSeries(n)
	}
	return fs
}

func (fs *fakeSource) Name() string {
	return "fake"
}

func (fs *fakeSource) GetDailyPrices(ctx context.Context, symbol string) (*m.TimeSeriesResult, error) {
	fs.calls.Add(1)
	if fs.err != nil {
		return nil, fs.err
	}
	data, ok := fs.series[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	return &m.TimeSeriesResult{
		Metadata:   &m.TimeSeriesMetadata{Symbol: symbol, LastRefreshed: data[len(data)-1].Timestamp},
		TimeSeries: data,
	}, nil
}

func mustFrame(t *testing.T, n int) *m.Frame {
	t.Helper()
	frame, err := BuildFrame("IBM", makeSeries(n))
	if err != nil {
		t.Fatalf("error building frame: %v", err)
	}
	DeriveFeatures(frame)
	return frame
}
