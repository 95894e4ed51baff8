package models

import (
	"time"

	"github.com/guregu/null/v6"
)

type TimeSeriesResult struct {
	Metadata   *TimeSeriesMetadata
	TimeSeries []*TimeSeriesData
}

// TimeSeriesMetadata is shared between the provider clients and the metadata table.
// Information and TimeZone only come from the provider and are not stored.
type TimeSeriesMetadata struct {
	Id            int32       `db:"id"`
	Symbol        string      `db:"symbol"`
	LastRefreshed time.Time   `db:"last_refreshed"`
	Information   null.String `db:"-"`
	TimeZone      string      `db:"-"`
}

type TimeSeriesOHLCV struct {
	Open   null.Float `db:"open"`
	High   null.Float `db:"high"`
	Low    null.Float `db:"low"`
	Close  null.Float `db:"close"`
	Volume null.Float `db:"volume"`
}

type TimeSeriesData struct {
	SourceId  int32     `db:"source_id"`
	Timestamp time.Time `db:"timestamp"`
	TimeSeriesOHLCV
	AdjustedClose    null.Float `db:"adjusted_close"`
	DividendAmount   null.Float `db:"dividend_amount"`
	SplitCoefficient null.Float `db:"split_coefficient"`
}

// Adjusted returns the OHLCV scaled by adjusted close / close, prices are multiplied and volume divided.
// Series without an adjusted close (or with a zero close) are returned as is.
func (tsd *TimeSeriesData) Adjusted() TimeSeriesOHLCV {
	if !tsd.AdjustedClose.Valid || !tsd.Close.Valid || tsd.Close.Float64 == 0 {
		return tsd.TimeSeriesOHLCV
	}

	ratio := tsd.AdjustedClose.Float64 / tsd.Close.Float64
	scale := func(v null.Float, f func(float64) float64) null.Float {
		if !v.Valid {
			return v
		}
		return null.FloatFrom(f(v.Float64))
	}
	price := func(v float64) float64 { return v * ratio }

	return TimeSeriesOHLCV{
		Open:   scale(tsd.Open, price),
		High:   scale(tsd.High, price),
		Low:    scale(tsd.Low, price),
		Close:  tsd.AdjustedClose,
		Volume: scale(tsd.Volume, func(v float64) float64 { return v / ratio }),
	}
}
