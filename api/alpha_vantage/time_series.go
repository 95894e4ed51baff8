package alpha_vantage

import (
	"fmt"
	"strings"
)

// TimeSeries specifies which daily series to query for stock data.
type TimeSeries uint8

const (
	TimeSeriesDaily TimeSeries = iota
	TimeSeriesDailyAdjusted
)

func (t TimeSeries) Name() string {
	switch t {
	case TimeSeriesDaily:
		return "TimeSeriesDaily"
	case TimeSeriesDailyAdjusted:
		return "TimeSeriesDailyAdjusted"
	default:
		return ""
	}
}

func (t TimeSeries) Function() string {
	switch t {
	case TimeSeriesDaily:
		return "TIME_SERIES_DAILY"
	case TimeSeriesDailyAdjusted:
		return "TIME_SERIES_DAILY_ADJUSTED"
	default:
		return ""
	}
}

// TimeSeriesKey is the json key the series is returned under, both daily functions share it
func (t TimeSeries) TimeSeriesKey() string {
	return "Time Series (Daily)"
}

func (t TimeSeries) IsAdjusted() bool {
	return strings.HasSuffix(t.Function(), "_ADJUSTED")
}

// ParseTimeSeries maps an av function name (TIME_SERIES_DAILY) or a Name() back to a TimeSeries
func ParseTimeSeries(s string) (TimeSeries, error) {
	for _, t := range []TimeSeries{TimeSeriesDaily, TimeSeriesDailyAdjusted} {
		if strings.EqualFold(s, t.Function()) || strings.EqualFold(s, t.Name()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%s is not a supported alpha vantage time series", s)
}
