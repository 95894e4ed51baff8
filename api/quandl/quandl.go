package quandl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	c "stockforecast/api"
	m "stockforecast/models"
)

const (
	HostDefault = "data.nasdaq.com"
	SourceName  = "quandl"

	defaultTimeout = time.Second * 30
	dateColumn     = "Date"
)

// column preference per field, adjusted columns come first so splits and dividends are already applied
var columnCandidates = map[string][]string{
	"Open":   {"Adj. Open", "Open"},
	"High":   {"Adj. High", "High"},
	"Low":    {"Adj. Low", "Low"},
	"Close":  {"Adj. Close", "Close", "Settle", "Value"},
	"Volume": {"Adj. Volume", "Volume"},
}

// Client reads time series datasets from Nasdaq Data Link (formerly Quandl).
// Symbols are dataset codes, e.g. WIKI/GOOGL.
type Client struct {
	*c.Client
	// Collapse changes the sampling frequency: daily, weekly, monthly, quarterly or annual
	Collapse string
	// Transform runs an elementary calculation on the series: diff, rdiff, rdiff_from, cumul or normalize
	Transform string
}

func GetClient(apiKey string) *Client {
	return GetClientForHost(HostDefault, apiKey)
}

func GetClientForHost(host, apiKey string) *Client {
	return &Client{
		Client: c.ClientFactory(host, apiKey, defaultTimeout),
	}
}

func (qc *Client) Name() string {
	return SourceName
}

type datasetResponse struct {
	DatasetData *datasetData `json:"dataset_data"`
	Error       *apiError    `json:"quandl_error"`
}

type datasetData struct {
	ColumnNames []string `json:"column_names"`
	EndDate     string   `json:"end_date"`
	Frequency   string   `json:"frequency"`
	Data        [][]any  `json:"data"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetDailyPrices fetches a dataset in ascending date order.
// https://docs.data.nasdaq.com/docs/time-series
func (qc *Client) GetDailyPrices(ctx context.Context, code string) (*m.TimeSeriesResult, error) {
	if qc == nil || qc.Client == nil {
		return nil, fmt.Errorf("quandl client has not been set")
	}

	endpoint, err := qc.buildRequestPath(code)
	if err != nil {
		return nil, err
	}

	response, err := qc.Client.Connection.Request(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close()

	return parseDatasetResponse(response.Body, code)
}

func (qc *Client) buildRequestPath(code string) (*url.URL, error) {
	parts := strings.Split(strings.Trim(code, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("quandl code %q must look like DATABASE/DATASET", code)
	}

	endpoint := &url.URL{}
	endpoint.Path = fmt.Sprintf("api/v3/datasets/%s/%s/data.json", url.PathEscape(parts[0]), url.PathEscape(parts[1]))

	query := endpoint.Query()
	query.Set("order", "asc")
	if qc.Client.ApiKey != "" {
		query.Set("api_key", qc.Client.ApiKey)
	}
	if qc.Collapse != "" {
		query.Set("collapse", qc.Collapse)
	}
	if qc.Transform != "" {
		query.Set("transform", qc.Transform)
	}

	endpoint.RawQuery = query.Encode()

	return endpoint, nil
}

func parseDatasetResponse(reader io.Reader, code string) (*m.TimeSeriesResult, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	var res datasetResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	if res.Error != nil {
		return nil, fmt.Errorf("quandl rejected request (%s): %s", res.Error.Code, res.Error.Message)
	}

	if res.DatasetData == nil {
		return nil, fmt.Errorf("quandl response for %s is missing dataset_data", code)
	}

	dd := res.DatasetData
	dateIdx := slices.Index(dd.ColumnNames, dateColumn)
	if dateIdx < 0 {
		return nil, fmt.Errorf("quandl dataset %s has no %s column, columns: %v", code, dateColumn, dd.ColumnNames)
	}

	lookup := make(map[string]int, len(columnCandidates))
	for field, candidates := range columnCandidates {
		for _, candidate := range candidates {
			if idx := slices.Index(dd.ColumnNames, candidate); idx >= 0 {
				lookup[field] = idx
				break
			}
		}
	}

	if _, ok := lookup["Close"]; !ok {
		return nil, fmt.Errorf("quandl dataset %s has no usable close column, columns: %v", code, dd.ColumnNames)
	}

	dividendIdx := slices.Index(dd.ColumnNames, "Ex-Dividend")
	splitIdx := slices.Index(dd.ColumnNames, "Split Ratio")

	timeSeries := make([]*m.TimeSeriesData, 0, len(dd.Data))
	for i, row := range dd.Data {
		if len(row) != len(dd.ColumnNames) {
			return nil, fmt.Errorf("quandl row %d has %d values, expected %d", i, len(row), len(dd.ColumnNames))
		}

		dateString, ok := row[dateIdx].(string)
		if !ok {
			return nil, fmt.Errorf("quandl row %d has a non string date %v", i, row[dateIdx])
		}

		timestamp, err := time.ParseInLocation(time.DateOnly, dateString, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("error converting date %s to time.Time: %w", dateString, err)
		}

		value := func(field string) null.Float {
			idx, ok := lookup[field]
			if !ok {
				return null.Float{}
			}
			return toFloat(row[idx])
		}

		tsd := &m.TimeSeriesData{
			Timestamp: timestamp,
			TimeSeriesOHLCV: m.TimeSeriesOHLCV{
				Open:   value("Open"),
				High:   value("High"),
				Low:    value("Low"),
				Close:  value("Close"),
				Volume: value("Volume"),
			},
		}
		if dividendIdx >= 0 {
			tsd.DividendAmount = toFloat(row[dividendIdx])
		}
		if splitIdx >= 0 {
			tsd.SplitCoefficient = toFloat(row[splitIdx])
		}

		timeSeries = append(timeSeries, tsd)
	}

	slices.SortFunc(timeSeries, func(a, b *m.TimeSeriesData) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	md := &m.TimeSeriesMetadata{
		Symbol:      code,
		TimeZone:    "UTC",
		Information: null.StringFrom(fmt.Sprintf("%s %s dataset", code, dd.Frequency)),
	}
	if end, err := time.ParseInLocation(time.DateOnly, dd.EndDate, time.UTC); err == nil {
		md.LastRefreshed = end
	} else if len(timeSeries) > 0 {
		md.LastRefreshed = timeSeries[len(timeSeries)-1].Timestamp
	}

	return &m.TimeSeriesResult{
		Metadata:   md,
		TimeSeries: timeSeries,
	}, nil
}

func toFloat(v any) null.Float {
	switch n := v.(type) {
	case float64:
		return null.FloatFrom(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return null.FloatFrom(f)
		}
	}
	return null.Float{}
}
