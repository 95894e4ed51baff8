package alpha_vantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog/log"

	c "stockforecast/api"
	ex "stockforecast/extensions"
	m "stockforecast/models"
)

// public
const (
	HostDefault = "www.alphavantage.co"
	SourceName  = "alphavantage"
)

// private
const (
	// default query parameters
	defaultOutputSize = "full"
	defaultDataType   = "json"
	defaultTimeout    = time.Second * 30

	// api request elements
	query    = "query"
	symbol   = "symbol"
	function = "function"

	metaDataKey = "Meta Data"
)

var (
	timeSeriesDateFormats = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
	}

	ohlcvResultKeys = map[string]string{
		"Open":   ". open",
		"High":   ". high",
		"Low":    ". low",
		"Close":  ". close",
		"Volume": ". volume",
	}

	// alpha vantage answers 200 with one of these keys when the call is rejected or throttled
	apiErrorKeys = []string{"Error Message", "Note", "Information"}
)

type AlphaVantageClient struct {
	*c.Client
	TimeSeries TimeSeries
	OutputSize string
}

func GetClient(apiKey string) *AlphaVantageClient {
	return GetClientForHost(HostDefault, apiKey)
}

func GetClientForHost(host, apiKey string) *AlphaVantageClient {
	return &AlphaVantageClient{
		Client:     c.ClientFactory(host, apiKey, defaultTimeout),
		TimeSeries: TimeSeriesDaily,
		OutputSize: defaultOutputSize,
	}
}

func (avc *AlphaVantageClient) Name() string {
	return SourceName
}

// GetDailyPrices queries the configured daily series for a ticker.
// https://www.alphavantage.co/documentation/#daily
func (avc *AlphaVantageClient) GetDailyPrices(ctx context.Context, ticker string) (*m.TimeSeriesResult, error) {
	if avc == nil || avc.Client == nil {
		return nil, fmt.Errorf("alpha vantage client has not been set")
	}

	endpoint := avc.buildRequestPath(map[string]string{
		function: avc.TimeSeries.Function(),
		symbol:   ticker,
	})

	response, err := avc.Client.Connection.Request(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close()

	raw, err := parseRawJson(response.Body)
	if err != nil {
		return nil, err
	}

	metaData, timeZone, err := parseMetaData(raw)
	if err != nil {
		return nil, err
	}

	timeSeriesData, err := parseTimeSeriesDataResult(raw, avc.TimeSeries.TimeSeriesKey(), timeZone)
	if err != nil {
		return nil, err
	}

	return &m.TimeSeriesResult{
		Metadata:   metaData,
		TimeSeries: timeSeriesData,
	}, nil
}

func (avc *AlphaVantageClient) buildRequestPath(params map[string]string) *url.URL {
	// build our URL
	endpoint := &url.URL{}
	endpoint.Path = query

	outputSize := avc.OutputSize
	if outputSize == "" {
		outputSize = defaultOutputSize
	}

	// base parameters
	query := endpoint.Query()
	query.Set("apikey", avc.Client.ApiKey)
	query.Set("datatype", defaultDataType)
	query.Set("outputsize", outputSize)

	// additional parameters
	for key, value := range params {
		query.Set(key, value)
	}

	endpoint.RawQuery = query.Encode()

	return endpoint
}

func parseRawJson(reader io.Reader) (raw map[string]json.RawMessage, err error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	// converting to a <string, raw message> map
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	if _, ok := raw[metaDataKey]; !ok {
		for _, key := range apiErrorKeys {
			if msg, ok := raw[key]; ok {
				var s string
				_ = json.Unmarshal(msg, &s)
				return nil, fmt.Errorf("alpha vantage rejected request (%s): %s", key, s)
			}
		}
	}

	return
}

func parseMetaData(raw map[string]json.RawMessage) (*m.TimeSeriesMetadata, *time.Location, error) {
	var metadataElements map[string]string
	if err := json.Unmarshal(raw[metaDataKey], &metadataElements); err != nil {
		return nil, nil, fmt.Errorf("error unmarshaling meta data: %w", err)
	}

	metaDataKeys := slices.Collect(maps.Keys(metadataElements))

	// parse symbol
	sf := func(s string) bool { return strings.HasSuffix(s, ". Symbol") }
	symbolKey, err := ex.FilterSingle(metaDataKeys, sf)
	if err != nil {
		return nil, nil, fmt.Errorf("error extracting symbol for meta data")
	}

	// parse time zone
	tzf := func(s string) bool { return strings.HasSuffix(s, ". Time Zone") }
	timeZoneKey, err := ex.FilterSingle(metaDataKeys, tzf)
	if err != nil {
		return nil, nil, fmt.Errorf("error extracting time zone for meta data")
	}

	timeZone, err := getTimeZone(metadataElements[timeZoneKey])
	if err != nil {
		return nil, nil, fmt.Errorf("error converting time zone key %s, to time.Location: %w", metadataElements[timeZoneKey], err)
	}

	// parse last refreshed
	lrf := func(s string) bool { return strings.HasSuffix(s, ". Last Refreshed") }
	lastRefreshedKey, err := ex.FilterSingle(metaDataKeys, lrf)
	if err != nil {
		return nil, nil, fmt.Errorf("error extracting last refreshed date")
	}

	lastRefreshed, err := parseDate(metadataElements[lastRefreshedKey], timeZone)
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing last refreshed date")
	}

	res := m.TimeSeriesMetadata{
		Symbol:        metadataElements[symbolKey],
		LastRefreshed: lastRefreshed,
		TimeZone:      metadataElements[timeZoneKey],
	}

	// information is optional
	inf := func(s string) bool { return strings.HasSuffix(s, ". Information") }
	if informationKey, err := ex.FilterSingle(metaDataKeys, inf); err == nil {
		res.Information = null.StringFrom(metadataElements[informationKey])
	}

	return &res, timeZone, nil
}

func parseTimeSeriesDataResult(raw map[string]json.RawMessage, key string, location *time.Location) ([]*m.TimeSeriesData, error) {
	rawSeries, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("error finding time series %q in response", key)
	}

	var timeSeriesElements map[string]map[string]string
	if err := json.Unmarshal(rawSeries, &timeSeriesElements); err != nil {
		return nil, fmt.Errorf("error unmarshaling time series: %w", err)
	}

	if len(timeSeriesElements) == 0 {
		return nil, fmt.Errorf("time series %q is empty", key)
	}

	// populate the lookups
	var firstValue map[string]string
	for _, v := range timeSeriesElements {
		firstValue = v
		break
	}

	ohlcvLookup, err := getLookupKey(ohlcvResultKeys, firstValue)
	if err != nil {
		return nil, err
	}

	// adjusted series only, missing keys leave the values null
	valueHeaders := slices.Collect(maps.Keys(firstValue))
	adjustedCloseKey := getOptionalKey(valueHeaders, ". adjusted close")
	dividendAmountKey := getOptionalKey(valueHeaders, ". dividend amount")
	splitCoefficientKey := getOptionalKey(valueHeaders, ". split coefficient")

	timeSeries := make([]*m.TimeSeriesData, 0, len(timeSeriesElements))
	for timeSeriesKey, timeSeriesValue := range timeSeriesElements {
		// get timestamp
		timestamp, err := parseDate(timeSeriesKey, location)
		if err != nil {
			return nil, fmt.Errorf("error converting TIMESTAMP from string to time.Time: %w", err)
		}

		// get OHLCV
		ohlcv, err := parseOHLCV(timeSeriesValue, ohlcvLookup)
		if err != nil {
			return nil, fmt.Errorf("error parsing OHLCV: %w", err)
		}

		timeSeries = append(timeSeries, &m.TimeSeriesData{
			Timestamp:        timestamp,
			TimeSeriesOHLCV:  ohlcv,
			AdjustedClose:    parseFloat(timeSeriesValue[adjustedCloseKey]),
			DividendAmount:   parseFloat(timeSeriesValue[dividendAmountKey]),
			SplitCoefficient: parseFloat(timeSeriesValue[splitCoefficientKey]),
		})
	}

	// map iteration order is random, the rest of the pipeline expects ascending dates
	slices.SortFunc(timeSeries, func(a, b *m.TimeSeriesData) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	return timeSeries, nil
}

func parseOHLCV(value, lookup map[string]string) (res m.TimeSeriesOHLCV, err error) {
	v := reflect.ValueOf(&res).Elem()
	for jsonKey, structAttribute := range lookup {
		field := v.FieldByName(structAttribute)
		if !field.IsValid() {
			return res, fmt.Errorf("field %s does not exist", structAttribute)
		}
		if !field.CanSet() {
			return res, fmt.Errorf("field %s cannot be set", structAttribute)
		}

		pv := parseFloat(value[jsonKey])
		field.Set(reflect.ValueOf(pv))
	}
	return
}

func getLookupKey(expectedKeys, values map[string]string) (map[string]string, error) {
	res := make(map[string]string)
	responseValueHeaders := slices.Collect(maps.Keys(values))

	for key, value := range expectedKeys {
		f := func(s string) bool { return ex.HasSuffixFold(s, value) }
		if jsonKey, err := ex.FilterSingle(responseValueHeaders, f); err == nil {
			res[jsonKey] = key
		}
	}

	if len(res) == 0 {
		return nil, fmt.Errorf("error generating key value map from av response object. Available headers: %v", responseValueHeaders)
	}

	return res, nil
}

func getOptionalKey(headers []string, suffix string) string {
	f := func(s string) bool { return ex.HasSuffixFold(s, suffix) }
	key, err := ex.FilterSingle(headers, f)
	if err != nil {
		return ""
	}
	return key
}

func getTimeZone(location string) (*time.Location, error) {
	var loc string
	switch strings.ToUpper(location) {
	case "US/EASTERN":
		loc = "America/New_York"
	case "UTC", "":
		return time.UTC, nil
	default:
		log.Warn().Str("timeZone", location).Msg("time zone is not recognized, defaulting to UTC")
		return time.UTC, nil
	}

	res, err := time.LoadLocation(loc)
	if err != nil {
		return nil, fmt.Errorf("error parsing time zone %s in time.LoadLocation", loc)
	}

	return res, nil
}

func parseDate(dateString string, location *time.Location) (time.Time, error) {
	for _, format := range timeSeriesDateFormats {
		t, err := time.ParseInLocation(format, dateString, location)
		if err != nil {
			continue
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("error converting date %s to time.Time", dateString)
}

func parseFloat(val string) null.Float {
	if val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return null.FloatFrom(f)
		}
	}
	return null.Float{}
}
