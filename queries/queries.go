package queries

import (
	"embed"
	"fmt"
)

//go:embed create/*.sql delete/*.sql insert/*.sql select/*.sql update/*.sql
var Files embed.FS

// ^^^ the go:embed directive is used to embed the files in the queries package
// meaning on compile time it will convert the files to binary data and embed it in the queries package

type CreateQueries struct {
	Tables                string
	TimeSeriesDataStaging string
}

type DeleteQueries struct {
	TimeSeriesMetadata string
}

type InsertQueries struct {
	Metadata             string
	ForecastRun          string
	TimeSeriesDataUpsert string
}

type SelectQueries struct {
	ForecastRunsBySymbol        string
	MetaDataBySymbol            string
	MostRecentTimestampBySymbol string
	TimeSeriesData              string
}

type UpdateQueries struct {
	ForecastRun       string
	LastRefreshedDate string
}

type QueryHelperStruct struct {
	Create CreateQueries
	Delete DeleteQueries
	Insert InsertQueries
	Select SelectQueries
	Update UpdateQueries
}

var QueryHelper = QueryHelperStruct{
	Create: CreateQueries{
		Tables:                "create/tables.sql",
		TimeSeriesDataStaging: "create/time_series_data_staging.sql",
	},
	Delete: DeleteQueries{
		TimeSeriesMetadata: "delete/time_series_metadata.sql",
	},
	Insert: InsertQueries{
		Metadata:             "insert/metadata.sql",
		ForecastRun:          "insert/forecast_run.sql",
		TimeSeriesDataUpsert: "insert/time_series_data_upsert.sql",
	},
	Select: SelectQueries{
		ForecastRunsBySymbol:        "select/forecast_runs_by_symbol.sql",
		MetaDataBySymbol:            "select/meta_data_by_symbol.sql",
		MostRecentTimestampBySymbol: "select/most_recent_timestamp_by_symbol.sql",
		TimeSeriesData:              "select/time_series_data.sql",
	},
	Update: UpdateQueries{
		ForecastRun:       "update/forecast_run.sql",
		LastRefreshedDate: "update/last_refreshed_date.sql",
	},
}

func Get(path string) string {
	content, err := Files.ReadFile(path)
	if err != nil {
		panic(fmt.Errorf("error reading query file: %w", err))
	}

	return string(content)
}
