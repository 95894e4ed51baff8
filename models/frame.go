package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// Frame is the table the forecast pipeline works on, rows are strictly increasing by date.
type Frame struct {
	Symbol string
	Rows   []*FrameRow
}

type FrameRow struct {
	Date       time.Time
	Open       null.Float
	High       null.Float
	Low        null.Float
	Close      null.Float
	Volume     null.Float
	HighLowPct null.Float
	PctChange  null.Float
	Label      null.Float
	Forecast   null.Float
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

// Historical returns the rows that came from the data source, ie everything before the first forecast row
func (f *Frame) Historical() []*FrameRow {
	for i, r := range f.Rows {
		if r.Forecast.Valid {
			return f.Rows[:i]
		}
	}
	return f.Rows
}

// Forecasts returns the rows appended by the forecast extension
func (f *Frame) Forecasts() []*FrameRow {
	return f.Rows[len(f.Historical()):]
}

// Last returns the final row or nil when empty
func (f *Frame) Last() *FrameRow {
	if len(f.Rows) == 0 {
		return nil
	}
	return f.Rows[len(f.Rows)-1]
}
