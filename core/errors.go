package core

import "errors"

var (
	ErrEmptySeries      = errors.New("time series is empty")
	ErrDuplicateDate    = errors.New("time series has a duplicate date")
	ErrInsufficientRows = errors.New("not enough rows to fit and score a model")
	ErrSyncNotNeeded    = errors.New("symbol was synced recently")
	ErrNoDatabase       = errors.New("no database is configured")
)
