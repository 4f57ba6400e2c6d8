package domain

import "errors"

// Sentinel errors the handlers translate into HTTP statuses.
var (
	ErrInvalidDateFormat   = errors.New("invalid date format")
	ErrInvalidPeriodFormat = errors.New("invalid period format")
	ErrMissingSymbol       = errors.New("coin symbol is required")
	ErrCoinNotFound        = errors.New("no data found for the specified coin in the given date range")
	ErrNoData              = errors.New("no coin data available")
	ErrNotAdmin            = errors.New("wallet does not have admin rights")
)
