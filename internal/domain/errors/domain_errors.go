package errors

import (
	"errors"
	"fmt"
)

var (
	// Statistics errors
	ErrStatisticsSourceUnavailable = errors.New("statistics source unavailable")
	ErrStatisticsRefreshFailed     = errors.New("statistics refresh failed")
	ErrStatisticsCacheCold         = errors.New("statistics cache has never been populated")

	// Refresh history errors
	ErrRefreshHistoryUnavailable = errors.New("refresh history unavailable")
)

// SourceError identifies which data source failed during a refresh
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s source failed: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
