package models

import (
	"fmt"
)

// DataSourceError reports an unreachable or malformed series source.
// Loading cannot continue without all three sources, so callers treat it as fatal.
type DataSourceError struct {
	Kind   SeriesKind
	Source string
	Err    error
}

func (e *DataSourceError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("data source %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s data source %s: %v", e.Kind, e.Source, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether a retry may succeed
func (e *DataSourceError) IsTransient() bool {
	if t, ok := e.Err.(interface{ IsTransient() bool }); ok {
		return t.IsTransient()
	}
	return true
}

// RangeError identifies a date index or date outside the loaded series
type RangeError struct {
	Index int
	Date  string
	Len   int
}

func (e *RangeError) Error() string {
	if e.Date != "" {
		return fmt.Sprintf("date %q is not in the loaded series", e.Date)
	}
	return fmt.Sprintf("date index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *RangeError) IsTransient() bool {
	return false
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
