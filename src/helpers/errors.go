package helpers

import "fmt"

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type DashboardError struct {
	Message string
	Cause   error
}

func (e *DashboardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DashboardError) Unwrap() error {
	return e.Cause
}

// Distinct categories for errors.As checks at the call sites.
type NetworkError struct{ DashboardError }
type DataSourceError struct{ DashboardError }
type ValidationError struct{ DashboardError }

// -----------------------------------------------------------------------------

func NewNetworkError(msg string, cause error) error {
	return &NetworkError{DashboardError{Message: msg, Cause: cause}}
}

func NewDataSourceError(msg string, cause error) error {
	return &DataSourceError{DashboardError{Message: msg, Cause: cause}}
}

func NewValidationError(msg string) error {
	return &ValidationError{DashboardError{Message: msg}}
}
