package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeBrowserLaunch = "BROWSER_LAUNCH_FAILED"
	ErrCodeNavigation    = "NAVIGATION_FAILED"
	ErrCodeTimeout       = "SCRAPE_TIMEOUT"
	ErrCodeExtraction    = "CONTENT_EXTRACTION_FAILED"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ErrorKind is the failure taxonomy a fetch can end in.
type ErrorKind string

const (
	KindConfig     ErrorKind = "ConfigError"
	KindLaunch     ErrorKind = "LaunchError"
	KindNavigation ErrorKind = "NavigationError"
	KindTimeout    ErrorKind = "TimeoutError"
	KindExtraction ErrorKind = "ExtractionError"
	KindInternal   ErrorKind = "InternalError"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// Kind maps the error code onto the failure taxonomy.
func (e *ScrapeError) Kind() ErrorKind {
	switch e.Code {
	case ErrCodeInvalidInput:
		return KindConfig
	case ErrCodeBrowserLaunch:
		return KindLaunch
	case ErrCodeNavigation:
		return KindNavigation
	case ErrCodeTimeout:
		return KindTimeout
	case ErrCodeExtraction:
		return KindExtraction
	default:
		return KindInternal
	}
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// AsScrapeError returns err as a *ScrapeError, wrapping anything
// unclassified as INTERNAL_ERROR.
func AsScrapeError(err error) *ScrapeError {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return NewScrapeError(ErrCodeInternal, err.Error(), err)
}

// IsKind reports whether err is a ScrapeError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *ScrapeError
	return errors.As(err, &se) && se.Kind() == kind
}
