package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeBadParams    = "bad_params"
	ErrCodeUnsupported  = "unsupported_vendor_or_laser"
	ErrCodeFetchFailed  = "fetch_or_parse_failed"
	ErrCodeNavigation   = "navigation_failed"
	ErrCodeBrowserCrash = "browser_crash"
	ErrCodeTimeout      = "search_timeout"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeInternal     = "internal_error"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// SearchError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type SearchError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *SearchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// NewSearchError creates a new SearchError.
func NewSearchError(code, message string, err error) *SearchError {
	return &SearchError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
// The wrapped cause, if any, is surfaced as the diagnostic detail string.
func (e *SearchError) ToDetail() *ErrorDetail {
	d := &ErrorDetail{Code: e.Code, Message: e.Message}
	if e.Err != nil {
		d.Detail = e.Err.Error()
	}
	return d
}

// IsClientError reports whether the code describes a caller-correctable input problem.
func (e *SearchError) IsClientError() bool {
	return e.Code == ErrCodeBadParams || e.Code == ErrCodeUnsupported
}
