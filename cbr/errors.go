package cbr

import (
	"fmt"
	"net/http"
)

// FetchError reports that the rate page could not be retrieved.
// Either Err (transport failure) or StatusCode (non-200 response) is set.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %v: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %v: unexpected status %d %v", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the failure is worth retrying later.
// Transport failures, 408, 425, 429 and 5xx responses are considered temporary.
func (e *FetchError) Temporary() bool {
	if e.Err != nil {
		return true
	}
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500
}

// ParseError reports that the retrieved page does not contain a usable rate table.
type ParseError struct {
	Reason string
	// Row 1-based data row, 0 when the error is not tied to a row
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parse rate table: " + e.Reason
	if e.Row > 0 {
		msg += fmt.Sprintf(" (row %d", e.Row)
		if e.Column != "" {
			msg += fmt.Sprintf(", column %q", e.Column)
		}
		if e.Value != "" {
			msg += fmt.Sprintf(", value %q", e.Value)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
