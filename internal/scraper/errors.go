package scraper

import "fmt"

// ErrorKind classifies a failed fetch.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindHTTPStatus ErrorKind = "http_status"
	KindNetwork    ErrorKind = "network"
)

// FetchError is the only error type returned by a Fetcher.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int // set for KindHTTPStatus
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func timeoutError(err error) *FetchError {
	return &FetchError{Kind: KindTimeout, Message: "Request timeout", Err: err}
}

func statusError(code int, reason string) *FetchError {
	return &FetchError{
		Kind:       KindHTTPStatus,
		StatusCode: code,
		Message:    fmt.Sprintf("HTTP %d: %s", code, reason),
	}
}

func networkError(err error) *FetchError {
	return &FetchError{Kind: KindNetwork, Message: err.Error(), Err: err}
}

func errBodyTooLarge(limit int64) error {
	return fmt.Errorf("response body exceeds %d bytes", limit)
}
