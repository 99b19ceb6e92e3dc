package scraper

import (
	"fmt"
	"time"
)

// FetchError is returned when a page could not be retrieved: either the server
// answered with a non-2xx status or the request failed in transit.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	if e.Status == 0 {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when a fetch did not finish within its deadline.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("fetch %s: timed out after %v", e.URL, e.Timeout)
	}
	return fmt.Sprintf("fetch %s: deadline exceeded", e.URL)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// ExtractError is returned when a product card lacks one of its fields.
type ExtractError struct {
	Index int    // position of the card in the document, starting at 0
	Field string // selector of the missing child
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract: product %d: missing %s", e.Index, e.Field)
}
