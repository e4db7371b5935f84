package utils

import (
	"errors"
	"fmt"
)

// Kinds of failure a run can report. Match with errors.Is.
var (
	ErrSession            = errors.New("session_error")
	ErrNavigationTimeout  = errors.New("navigation_timeout")
	ErrFieldExtraction    = errors.New("field_extraction_error")
	ErrPersistenceSkipped = errors.New("persistence_skipped")
)

// ScrapeError represents a classified scraping failure
type ScrapeError struct {
	Kind    error  `json:"-"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Err     error  `json:"-"`
}

func (e *ScrapeError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error's kind
func (e *ScrapeError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// NewSessionError is returned when the browser or driver cannot start
func NewSessionError(err error) *ScrapeError {
	return &ScrapeError{
		Kind:    ErrSession,
		Message: "Browser session failed",
		Err:     err,
	}
}

// NewNavigationTimeoutError is returned when expected elements never appear
func NewNavigationTimeoutError(detail string, err error) *ScrapeError {
	return &ScrapeError{
		Kind:    ErrNavigationTimeout,
		Message: "Timed out waiting for page content",
		Detail:  detail,
		Err:     err,
	}
}

// NewFieldExtractionError is returned when a required listing field is missing
func NewFieldExtractionError(field string) *ScrapeError {
	return &ScrapeError{
		Kind:    ErrFieldExtraction,
		Message: "Field extraction failed",
		Detail:  field,
	}
}

// NewPersistenceSkippedError is returned when a run produced nothing to write
func NewPersistenceSkippedError(detail string) *ScrapeError {
	return &ScrapeError{
		Kind:    ErrPersistenceSkipped,
		Message: "Persistence skipped",
		Detail:  detail,
	}
}
