package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDump means the dump is not a JSON array.
	ErrMalformedDump = errors.New("malformed dump")
	// ErrMissingField means a dump entry lacks a required key.
	ErrMissingField = errors.New("missing required field")
	// ErrUnexpectedStatus means the endpoint answered with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

func missing(path string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, path)
}

// StatusError carries the status code of a rejected submission.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// RecordError ties a failure to the zero-based position of the dump entry
// that caused it.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
