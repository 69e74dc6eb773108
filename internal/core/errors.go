package core

import (
	"context"
	"errors"
	"fmt"

	"triage-assist/internal/llm"
)

var (
	// ErrEmptyReport is returned when the report text is blank.
	ErrEmptyReport = errors.New("report text is empty")
	// ErrRemoteUnavailable is returned when remote mode is requested but no
	// generator has been configured.
	ErrRemoteUnavailable = errors.New("remote generator is not configured")
	// ErrUnknownMode is returned for an unrecognised evaluation mode.
	ErrUnknownMode = errors.New("unknown evaluation mode")
)

// SchemaValidationError reports that a decoded value does not have the
// minimum triage response shape.
type SchemaValidationError struct {
	Field  string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("model output did not match expected schema: %s %s", e.Field, e.Reason)
}

// ParseError reports that generator output held no recoverable JSON object.
// Snippet is a truncated copy of the offending text.
type ParseError struct {
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("model output is not JSON: %v (output: %q)", e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Error kinds reported to API and CLI callers.
const (
	KindEmptyReport       = "empty_report"
	KindUnknownMode       = "unknown_mode"
	KindRemoteUnavailable = "remote_unavailable"
	KindParse             = "parse"
	KindSchema            = "schema"
	KindTransport         = "transport"
	KindTimeout           = "timeout"
	KindCancelled         = "cancelled"
	KindInternal          = "internal"
)

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	var (
		parseErr     *ParseError
		schemaErr    *SchemaValidationError
		transportErr *llm.TransportError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyReport):
		return KindEmptyReport
	case errors.Is(err, ErrUnknownMode):
		return KindUnknownMode
	case errors.Is(err, ErrRemoteUnavailable):
		return KindRemoteUnavailable
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &schemaErr):
		return KindSchema
	case errors.As(err, &transportErr):
		return KindTransport
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	}
	return KindInternal
}
