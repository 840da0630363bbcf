package change

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code int

const (
	CodeNone Code = iota
	StructuralParseFailure
	TargetNotFound
	AmbiguousOrOversizedMatch
	OverlappingEditsInFile
	CreateFileConflict
	UnsupportedAction
	InvalidSpan
	MissingClass
	MissingTarget
	MissingFile
	ValidationTimeout
	Internal
)

func (c Code) String() string {
	switch c {
	case CodeNone:
		return "none"
	case StructuralParseFailure:
		return "structural_parse_failure"
	case TargetNotFound:
		return "target_not_found"
	case AmbiguousOrOversizedMatch:
		return "ambiguous_or_oversized_match"
	case OverlappingEditsInFile:
		return "overlapping_edits_in_file"
	case CreateFileConflict:
		return "create_file_conflict"
	case UnsupportedAction:
		return "unsupported_action"
	case InvalidSpan:
		return "invalid_span"
	case MissingClass:
		return "missing_class"
	case MissingTarget:
		return "missing_target"
	case MissingFile:
		return "missing_file"
	case ValidationTimeout:
		return "validation_timeout"
	case Internal:
		return "internal"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Error is a structured failure tied to a file and, when known, to the
// index of the request that caused it (-1 otherwise).
type Error struct {
	Code        Code
	File        string
	Request     int
	Msg         string
	Suggestions []string
	Err         error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	switch {
	case e.File != "" && e.Request >= 0:
		return fmt.Sprintf("%s (request %d): %s", e.File, e.Request, msg)
	case e.File != "":
		return fmt.Sprintf("%s: %s", e.File, msg)
	case e.Request >= 0:
		return fmt.Sprintf("request %d: %s", e.Request, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code, so errors.Is(err, &Error{Code: X}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, file string, request int, format string, args ...any) *Error {
	return &Error{Code: code, File: file, Request: request, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code carried by err, Internal for foreign errors and
// CodeNone for nil.
func CodeOf(err error) Code {
	if err == nil {
		return CodeNone
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return Internal
}
