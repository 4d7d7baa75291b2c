package errors

import (
	"errors"
	"fmt"
)

// Kind represents the category of analysis error
type Kind int

const (
	// KindRefNotFound - a git ref could not be resolved; analysis cannot start
	KindRefNotFound Kind = iota
	// KindEmptyDiff - base and head are identical; report "no changes" instead of aborting
	KindEmptyDiff
	// KindUnparseableFile - a file could not be parsed into a structured delta;
	// recovered per-file, flagged for manual review
	KindUnparseableFile
	// KindAmbiguousBreakingChange - the request/response shape could not be
	// determined (e.g. dynamically constructed bodies); breaking verdict is unknown
	KindAmbiguousBreakingChange
	// KindTimeout - the collection step exceeded the invocation timeout
	KindTimeout
	// KindInternal - unexpected internal state
	KindInternal
)

// Severity represents how an error propagates through the pipeline
type Severity int

const (
	// SeverityRecoverable - reported in the output, pipeline continues
	SeverityRecoverable Severity = iota
	// SeverityPerFile - the offending file is flagged, other files proceed
	SeverityPerFile
	// SeverityFatal - the whole analysis fails
	SeverityFatal
)

// Error is a structured analysis error with pipeline propagation semantics
type Error struct {
	Kind     Kind
	Severity Severity
	Message  string
	Cause    error
	Path     string // offending file path, when per-file
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Kind so errors.Is works across wrapped instances
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsFatal returns true if this error must abort the whole analysis
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityFatal
}

// RefNotFound creates a fatal ref-resolution error
func RefNotFound(ref string, cause error) *Error {
	return &Error{
		Kind:     KindRefNotFound,
		Severity: SeverityFatal,
		Message:  fmt.Sprintf("ref %q could not be resolved", ref),
		Cause:    cause,
	}
}

// EmptyDiff creates a recoverable no-changes error
func EmptyDiff(base, head string) *Error {
	return &Error{
		Kind:     KindEmptyDiff,
		Severity: SeverityRecoverable,
		Message:  fmt.Sprintf("no changes between %s and %s", base, head),
	}
}

// UnparseableFile creates a per-file parse error
func UnparseableFile(path string, cause error) *Error {
	return &Error{
		Kind:     KindUnparseableFile,
		Severity: SeverityPerFile,
		Message:  fmt.Sprintf("could not parse %s", path),
		Cause:    cause,
		Path:     path,
	}
}

// AmbiguousBreakingChange creates a per-endpoint ambiguity error
func AmbiguousBreakingChange(path, detail string) *Error {
	return &Error{
		Kind:     KindAmbiguousBreakingChange,
		Severity: SeverityPerFile,
		Message:  fmt.Sprintf("breaking-change status for %s is ambiguous: %s", path, detail),
		Path:     path,
	}
}

// Timeout creates a fatal collection-timeout error
func Timeout(cause error) *Error {
	return &Error{
		Kind:     KindTimeout,
		Severity: SeverityFatal,
		Message:  "diff collection timed out",
		Cause:    cause,
	}
}

// Internal creates an unexpected-state error
func Internal(message string, cause error) *Error {
	return &Error{
		Kind:     KindInternal,
		Severity: SeverityFatal,
		Message:  message,
		Cause:    cause,
	}
}

// IsKind reports whether err (or anything it wraps) has the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsFatal checks whether an error should stop the pipeline.
// Plain errors from the collector are treated as fatal; everything else
// defaults to recoverable.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.IsFatal()
	}
	return false
}
