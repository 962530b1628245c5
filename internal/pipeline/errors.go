package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies where in the pipeline a failure happened. Kinds are
// stable strings; they appear in API error bodies, job records, and
// metrics labels.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindCredential    Kind = "credential"
	KindFetch         Kind = "fetch"
	KindMerge         Kind = "merge"
	KindUploadTarget  Kind = "upload_target"
	KindUpload        Kind = "upload"
	KindMetadataPatch Kind = "metadata_patch"
)

// Severity is the asymmetry at the heart of the pipeline: explainer
// problems degrade the result, everything from target resolution onward
// kills the request.
type Severity int

const (
	// SeveritySoft failures degrade the outcome (no merge) but let the
	// publish proceed.
	SeveritySoft Severity = iota
	// SeverityFatal failures abort the request.
	SeverityFatal
)

// Error is a classified pipeline failure.
type Error struct {
	Kind     Kind
	Severity Severity
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind and severity.
func NewError(kind Kind, severity Severity, err error) *Error {
	return &Error{Kind: kind, Severity: severity, Err: err}
}

// KindOf extracts the Kind from err, or "internal" for unclassified
// errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return "internal"
}

// StatusCode maps a pipeline error to the HTTP status surfaced to the
// caller.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return 400
	case KindCredential:
		return 401
	default:
		return 500
	}
}
