// Package geoerr defines the typed failures surfaced by the engine.
package geoerr

import (
	"context"
	"errors"
	"fmt"
)

// Code is a stable identifier for an error class, suitable for API responses.
type Code string

func (c Code) String() string { return string(c) }

const (
	CodeOK                Code = "OK"
	CodeInvalidGeometry   Code = "GEO_001"
	CodeInvalidResolution Code = "GEO_002"
	CodeAlignment         Code = "GEO_003"
	CodeMissingIdentifier Code = "GEO_004"
	CodeCanceled          Code = "GEO_005"
	CodeInternal          Code = "GEO_999"
)

var (
	ErrInvalidGeometry      = errors.New("invalid geometry")
	ErrInvalidResolution    = errors.New("invalid resolution")
	ErrAlignmentComputation = errors.New("alignment computation failed")
	ErrMissingIdentifier    = errors.New("missing feature identifier")
)

type InvalidGeometryError struct {
	// Path locates the offending element, e.g. "polygons[1].rings[0]".
	Path   string
	Reason string
}

func (e *InvalidGeometryError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid geometry: %s", e.Reason)
	}
	return fmt.Sprintf("invalid geometry at %s: %s", e.Path, e.Reason)
}

func (e *InvalidGeometryError) Unwrap() error { return ErrInvalidGeometry }

// InvalidGeometry builds an InvalidGeometryError with a formatted reason.
func InvalidGeometry(path, format string, args ...any) error {
	return &InvalidGeometryError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

type InvalidResolutionError struct {
	Resolution int
}

func (e *InvalidResolutionError) Error() string {
	return fmt.Sprintf("invalid H3 resolution %d (must be 0..15)", e.Resolution)
}

func (e *InvalidResolutionError) Unwrap() error { return ErrInvalidResolution }

type AlignmentComputationError struct {
	SourceID string
	Op       string
	Err      error
}

func (e *AlignmentComputationError) Error() string {
	msg := "alignment computation failed"
	if e.Op != "" {
		msg += " in " + e.Op
	}
	if e.SourceID != "" {
		msg += fmt.Sprintf(" (source %q)", e.SourceID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AlignmentComputationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAlignmentComputation}
	}
	return []error{ErrAlignmentComputation, e.Err}
}

// CodeOf maps err onto its stable code; nil maps to CodeOK.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidGeometry):
		return CodeInvalidGeometry
	case errors.Is(err, ErrInvalidResolution):
		return CodeInvalidResolution
	case errors.Is(err, ErrMissingIdentifier):
		return CodeMissingIdentifier
	case errors.Is(err, ErrAlignmentComputation):
		return CodeAlignment
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeInternal
	}
}

// IsClientError reports whether err was caused by caller input.
func IsClientError(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidGeometry, CodeInvalidResolution, CodeMissingIdentifier:
		return true
	default:
		return false
	}
}
