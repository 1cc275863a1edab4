// Package asseterr defines the error taxonomy shared by the assetkit packages.
// It sits below every other package so graph, typetree, raster and the public
// package can wrap the same sentinels without importing each other.
package asseterr

import (
	"errors"
	"fmt"
)

// Sentinel errors for asset operations.
var (
	// ErrFormat is returned when a container header or table is inconsistent.
	ErrFormat = errors.New("assetkit: malformed container")

	// ErrSchemaUnavailable is returned when no field layout can be derived
	// for a script-defined object.
	ErrSchemaUnavailable = errors.New("assetkit: schema unavailable")

	// ErrUnsupportedFormat is returned for pixel formats without a decoder.
	ErrUnsupportedFormat = errors.New("assetkit: unsupported format")

	// ErrDecode is returned when object data is inconsistent mid-decode.
	ErrDecode = errors.New("assetkit: decode failed")

	// ErrDanglingReference is returned when a reference target is missing.
	ErrDanglingReference = errors.New("assetkit: dangling reference")

	// ErrSizeOverflow is returned when a size or offset exceeds supported limits.
	ErrSizeOverflow = errors.New("assetkit: size overflow")
)

// FormatError describes a container that could not be parsed.
// It is fatal to that container only.
type FormatError struct {
	Container string
	Offset    int64
	Reason    string
	Err       error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("assetkit: %s: malformed container at offset %d: %s", e.Container, e.Offset, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns ErrFormat and the underlying cause, if any.
func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFormat, e.Err}
	}
	return []error{ErrFormat}
}

// DecodeError describes a per-object decode failure.
type DecodeError struct {
	Container string
	PathID    int64
	Class     string
	Field     string
	Err       error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("assetkit: %s: %s #%d", e.Container, e.Class, e.PathID)
	if e.Field != "" {
		msg += " field " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns ErrDecode and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDecode, e.Err}
	}
	return []error{ErrDecode}
}

// SchemaError reports that neither an embedded nor an external type
// definition produced a layout. Callers fall back to raw export.
type SchemaError struct {
	Container string
	PathID    int64
	Class     string
	Script    string
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("assetkit: %s: %s #%d: no type layout", e.Container, e.Class, e.PathID)
	if e.Script != "" {
		msg += " for script " + e.Script
	}
	return msg
}

// Unwrap returns ErrSchemaUnavailable.
func (e *SchemaError) Unwrap() error { return ErrSchemaUnavailable }

// FormatUnsupportedError reports a pixel format without a registered decoder.
type FormatUnsupportedError struct {
	Format int
	Name   string
}

func (e *FormatUnsupportedError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("assetkit: unsupported pixel format %s (%d)", e.Name, e.Format)
	}
	return fmt.Sprintf("assetkit: unsupported pixel format %d", e.Format)
}

// Unwrap returns ErrUnsupportedFormat.
func (e *FormatUnsupportedError) Unwrap() error { return ErrUnsupportedFormat }

// DanglingReferenceError reports a reference whose target is not loaded.
type DanglingReferenceError struct {
	Container string
	Field     string
	FileID    int32
	PathID    int64
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("assetkit: %s: %s references missing object (file %d, path %d)",
		e.Container, e.Field, e.FileID, e.PathID)
}

// Unwrap returns ErrDanglingReference.
func (e *DanglingReferenceError) Unwrap() error { return ErrDanglingReference }
